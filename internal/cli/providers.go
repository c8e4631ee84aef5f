// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoprovider.
//
// go-cryptoprovider is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoprovider/internal/engines"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

func newProvidersCmd(a *app) *cobra.Command {
	var initialize bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List registered providers",
		Long: `List the registered providers in resolution order with their priority
and initialization state. Providers are created lazily; --init creates
them all first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			regs := a.engines.Registry.Providers()
			infos := make([]types.ProviderInfo, 0, len(regs))
			for _, reg := range regs {
				if initialize {
					_, _ = reg.Provider.Get()
				}
				infos = append(infos, reg.Info())
			}
			return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).
				PrintProviders(infos, engines.Compiled())
		},
	}
	cmd.Flags().BoolVar(&initialize, "init", false, "initialize every provider before listing")
	return cmd
}

func newAlgorithmsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List standard algorithms and the provider that resolves each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			regs := a.engines.Registry.Providers()
			var rows []AlgorithmRow
			for _, id := range ids.All() {
				row := AlgorithmRow{Algorithm: id.Name(), Provider: "-"}
				for _, reg := range regs {
					v, err := reg.Provider.Resolve(id)
					if err != nil {
						row.Provider = reg.Provider.Name()
						row.Error = err.Error()
						break
					}
					if v != nil {
						row.Provider = reg.Provider.Name()
						break
					}
				}
				rows = append(rows, row)
			}
			return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).PrintAlgorithms(rows)
		},
	}
}
