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
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-cryptoprovider/internal/config"
	"github.com/jeremyhahn/go-cryptoprovider/internal/engines"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/correlation"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/metrics"
)

// Flags holds the persistent command line flags.
type Flags struct {
	ConfigFile   string
	Provider     string
	OutputFormat string
	Debug        bool
	LogFormat    string
	MetricsFile  string
}

// app is the state shared by one command invocation.
type app struct {
	flags   Flags
	config  *config.Config
	engines *engines.Set
	logger  logger.Logger
	gather  prometheus.Gatherer
}

// Execute runs the root command. Errors are printed in the selected output
// format before being returned. Cancelling ctx aborts in-flight operations.
func Execute(ctx context.Context) error {
	cmd, a := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	// PersistentPostRunE does not run when a command fails.
	if terr := a.teardown(); err == nil {
		err = terr
	}
	if err != nil {
		handleError(a.flags.OutputFormat, err)
	}
	return err
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "cryptoprovider",
		Short: "Cryptographic operations over pluggable providers",
		Long: `cryptoprovider resolves algorithms against a prioritized registry of
providers and runs hashing, MAC, signature, encryption and key derivation
operations through them.

Providers:
  - software: Go standard library and golang.org/x/crypto
  - pkcs11:   PKCS#11 tokens and HSMs (-tags pkcs11)
  - tpm2:     TPM 2.0 hash sequences (-tags tpm2)
  - awskms:   AWS Key Management Service (-tags awskms)
  - gcpkms:   Google Cloud KMS (-tags gcpkms)
  - azurekv:  Azure Key Vault (-tags azurekv)
  - vault:    HashiCorp Vault Transit (-tags vault)`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.flags.ConfigFile, "config", "",
		"config file (default: built-in defaults plus CRYPTOPROVIDER_* environment)")
	f.StringVar(&a.flags.Provider, "provider", "",
		"use only this provider (software, pkcs11, tpm2, awskms, gcpkms, azurekv, vault)")
	f.StringVarP(&a.flags.OutputFormat, "output", "o", "text",
		"output format (text, json, yaml)")
	f.BoolVar(&a.flags.Debug, "debug", false,
		"enable debug logging")
	f.StringVar(&a.flags.LogFormat, "log-format", "",
		"log format (text, json); overrides the config file")
	f.StringVar(&a.flags.MetricsFile, "metrics-file", "",
		"write prometheus metrics to this file on exit")

	cmd.AddCommand(
		newVersionCmd(a),
		newConfigCmd(a),
		newProvidersCmd(a),
		newAlgorithmsCmd(a),
		newHashCmd(a),
		newHMACCmd(a),
		newKeygenCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newDeriveCmd(a),
		newTokenCmd(a),
	)
	return cmd, a
}

// needsEngines reports whether cmd resolves algorithms.
func needsEngines(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["engines"] == "false" {
			return false
		}
	}
	return true
}

// setup loads the configuration and builds the registry.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	switch a.flags.OutputFormat {
	case string(OutputFormatText), string(OutputFormatJSON), string(OutputFormatYAML):
	default:
		return fmt.Errorf("unknown output format: %s", a.flags.OutputFormat)
	}
	if !needsEngines(cmd) {
		return nil
	}
	cmd.SetContext(correlation.Ensure(cmd.Context()))

	cfg, err := config.Load(a.flags.ConfigFile)
	if err != nil {
		return err
	}
	if a.flags.Provider != "" && !cfg.Only(a.flags.Provider) {
		return fmt.Errorf("unknown provider: %s", a.flags.Provider)
	}
	if a.flags.LogFormat != "" {
		cfg.Logging.Format = a.flags.LogFormat
	}
	if a.flags.Debug {
		cfg.Logging.Level = "debug"
	}
	if a.flags.MetricsFile != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.TextfilePath = a.flags.MetricsFile
	}
	a.config = cfg

	a.logger = newLogger(cfg.Logging)

	var rec metrics.Recorder = metrics.NoOp
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		a.gather = reg
	}

	set, err := engines.Build(cfg, engines.Options{Logger: a.logger, Metrics: rec})
	if err != nil {
		return err
	}
	a.engines = set
	a.logger.DebugContext(cmd.Context(), "registry ready",
		logger.Any("providers", cfg.EnabledProviders()),
		logger.String("rand", string(set.Rand.Mode())))
	return nil
}

// teardown closes the engines and writes the metrics textfile.
func (a *app) teardown() error {
	var err error
	if a.engines != nil {
		err = a.engines.Close()
		a.engines = nil
	}
	if a.gather != nil {
		defer func() { a.gather = nil }()
		if werr := metrics.WriteTextfile(a.config.Metrics.TextfilePath, a.gather); werr != nil && err == nil {
			err = fmt.Errorf("write metrics: %w", werr)
		}
	}
	return err
}

func newLogger(c config.LoggingConfig) logger.Logger {
	level, ok := logger.ParseLevel(c.Level)
	if !ok {
		level = logger.LevelInfo
	}
	return logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  level,
		Format: strings.ToLower(c.Format),
		Writer: os.Stderr,
	})
}

// handleError prints an error in the selected output format.
func handleError(format string, err error) {
	printer := NewPrinter(format, os.Stderr)
	_ = printer.PrintError(err) // Error printing to stderr is best-effort
}
