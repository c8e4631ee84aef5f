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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// AlgorithmRow is one line of the algorithms listing.
type AlgorithmRow struct {
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	Provider  string `json:"provider" yaml:"provider"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// PrintProviders prints the registry snapshot
func (p *Printer) PrintProviders(providers []types.ProviderInfo, compiled []string) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.printData(map[string]interface{}{
			"providers": providers,
			"compiled":  compiled,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "%-10s %-9s %-8s %s\n", "NAME", "PRIORITY", "STATE", "ERROR")
		fmt.Fprintln(p.writer, strings.Repeat("-", 48))
		for _, info := range providers {
			fmt.Fprintf(p.writer, "%-10s %-9d %-8s %s\n", info.Name, info.Priority, info.State, info.Error)
		}
		fmt.Fprintf(p.writer, "\nCompiled engines: %s\n", strings.Join(compiled, ", "))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintAlgorithms prints which provider answers each algorithm
func (p *Printer) PrintAlgorithms(rows []AlgorithmRow) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.printData(map[string]interface{}{
			"algorithms": rows,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "%-20s %s\n", "ALGORITHM", "PROVIDER")
		fmt.Fprintln(p.writer, strings.Repeat("-", 32))
		for _, r := range rows {
			provider := r.Provider
			if r.Error != "" {
				provider = "error: " + r.Error
			}
			fmt.Fprintf(p.writer, "%-20s %s\n", r.Algorithm, provider)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintValue prints a single named value, such as a hex digest or a base64
// signature. Text output is the bare value.
func (p *Printer) PrintValue(name, value string) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.printData(map[string]interface{}{
			name: value,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, value)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintVerification prints a signature or MAC check result
func (p *Printer) PrintVerification(valid bool) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.printData(map[string]interface{}{
			"valid": valid,
		})
	case OutputFormatText:
		if valid {
			fmt.Fprintln(p.writer, "Verified OK")
		} else {
			fmt.Fprintln(p.writer, "Verification Failure")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.printData(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON, OutputFormatYAML:
		return p.printData(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

func (p *Printer) printData(data interface{}) error {
	if p.format == OutputFormatYAML {
		encoder := yaml.NewEncoder(p.writer)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(data)
	}
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
