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
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// chunkSize is the read size for streamed inputs.
const chunkSize = 32 * 1024

// openInput opens path, or standard input for "" and "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	// #nosec G304 - input path is provided by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// readInput reads path, or standard input for "" and "-", in full.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	r, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// stream feeds r to update in chunkSize pieces.
func stream(r io.Reader, update func(p []byte) error) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if uerr := update(buf[:n]); uerr != nil {
				return uerr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// readFile reads a key or signature file.
func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	// #nosec G304 - file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeFile writes data to path. Secret material is written with mode
// 0600.
func writeFile(path string, data []byte, secret bool) error {
	perm := os.FileMode(0o644)
	if secret {
		perm = 0o600
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// emit writes binary output to path, or prints it base64 encoded under
// name when path is empty.
func (a *app) emit(cmd *cobra.Command, name, path string, data []byte, secret bool) error {
	if path != "" {
		return writeFile(path, data, secret)
	}
	return NewPrinter(a.flags.OutputFormat, cmd.OutOrStdout()).
		PrintValue(name, base64.StdEncoding.EncodeToString(data))
}

// decodeBinary decodes a hex value, or a base64 value with a "b64:"
// prefix.
func decodeBinary(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "b64:"); ok {
		return base64.StdEncoding.DecodeString(rest)
	}
	return hex.DecodeString(s)
}

// maybeBase64 decodes data when it is base64 text, as printed by emit.
func maybeBase64(data []byte, enabled bool) ([]byte, error) {
	if !enabled {
		return data, nil
	}
	out, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode base64 input: %w", err)
	}
	return out, nil
}
