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

// Package rand is the injectable randomness source of the engines. Every
// key, IV, nonce and salt an engine generates is drawn from a Resolver.
//
// Four sources exist:
//   - Software: crypto/rand
//   - TPM2: TPM2_GetRandom (build tag tpm2)
//   - PKCS11: C_GenerateRandom (build tag pkcs11)
//   - Auto: the first available of PKCS11, TPM2 and Software
//
// A Resolver is an io.Reader, so it can be handed to standard library key
// generators:
//
//	rng, _ := rand.NewResolver(rand.ModeAuto)
//	key, _ := ecdsa.GenerateKey(elliptic.P256(), rng)
//
// All resolvers are safe for concurrent use.
package rand

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrResolverClosed is returned by a resolver after Close.
	ErrResolverClosed = errors.New("rand: resolver closed")

	// ErrNotCompiled is returned when a hardware source was requested but
	// its build tag was not set.
	ErrNotCompiled = errors.New("rand: source not compiled in")
)

// Mode selects a randomness source.
type Mode string

const (
	// ModeAuto picks the best available source, PKCS#11 then TPM2 then
	// software.
	ModeAuto Mode = "auto"

	// ModeSoftware uses crypto/rand.
	ModeSoftware Mode = "software"

	// ModeTPM2 uses the TPM random number generator.
	ModeTPM2 Mode = "tpm2"

	// ModePKCS11 uses the HSM random number generator.
	ModePKCS11 Mode = "pkcs11"
)

// Config configures NewResolver.
type Config struct {
	// Mode defaults to ModeAuto.
	Mode Mode `yaml:"mode" json:"mode" mapstructure:"mode"`

	// FallbackMode is tried when the primary source fails a request.
	FallbackMode Mode `yaml:"fallback_mode" json:"fallback_mode" mapstructure:"fallback_mode"`

	TPM2   *TPM2Config   `yaml:"tpm2" json:"tpm2" mapstructure:"tpm2"`
	PKCS11 *PKCS11Config `yaml:"pkcs11" json:"pkcs11" mapstructure:"pkcs11"`
}

// TPM2Config configures the TPM source.
type TPM2Config struct {
	// Device defaults to /dev/tpmrm0.
	Device string `yaml:"device" json:"device" mapstructure:"device"`

	// MaxRequestSize caps bytes per TPM2_GetRandom. Defaults to 32.
	MaxRequestSize int `yaml:"max_request_size" json:"max_request_size" mapstructure:"max_request_size"`

	// SimulatorHost and SimulatorPort select a TCP simulator (swtpm)
	// instead of Device when SimulatorHost is set.
	SimulatorHost string `yaml:"simulator_host" json:"simulator_host" mapstructure:"simulator_host"`
	SimulatorPort int    `yaml:"simulator_port" json:"simulator_port" mapstructure:"simulator_port"`
}

// PKCS11Config configures the HSM source.
type PKCS11Config struct {
	Module string `yaml:"module" json:"module" mapstructure:"module"`
	SlotID uint   `yaml:"slot_id" json:"slot_id" mapstructure:"slot_id"`
	PIN    string `yaml:"pin" json:"-" mapstructure:"pin"`
}

// Resolver produces cryptographically secure random bytes.
type Resolver interface {
	io.Reader

	// NextBytes fills buf completely or returns an error.
	NextBytes(buf []byte) error

	// Mode reports the source actually in use.
	Mode() Mode

	// Available reports whether the source can serve requests.
	Available() bool

	Close() error
}

// NewResolver creates a resolver for mode, a Mode, or a *Config. A nil
// config selects ModeAuto.
func NewResolver(config interface{}) (Resolver, error) {
	var cfg *Config
	switch v := config.(type) {
	case nil:
		cfg = &Config{}
	case Mode:
		cfg = &Config{Mode: v}
	case *Config:
		if v == nil {
			v = &Config{}
		}
		cfg = v
	default:
		return nil, fmt.Errorf("rand: unsupported config type %T", config)
	}

	primary, err := newSource(cfg.Mode, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.FallbackMode == "" || cfg.FallbackMode == cfg.Mode {
		return primary, nil
	}
	fallback, err := newSource(cfg.FallbackMode, cfg)
	if err != nil {
		_ = primary.Close()
		return nil, fmt.Errorf("rand: fallback %s: %w", cfg.FallbackMode, err)
	}
	return &fallbackResolver{primary: primary, fallback: fallback}, nil
}

func newSource(mode Mode, cfg *Config) (Resolver, error) {
	switch mode {
	case "", ModeAuto:
		return newAutoResolver(cfg), nil
	case ModeSoftware:
		return Software(), nil
	case ModeTPM2:
		return newTPM2Resolver(cfg.TPM2)
	case ModePKCS11:
		return newPKCS11Resolver(cfg.PKCS11)
	default:
		return nil, fmt.Errorf("rand: unknown mode %q", mode)
	}
}

// Software returns the crypto/rand resolver.
func Software() Resolver {
	return softwareResolver{}
}

type softwareResolver struct{}

func (softwareResolver) Read(p []byte) (int, error) { return rand.Read(p) }

func (softwareResolver) NextBytes(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

func (softwareResolver) Mode() Mode      { return ModeSoftware }
func (softwareResolver) Available() bool { return true }
func (softwareResolver) Close() error    { return nil }

// FromReader wraps r. It is meant for tests that need reproducible key
// material and for callers that already own a CSPRNG.
func FromReader(r io.Reader) Resolver {
	return &readerResolver{r: r}
}

type readerResolver struct {
	mu sync.Mutex
	r  io.Reader
}

func (r *readerResolver) Read(p []byte) (int, error) {
	if err := r.NextBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (r *readerResolver) NextBytes(buf []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.ReadFull(r.r, buf)
	return err
}

func (r *readerResolver) Mode() Mode      { return ModeSoftware }
func (r *readerResolver) Available() bool { return true }
func (r *readerResolver) Close() error    { return nil }

// Bytes returns n bytes from r.
func Bytes(r Resolver, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := r.NextBytes(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// fallbackResolver retries failed requests against a second source.
type fallbackResolver struct {
	primary  Resolver
	fallback Resolver
}

func (f *fallbackResolver) Read(p []byte) (int, error) {
	if err := f.NextBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (f *fallbackResolver) NextBytes(buf []byte) error {
	if err := f.primary.NextBytes(buf); err == nil {
		return nil
	}
	return f.fallback.NextBytes(buf)
}

func (f *fallbackResolver) Mode() Mode {
	if f.primary.Available() {
		return f.primary.Mode()
	}
	return f.fallback.Mode()
}

func (f *fallbackResolver) Available() bool {
	return f.primary.Available() || f.fallback.Available()
}

func (f *fallbackResolver) Close() error {
	return errors.Join(f.primary.Close(), f.fallback.Close())
}
