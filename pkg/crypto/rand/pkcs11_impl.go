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

//go:build pkcs11

package rand

import (
	"errors"
	"fmt"
	"sync"

	"github.com/miekg/pkcs11"
)

// pkcs11Resolver draws from C_GenerateRandom on a dedicated session.
type pkcs11Resolver struct {
	mu      sync.Mutex
	ctx     *pkcs11.Ctx
	session pkcs11.SessionHandle
	login   bool
}

func newPKCS11Resolver(config *PKCS11Config) (Resolver, error) {
	if config == nil || config.Module == "" {
		return nil, errors.New("rand: PKCS#11 module path is required")
	}

	ctx := pkcs11.New(config.Module)
	if ctx == nil {
		return nil, fmt.Errorf("rand: load PKCS#11 module %s", config.Module)
	}
	if err := ctx.Initialize(); err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("rand: initialize PKCS#11: %w", err)
	}
	cleanup := func() {
		_ = ctx.Finalize()
		ctx.Destroy()
	}

	// Some tokens only expose slots after C_GetSlotList.
	if _, err := ctx.GetSlotList(true); err != nil {
		cleanup()
		return nil, fmt.Errorf("rand: PKCS#11 slot list: %w", err)
	}
	session, err := ctx.OpenSession(config.SlotID, pkcs11.CKF_SERIAL_SESSION)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("rand: open PKCS#11 session: %w", err)
	}

	r := &pkcs11Resolver{ctx: ctx, session: session}
	if config.PIN != "" {
		if err := ctx.Login(session, pkcs11.CKU_USER, config.PIN); err != nil {
			_ = ctx.CloseSession(session)
			cleanup()
			return nil, fmt.Errorf("rand: PKCS#11 login: %w", err)
		}
		r.login = true
	}
	return r, nil
}

func pkcs11Available() bool {
	return true
}

func (p *pkcs11Resolver) Read(b []byte) (int, error) {
	if err := p.NextBytes(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *pkcs11Resolver) NextBytes(buf []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return ErrResolverClosed
	}
	out, err := p.ctx.GenerateRandom(p.session, len(buf))
	if err != nil {
		return fmt.Errorf("rand: C_GenerateRandom: %w", err)
	}
	if len(out) != len(buf) {
		return fmt.Errorf("rand: C_GenerateRandom returned %d of %d bytes", len(out), len(buf))
	}
	copy(buf, out)
	return nil
}

func (p *pkcs11Resolver) Mode() Mode {
	return ModePKCS11
}

func (p *pkcs11Resolver) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx != nil
}

func (p *pkcs11Resolver) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return nil
	}
	if p.login {
		_ = p.ctx.Logout(p.session)
	}
	_ = p.ctx.CloseSession(p.session)
	_ = p.ctx.Finalize()
	p.ctx.Destroy()
	p.ctx = nil
	return nil
}
