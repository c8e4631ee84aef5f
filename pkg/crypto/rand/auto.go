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

package rand

// newAutoResolver returns the first hardware source that opens and
// reports itself available, or the software source. Hardware sources are
// only tried when configured.
func newAutoResolver(cfg *Config) Resolver {
	if cfg.PKCS11 != nil && pkcs11Available() {
		if r, err := newPKCS11Resolver(cfg.PKCS11); err == nil {
			if r.Available() {
				return r
			}
			_ = r.Close()
		}
	}
	if cfg.TPM2 != nil && tpm2Available() {
		if r, err := newTPM2Resolver(cfg.TPM2); err == nil {
			if r.Available() {
				return r
			}
			_ = r.Close()
		}
	}
	return Software()
}
