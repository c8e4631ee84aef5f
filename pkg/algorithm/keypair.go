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

package algorithm

// KeyPair holds a public and a private key produced by one generation
// call. After creation the halves are independent.
type KeyPair[Pub, Priv any] interface {
	PublicKey() Pub
	PrivateKey() Priv
}

type keyPair[Pub, Priv any] struct {
	public  Pub
	private Priv
}

// NewKeyPair pairs two keys.
func NewKeyPair[Pub, Priv any](public Pub, private Priv) KeyPair[Pub, Priv] {
	return &keyPair[Pub, Priv]{public: public, private: private}
}

func (p *keyPair[Pub, Priv]) PublicKey() Pub {
	return p.public
}

func (p *keyPair[Pub, Priv]) PrivateKey() Priv {
	return p.private
}
