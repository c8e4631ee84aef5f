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

// Identity is the untyped view of an algorithm identity. It is implemented
// only by *ID values and compares by pointer.
type Identity interface {
	// Name is the display name. It does not take part in equality.
	Name() string
	String() string
	sealed()
}

// ID identifies an algorithm and carries, as a type parameter, the
// capability an engine resolves it to. Two IDs are equal only if they are
// the same pointer, even when their names match.
type ID[C any] struct {
	name string
}

var _ Identity = (*ID[any])(nil)

// NewID returns a new, distinct identity. Identities are meant to be
// declared once as package level variables.
func NewID[C any](name string) *ID[C] {
	return &ID[C]{name: name}
}

// Name returns the display name.
func (id *ID[C]) Name() string {
	return id.name
}

// String returns the display name.
func (id *ID[C]) String() string {
	return id.name
}

func (*ID[C]) sealed() {}
