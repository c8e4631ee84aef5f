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

package pkcs11_test

import (
	"fmt"
	"log"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/algorithm/ids"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/provider/pkcs11"
	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// Register a SoftHSM token above the software engine. Keys generated
// through the default provider then live in the token.
func Example() {
	config := &pkcs11.Config{
		Library:    "/usr/lib/softhsm/libsofthsm2.so",
		TokenLabel: "cp-test",
		PIN:        "1234",
	}
	provider.Register(provider.NewLazy(pkcs11.Name, func() (provider.Provider, error) {
		return pkcs11.New(config)
	}), pkcs11.DefaultPriority)

	family, err := provider.Get(provider.Default(), ids.ECDSA)
	if err != nil {
		log.Fatal(err)
	}
	gen, err := family.KeyPairGenerator(types.CurveP256)
	if err != nil {
		log.Fatal(err)
	}
	pair, err := gen.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}
	label, _ := pair.PrivateKey().EncodeTo(types.FormatKeyRef)
	fmt.Printf("token key %s\n", label)
}
