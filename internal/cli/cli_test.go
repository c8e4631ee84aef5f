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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-cryptoprovider/pkg/types"
)

// run executes the root command with args and stdin, returning stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, a := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	if terr := a.teardown(); err == nil {
		err = terr
	}
	return out.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, stdin, args...)
	require.NoError(t, err, "args: %v", args)
	return out
}

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestVersionCmd(t *testing.T) {
	out := mustRun(t, "", "version")
	assert.Contains(t, out, "cryptoprovider version "+Version)

	out = mustRun(t, "", "version", "-o", "json")
	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestRootCmd_Errors(t *testing.T) {
	_, err := run(t, "", "hash", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")

	_, err = run(t, "", "hash", "--provider", "enigma")
	assert.ErrorContains(t, err, "unknown provider")

	_, err = run(t, "", "hash", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "cryptoprovider.yaml")

	mustRun(t, "", "config", "init", path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = run(t, "", "config", "init", path)
	assert.Error(t, err, "existing file without --force")
	mustRun(t, "", "config", "init", "--force", path)

	out := mustRun(t, "", "config", "show", "--config", path)
	assert.Contains(t, out, "providers:")
	assert.Contains(t, out, "software:")
}

func TestProvidersCmd(t *testing.T) {
	out := mustRun(t, "", "providers", "--init")
	assert.Contains(t, out, "software")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "Compiled engines:")
}

func TestAlgorithmsCmd(t *testing.T) {
	out := mustRun(t, "", "algorithms", "-o", "json")
	var doc struct {
		Algorithms []AlgorithmRow `json:"algorithms"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.NotEmpty(t, doc.Algorithms)

	byName := make(map[string]string)
	for _, r := range doc.Algorithms {
		byName[r.Algorithm] = r.Provider
	}
	assert.Equal(t, "software", byName["SHA-256"])
	assert.Equal(t, "software", byName["AES-GCM"])
}

func TestHashCmd(t *testing.T) {
	tests := []struct {
		algorithm string
		input     string
		want      string
	}{
		{"SHA-256", "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"SHA-1", "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"SHA-256", "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}
	for _, tt := range tests {
		t.Run(tt.algorithm+"/"+tt.input, func(t *testing.T) {
			out := mustRun(t, tt.input, "hash", "-a", tt.algorithm)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}

	t.Run("file larger than one chunk", func(t *testing.T) {
		data := bytes.Repeat([]byte("a"), chunkSize*2+17)
		path := writeTemp(t, t.TempDir(), "big", data)
		fromFile := mustRun(t, "", "hash", path)
		fromStdin := mustRun(t, string(data), "hash")
		assert.Equal(t, fromStdin, fromFile)
	})

	t.Run("unknown digest", func(t *testing.T) {
		_, err := run(t, "abc", "hash", "-a", "SHA-999")
		assert.Error(t, err)
	})
}

func TestHMACCmd(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "hmac.key")
	msg := writeTemp(t, dir, "msg", []byte("message"))

	mustRun(t, "", "hmac", "keygen", "--out", key)
	mac := strings.TrimSpace(mustRun(t, "", "hmac", "sign", "--key", key, msg))
	assert.Len(t, mac, 64)

	out := mustRun(t, "", "hmac", "verify", "--key", key, "--mac", mac, msg)
	assert.Contains(t, out, "Verified OK")

	wrong := strings.Repeat("00", 32)
	out, err := run(t, "", "hmac", "verify", "--key", key, "--mac", wrong, msg)
	assert.ErrorIs(t, err, errVerificationFailed)
	assert.Contains(t, out, "Verification Failure")
}

func TestSignVerifyCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"ECDSA P-256", []string{"-a", "ECDSA"}},
		{"ECDSA P-384 raw", []string{"-a", "ECDSA", "--curve", "P-384", "-d", "SHA-384", "--signature-format", "RAW"}},
		{"Ed25519", []string{"-a", "Ed25519"}},
		{"RSA-PSS", []string{"-a", "RSA-PSS"}},
		{"RSA-PKCS1", []string{"-a", "RSA-PKCS1", "-d", "SHA-512"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			priv := filepath.Join(dir, "key.pem")
			pub := filepath.Join(dir, "pub.pem")
			sig := filepath.Join(dir, "sig")
			msg := writeTemp(t, dir, "msg", []byte("signed payload"))

			keyArgs := keygenArgs(tt.args)
			mustRun(t, "", append([]string{"keygen", "--out", priv, "--public-out", pub}, keyArgs...)...)

			mustRun(t, "", append([]string{"sign", "--key", priv, "--out", sig, msg}, tt.args...)...)
			out := mustRun(t, "", append([]string{"verify", "--key", pub, "--signature", sig, msg}, tt.args...)...)
			assert.Contains(t, out, "Verified OK")

			tampered := writeTemp(t, dir, "tampered", []byte("signed payloaD"))
			_, err := run(t, "", append([]string{"verify", "--key", pub, "--signature", sig, tampered}, tt.args...)...)
			assert.ErrorIs(t, err, errVerificationFailed)
		})
	}
}

// keygenArgs drops flags keygen does not take.
func keygenArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--signature-format" {
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}

func TestSignCmd_Base64Signature(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "key.pem")
	pub := filepath.Join(dir, "pub.pem")
	msg := writeTemp(t, dir, "msg", []byte("hello"))

	mustRun(t, "", "keygen", "-a", "EdDSA", "--out", priv, "--public-out", pub)
	printed := strings.TrimSpace(mustRun(t, "", "sign", "-a", "EdDSA", "--key", priv, msg))

	out := mustRun(t, "", "verify", "-a", "EdDSA", "--key", pub, "--signature-value", "b64:"+printed, msg)
	assert.Contains(t, out, "Verified OK")

	sigFile := writeTemp(t, dir, "sig.b64", []byte(printed+"\n"))
	out = mustRun(t, "", "verify", "-a", "EdDSA", "--key", pub, "--signature", sigFile, "--base64", msg)
	assert.Contains(t, out, "Verified OK")

	_, err := run(t, "", "verify", "-a", "EdDSA", "--key", pub, msg)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestEncryptDecryptCmd(t *testing.T) {
	plaintext := bytes.Repeat([]byte("plaintext "), 5000)

	tests := []struct {
		algorithm string
		aad       string
	}{
		{"AES-GCM", "header"},
		{"AES-GCM", ""},
		{"ChaCha20-Poly1305", "header"},
		{"AES-CBC", ""},
		{"AES-CTR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.algorithm+"/"+tt.aad, func(t *testing.T) {
			dir := t.TempDir()
			key := filepath.Join(dir, "key")
			ct := filepath.Join(dir, "ct")
			pt := filepath.Join(dir, "pt")
			in := writeTemp(t, dir, "in", plaintext)

			mustRun(t, "", "keygen", "-a", tt.algorithm, "--out", key)
			args := []string{"-a", tt.algorithm, "--key", key}
			if tt.aad != "" {
				args = append(args, "--aad", tt.aad)
			}
			mustRun(t, "", append([]string{"encrypt", "--out", ct, in}, args...)...)
			sealed, err := os.ReadFile(ct)
			require.NoError(t, err)
			assert.NotEqual(t, plaintext, sealed)

			mustRun(t, "", append([]string{"decrypt", "--out", pt, ct}, args...)...)
			got, err := os.ReadFile(pt)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)
		})
	}
}

func TestEncryptDecryptCmd_AEADFailures(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "key")
	mustRun(t, "", "keygen", "-a", "AES-GCM", "--out", key)

	printed := strings.TrimSpace(mustRun(t, "secret", "encrypt", "-a", "AES-GCM", "--key", key, "--aad", "one"))

	out := mustRun(t, printed, "decrypt", "-a", "AES-GCM", "--key", key, "--aad", "one", "--base64")
	assert.Equal(t, "secret", out)

	out, err := run(t, printed, "decrypt", "-a", "AES-GCM", "--key", key, "--aad", "two", "--base64")
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
	assert.Empty(t, out)

	cbcKey := filepath.Join(dir, "cbc")
	mustRun(t, "", "keygen", "-a", "AES-CBC", "--out", cbcKey)
	_, err = run(t, "data", "encrypt", "-a", "AES-CBC", "--key", cbcKey, "--aad", "x")
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestEncryptDecryptCmd_RSAOAEP(t *testing.T) {
	dir := t.TempDir()
	priv := filepath.Join(dir, "key.pem")
	pub := filepath.Join(dir, "pub.pem")
	ct := filepath.Join(dir, "ct")

	mustRun(t, "", "keygen", "-a", "RSA-OAEP", "--out", priv, "--public-out", pub)
	mustRun(t, "session key", "encrypt", "-a", "RSA-OAEP", "--key", pub, "--aad", "label", "--out", ct)

	out := mustRun(t, "", "decrypt", "-a", "RSA-OAEP", "--key", priv, "--aad", "label", ct)
	assert.Equal(t, "session key", out)

	_, err := run(t, "", "decrypt", "-a", "RSA-OAEP", "--key", priv, "--aad", "other", ct)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
}

func TestEncryptCmd_DefaultAlgorithm(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "key")

	cmd, _ := newRootCmd()
	enc, _, err := cmd.Find([]string{"encrypt"})
	require.NoError(t, err)
	def := enc.Flags().Lookup("algorithm").DefValue
	assert.Contains(t, []string{"AES-GCM", "ChaCha20-Poly1305"}, def)

	mustRun(t, "", "keygen", "-a", def, "--out", key)
	printed := strings.TrimSpace(mustRun(t, "hello", "encrypt", "--key", key))
	assert.Equal(t, "hello", mustRun(t, printed, "decrypt", "--key", key, "--base64"))
}

func TestDeriveCmd_HKDF(t *testing.T) {
	// RFC 5869 test case 1.
	ikm := bytes.Repeat([]byte{0x0b}, 22)
	info := string([]byte{0xf0, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9})
	out := mustRun(t, string(ikm), "derive", "hkdf",
		"--salt", "000102030405060708090a0b0c",
		"--info", info,
		"--length", "42")
	assert.Equal(t,
		"3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865",
		strings.TrimSpace(out))
}

func TestDeriveCmd_PasswordKDFs(t *testing.T) {
	pbkdf2 := strings.TrimSpace(mustRun(t, "password", "derive", "pbkdf2",
		"--salt", hex.EncodeToString([]byte("salt")),
		"--iterations", "1000",
		"--length", "20"))
	assert.Len(t, pbkdf2, 40)

	argon := strings.TrimSpace(mustRun(t, "password", "derive", "argon2id",
		"--salt", hex.EncodeToString([]byte("sixteen byte salt")),
		"--time", "1",
		"--memory", "8192",
		"--threads", "1",
		"--length", "16"))
	assert.Len(t, argon, 32)

	_, err := run(t, "password", "derive", "argon2id", "--length", "0")
	assert.Error(t, err)

	_, err = run(t, "password", "derive", "pbkdf2", "--salt", "zz")
	assert.ErrorIs(t, err, types.ErrInvalidParameter)
}

func TestDeriveCmd_Shared(t *testing.T) {
	for _, alg := range []string{"ECDH", "X25519"} {
		t.Run(alg, func(t *testing.T) {
			dir := t.TempDir()
			paths := func(n string) (string, string) {
				return filepath.Join(dir, n+".pem"), filepath.Join(dir, n+".pub.pem")
			}
			alicePriv, alicePub := paths("alice")
			bobPriv, bobPub := paths("bob")
			mustRun(t, "", "keygen", "-a", alg, "--out", alicePriv, "--public-out", alicePub)
			mustRun(t, "", "keygen", "-a", alg, "--out", bobPriv, "--public-out", bobPub)

			ab := mustRun(t, "", "derive", "shared", "-a", alg, "--key", alicePriv, "--peer", bobPub)
			ba := mustRun(t, "", "derive", "shared", "-a", alg, "--key", bobPriv, "--peer", alicePub)
			assert.Equal(t, ab, ba)
			assert.NotEmpty(t, strings.TrimSpace(ab))
		})
	}
}

func TestMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cryptoprovider.prom")
	mustRun(t, "abc", "hash", "--metrics-file", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestTokenCmd(t *testing.T) {
	tests := []struct {
		alg    string
		keygen []string
	}{
		{"ES256", []string{"-a", "ECDSA"}},
		{"ES384", []string{"-a", "ECDSA", "--curve", "P-384"}},
		{"EdDSA", []string{"-a", "EdDSA"}},
		{"PS256", []string{"-a", "RSA-PSS"}},
		{"RS256", []string{"-a", "RSA-PKCS1"}},
		{"HS256", []string{"-a", "HMAC"}},
	}
	for _, tt := range tests {
		t.Run(tt.alg, func(t *testing.T) {
			dir := t.TempDir()
			priv := filepath.Join(dir, "key")
			pub := filepath.Join(dir, "pub")
			args := append([]string{"keygen", "--out", priv}, tt.keygen...)
			if tt.alg != "HS256" {
				args = append(args, "--public-out", pub)
			} else {
				pub = priv
			}
			mustRun(t, "", args...)

			token := strings.TrimSpace(mustRun(t, `{"sub":"alice"}`,
				"token", "sign", "--alg", tt.alg, "--key", priv, "--kid", "k1", "--ttl", "1h"))
			assert.Equal(t, 2, strings.Count(token, "."))

			out := mustRun(t, token, "token", "verify", "--alg", tt.alg, "--key", pub)
			var claims map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &claims))
			assert.Equal(t, "alice", claims["sub"])
			assert.Contains(t, claims, "exp")

			parts := strings.Split(token, ".")
			parts[1] = parts[1][:len(parts[1])-2] + "AA"
			_, err := run(t, strings.Join(parts, "."), "token", "verify", "--alg", tt.alg, "--key", pub)
			assert.ErrorIs(t, err, errVerificationFailed)
		})
	}
}

func TestTokenCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "key")
	mustRun(t, "", "keygen", "-a", "HMAC", "--out", key)

	_, err := run(t, "{}", "token", "sign", "--alg", "none", "--key", key)
	assert.Error(t, err)

	_, err = run(t, "not json", "token", "sign", "--alg", "HS256", "--key", key)
	assert.ErrorIs(t, err, types.ErrInvalidParameter)

	token := strings.TrimSpace(mustRun(t, "{}", "token", "sign", "--alg", "HS256", "--key", key))
	_, err = run(t, token, "token", "verify", "--alg", "HS384", "--key", key)
	assert.ErrorIs(t, err, errVerificationFailed)
}
