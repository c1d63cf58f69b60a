/*
Copyright 2025 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package keyvault generates and encodes one-time custody keypairs. It is the
// only package that touches raw key material: callers scope a CustodyKey as
// narrowly as possible and call Zero once signing is done. Secret material
// must never be written to structured logs.
package keyvault

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/mr-tron/base58"
)

// ErrMalformedKey is returned when an encoded custody key cannot be decoded.
// It covers bad base58, wrong length and a secret whose public half does not
// match its seed.
var ErrMalformedKey = errors.New("malformed custody key")

// CustodyKey is a one-time ed25519 keypair controlling a custody account.
// It is exclusively owned by the link it belongs to and is never reused.
type CustodyKey struct {
	secret ed25519.PrivateKey
	public ed25519.PublicKey
}

// Generate produces a fresh custody keypair from the OS entropy source.
// Keys are never derived from another secret.
func Generate() (*CustodyKey, error) {
	public, secret, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &CustodyKey{secret: secret, public: public}, nil
}

// Address returns the base58-encoded public key, which doubles as the
// custody account address on the ledger.
func (k *CustodyKey) Address() string {
	return base58.Encode(k.public)
}

// Encode returns the reversible text encoding of the full 64-byte secret,
// suitable for embedding in a URL fragment. Never place this in a query
// parameter: fragments are not sent to servers, query strings are.
func (k *CustodyKey) Encode() string {
	return base58.Encode(k.secret)
}

// Decode reconstructs a custody key from its text encoding.
func Decode(encoded string) (*CustodyKey, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, ErrMalformedKey
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, ErrMalformedKey
	}
	// The trailing 32 bytes of an ed25519 private key are the public key.
	// Re-derive from the seed and compare: a mismatch means the encoding was
	// corrupted or hand-assembled, and the seed cannot sign for the address.
	secret := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	derived := secret.Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, raw[ed25519.SeedSize:]) {
		return nil, ErrMalformedKey
	}
	return &CustodyKey{secret: secret, public: derived}, nil
}

// Signer exposes the private key for a signing call. The caller must not
// retain the returned slice beyond the call that consumes it.
func (k *CustodyKey) Signer() ed25519.PrivateKey {
	return k.secret
}

// Zero overwrites the secret material in place. The key is unusable after.
func (k *CustodyKey) Zero() {
	for i := range k.secret {
		k.secret[i] = 0
	}
	k.secret = nil
}
