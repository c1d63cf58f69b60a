package chain

import (
	"crypto/ed25519"
	"errors"
	"os"
	"strings"

	"github.com/mr-tron/base58"
)

// Signer is a signing capability over settlement transactions. The sender's
// wallet implements it for link funding; custody keys sign directly through
// Transaction.Sign and never pass through this interface.
type Signer interface {
	Address() string
	SignTransaction(tx *Transaction) error
}

// FileSigner signs with an ed25519 key loaded from a key file containing the
// base58-encoded 64-byte secret.
type FileSigner struct {
	secret ed25519.PrivateKey
	public ed25519.PublicKey
}

// NewFileSigner loads a signing key from disk.
func NewFileSigner(path string) (*FileSigner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewSignerFromEncoded(strings.TrimSpace(string(raw)))
}

// NewSignerFromEncoded builds a signer from a base58-encoded secret key.
func NewSignerFromEncoded(encoded string) (*FileSigner, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, errors.New("wallet key is not valid base58")
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.New("wallet key has wrong length")
	}
	secret := ed25519.PrivateKey(raw)
	public, ok := secret.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("wallet key is invalid")
	}
	return &FileSigner{secret: secret, public: public}, nil
}

func (s *FileSigner) Address() string {
	return base58.Encode(s.public)
}

func (s *FileSigner) SignTransaction(tx *Transaction) error {
	return tx.Sign(s.secret)
}
