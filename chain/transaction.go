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

package chain

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

type InstructionType string

const (
	// InstructionTransfer moves lamports between accounts.
	InstructionTransfer InstructionType = "transfer"
	// InstructionTokenTransfer moves token units between token accounts;
	// the owner of the source account must sign.
	InstructionTokenTransfer InstructionType = "token-transfer"
	// InstructionCreateTokenAccount creates a receiving token account for
	// an owner; the payer funds its rent exemption.
	InstructionCreateTokenAccount InstructionType = "create-token-account"
)

// Instruction is a single operation inside a settlement transaction.
type Instruction struct {
	Type        InstructionType `json:"type"`
	Source      string          `json:"source,omitempty"`
	Destination string          `json:"destination,omitempty"`
	Owner       string          `json:"owner,omitempty"`
	Mint        string          `json:"mint,omitempty"`
	Payer       string          `json:"payer,omitempty"`
	Lamports    uint64          `json:"lamports,omitempty"`
	Amount      uint64          `json:"amount,omitempty"`
}

// Signature pairs a signer's address with its base58 signature over the
// transaction message.
type Signature struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// Transaction is a bounded-validity settlement transaction. The fee payer is
// the account debited for the network fee; for gasless claims it is the
// custody account, never the recipient.
type Transaction struct {
	Instructions         []Instruction `json:"instructions"`
	FeePayer             string        `json:"fee_payer"`
	RecentBlockhash      string        `json:"recent_blockhash"`
	LastValidBlockHeight uint64        `json:"last_valid_block_height"`
	Signatures           []Signature   `json:"signatures,omitempty"`
}

// Blockhash is the handle used to bound a transaction's validity window.
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// NewTransaction starts an empty transaction with the given fee payer and
// validity bound.
func NewTransaction(feePayer string, recent Blockhash) *Transaction {
	return &Transaction{
		FeePayer:             feePayer,
		RecentBlockhash:      recent.Blockhash,
		LastValidBlockHeight: recent.LastValidBlockHeight,
	}
}

// AddTransfer appends a native transfer of lamports.
func (t *Transaction) AddTransfer(from, to string, lamports uint64) *Transaction {
	t.Instructions = append(t.Instructions, Instruction{
		Type:        InstructionTransfer,
		Source:      from,
		Destination: to,
		Lamports:    lamports,
	})
	return t
}

// AddTokenTransfer appends a token transfer between token accounts, signed by
// the owner of the source account.
func (t *Transaction) AddTokenTransfer(sourceAccount, destinationAccount, owner string, amount uint64) *Transaction {
	t.Instructions = append(t.Instructions, Instruction{
		Type:        InstructionTokenTransfer,
		Source:      sourceAccount,
		Destination: destinationAccount,
		Owner:       owner,
		Amount:      amount,
	})
	return t
}

// AddCreateTokenAccount appends creation of a token account for owner/mint,
// with rent funded by payer.
func (t *Transaction) AddCreateTokenAccount(payer, owner, mint string) *Transaction {
	t.Instructions = append(t.Instructions, Instruction{
		Type:  InstructionCreateTokenAccount,
		Payer: payer,
		Owner: owner,
		Mint:  mint,
	})
	return t
}

// Message returns the canonical signing payload: the transaction without its
// signatures.
func (t *Transaction) Message() ([]byte, error) {
	unsigned := Transaction{
		Instructions:         t.Instructions,
		FeePayer:             t.FeePayer,
		RecentBlockhash:      t.RecentBlockhash,
		LastValidBlockHeight: t.LastValidBlockHeight,
	}
	return json.Marshal(unsigned)
}

// Sign appends a signature over the message by the given private key. The
// key is borrowed for the duration of this call only; callers zeroize their
// copy once signing is done.
func (t *Transaction) Sign(secret ed25519.PrivateKey) error {
	if len(secret) != ed25519.PrivateKeySize {
		return errors.New("invalid signing key size")
	}
	msg, err := t.Message()
	if err != nil {
		return err
	}
	public, ok := secret.Public().(ed25519.PublicKey)
	if !ok {
		return errors.New("invalid signing key")
	}
	sig := ed25519.Sign(secret, msg)
	t.Signatures = append(t.Signatures, Signature{
		PublicKey: base58.Encode(public),
		Signature: base58.Encode(sig),
	})
	return nil
}

// Signers returns the addresses that have signed the transaction.
func (t *Transaction) Signers() []string {
	signers := make([]string, 0, len(t.Signatures))
	for _, s := range t.Signatures {
		signers = append(signers, s.PublicKey)
	}
	return signers
}

// Verify checks every signature against the message. Used by tests and by
// the submit path as a cheap pre-flight.
func (t *Transaction) Verify() error {
	msg, err := t.Message()
	if err != nil {
		return err
	}
	if len(t.Signatures) == 0 {
		return errors.New("transaction has no signatures")
	}
	for _, s := range t.Signatures {
		pub, err := base58.Decode(s.PublicKey)
		if err != nil || len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid signer %s", s.PublicKey)
		}
		sig, err := base58.Decode(s.Signature)
		if err != nil {
			return fmt.Errorf("invalid signature from %s", s.PublicKey)
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
			return fmt.Errorf("signature verification failed for %s", s.PublicKey)
		}
	}
	return nil
}

// Serialize encodes the signed transaction for submission.
func (t *Transaction) Serialize() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DeserializeTransaction decodes a transaction previously produced by
// Serialize, including unsigned settlements handed back by the privacy
// transfer service.
func DeserializeTransaction(encoded string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction encoding: %w", err)
	}
	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("invalid transaction payload: %w", err)
	}
	return &tx, nil
}
