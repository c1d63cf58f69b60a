package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  = "PENDING"
	StatusComplete = "COMPLETE"
	StatusPartial  = "PARTIAL"
	StatusClaimed  = "CLAIMED"
	StatusRefunded = "REFUNDED"
	StatusInvalid  = "INVALID"
)

// Link is the durable record of a disposable transfer link. The custody
// secret is stored base58-encoded; it is the only copy able to recover a
// PARTIAL or unclaimed link, which is why the ledger supports export/import.
type Link struct {
	ID          int64                  `json:"-"`
	LinkID      string                 `json:"id"`
	SecretKey   string                 `json:"secret_key"`
	Address     string                 `json:"address"`
	Symbol      string                 `json:"symbol"`
	Mint        string                 `json:"mint"`
	Decimals    int                    `json:"decimals"`
	Amount      decimal.Decimal        `json:"amount"`
	Status      string                 `json:"status"`
	TxSignature string                 `json:"tx_signature,omitempty"`
	LastError   string                 `json:"last_error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	MetaData    map[string]interface{} `json:"meta_data,omitempty"`

	// Display-only fields filled by the reconciliation pass. Never persisted.
	Active         bool   `json:"active,omitempty"`
	CustodyBalance uint64 `json:"custody_balance,omitempty"`
}

func (link *Link) ToJSON() ([]byte, error) {
	return json.Marshal(link)
}

// IsNative reports whether the link wraps the chain's native asset rather
// than a token.
func (link *Link) IsNative() bool {
	return link.Symbol == NativeSymbol
}

// Terminal reports whether the link can no longer move funds.
func (link *Link) Terminal() bool {
	return link.Status == StatusClaimed || link.Status == StatusRefunded || link.Status == StatusInvalid
}

// CanTransitionTo enforces the forward-only lifecycle. A link never re-enters
// PENDING, and terminal states are final except PARTIAL -> CLAIMED (a link
// that was claimed despite missing gas) and COMPLETE -> REFUNDED (sender
// cancellation).
func (link *Link) CanTransitionTo(status string) bool {
	switch link.Status {
	case StatusPending:
		return status == StatusComplete || status == StatusPartial || status == StatusInvalid
	case StatusComplete:
		return status == StatusClaimed || status == StatusRefunded
	case StatusPartial:
		return status == StatusRefunded || status == StatusClaimed
	default:
		return false
	}
}
