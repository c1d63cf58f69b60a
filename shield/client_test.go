package shield

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jerry-enebeli/vanta/config"
)

const shieldURL = "https://shield.example.com/api/v1"

func newTestClient(allowStale bool) *Client {
	return NewClient(config.ShieldConfig{
		Url:            shieldURL,
		ApiKey:         "test-key",
		Timeout:        5,
		AllowStaleFees: &allowStale,
	}, nil)
}

func TestTransferSignedAndSubmitted(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", shieldURL+"/transfer",
		httpmock.NewStringResponder(200, `{"success": true, "tx_signature": "5KtP…sig"}`))

	outcome, err := newTestClient(true).Transfer(context.Background(), TransferRequest{
		Sender:    "sender-addr",
		Recipient: "custody-addr",
		Amount:    decimal.RequireFromString("0.5"),
		Token:     "SOL",
	})
	assert.NoError(t, err)
	signed, ok := outcome.(SignedAndSubmitted)
	assert.True(t, ok)
	assert.Equal(t, "5KtP…sig", signed.TxID)
}

func TestTransferNeedsSignature(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	unsigned := base64.StdEncoding.EncodeToString([]byte("unsigned-settlement"))
	httpmock.RegisterResponder("POST", shieldURL+"/transfer",
		httpmock.NewStringResponder(200, `{"unsigned_tx_base64": "`+unsigned+`"}`))

	outcome, err := newTestClient(true).Transfer(context.Background(), TransferRequest{
		Sender:    "sender-addr",
		Recipient: "custody-addr",
		Amount:    decimal.RequireFromString("1"),
		Token:     "USDC",
	})
	assert.NoError(t, err)
	needs, ok := outcome.(NeedsSignature)
	assert.True(t, ok)
	assert.Equal(t, []byte("unsigned-settlement"), needs.UnsignedTx)
}

func TestTransferFailure(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", shieldURL+"/transfer",
		httpmock.NewStringResponder(200, `{"success": false, "error": "insufficient shielded balance"}`))

	outcome, err := newTestClient(true).Transfer(context.Background(), TransferRequest{Token: "SOL"})
	assert.Nil(t, outcome)
	assert.ErrorContains(t, err, "insufficient shielded balance")
}

func TestTransferNon2xx(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", shieldURL+"/transfer",
		httpmock.NewStringResponder(502, `{"error": "relayer offline"}`))

	_, err := newTestClient(true).Transfer(context.Background(), TransferRequest{Token: "SOL"})
	assert.ErrorContains(t, err, "relayer offline")
}

func TestGetMinimumAmountLive(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", shieldURL+"/tokens/SOL/fees",
		httpmock.NewStringResponder(200, `{"minimum_amount": "0.2", "fee_percentage": "0.005"}`))

	min, err := newTestClient(false).GetMinimumAmount(context.Background(), "SOL")
	assert.NoError(t, err)
	assert.True(t, min.Equal(decimal.RequireFromString("0.2")))
}

func TestFeeFallbacksWhenAllowed(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", shieldURL+"/tokens/SOL/fees",
		httpmock.NewStringResponder(500, `{}`))
	httpmock.RegisterResponder("GET", shieldURL+"/tokens/USDC/fees",
		httpmock.NewStringResponder(500, `{}`))

	c := newTestClient(true)

	min, err := c.GetMinimumAmount(context.Background(), "SOL")
	assert.NoError(t, err)
	assert.True(t, min.Equal(decimal.RequireFromString("0.1")))

	min, err = c.GetMinimumAmount(context.Background(), "USDC")
	assert.NoError(t, err)
	assert.True(t, min.IsZero())

	fee, err := c.GetFeePercentage(context.Background(), "SOL")
	assert.NoError(t, err)
	assert.True(t, fee.Equal(decimal.RequireFromString("0.01")))
}

func TestFeeFailureWhenStaleDisallowed(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", shieldURL+"/tokens/SOL/fees",
		httpmock.NewStringResponder(500, `{}`))

	c := newTestClient(false)
	_, err := c.GetMinimumAmount(context.Background(), "SOL")
	assert.Error(t, err)
	_, err = c.GetFeePercentage(context.Background(), "SOL")
	assert.Error(t, err)
}

func TestGetBalance(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", shieldURL+"/balance",
		httpmock.NewStringResponder(200, `{"balance": "1.25"}`))

	bal, err := newTestClient(true).GetBalance(context.Background(), "owner-addr", "SOL")
	assert.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("1.25")))
}
