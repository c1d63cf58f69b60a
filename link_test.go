package vanta

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/vanta/chain"
	"github.com/jerry-enebeli/vanta/internal/apierror"
	"github.com/jerry-enebeli/vanta/internal/keyvault"
	"github.com/jerry-enebeli/vanta/model"
	"github.com/jerry-enebeli/vanta/shield"
)

func testSigner(t *testing.T) *chain.FileSigner {
	t.Helper()
	key, err := keyvault.Generate()
	require.NoError(t, err)
	signer, err := chain.NewSignerFromEncoded(key.Encode())
	require.NoError(t, err)
	return signer
}

func nativeRequest(amount string) CreateLinkRequest {
	return CreateLinkRequest{
		Sender: "sender-shielded-owner",
		Symbol: "SOL",
		Amount: decimal.RequireFromString(amount),
	}
}

const testGasBuffer = uint64(2_539_280) // rent 2039280 + 500000 fee pad

func TestCreateLinkComplete(t *testing.T) {
	service, deps := newTestVanta()
	signer := testSigner(t)
	req := nativeRequest("0.5")

	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)
	deps.shield.On("GetBalance", mock.Anything, req.Sender, "SOL").Return(decimal.RequireFromString("1.0"), nil)
	deps.shield.On("GetFeePercentage", mock.Anything, "SOL").Return(decimal.RequireFromString("0.01"), nil)
	deps.chain.On("GasBufferLamports", mock.Anything).Return(testGasBuffer)
	deps.chain.On("GetBalance", mock.Anything, signer.Address()).Return(uint64(5_000_000), nil)
	deps.gate.On("Check", mock.Anything, req.Sender).Return(allowedVerdict())
	deps.ds.On("SaveLink", mock.Anything, mock.Anything).Return(nil, nil)
	deps.shield.On("Transfer", mock.Anything, mock.Anything).Return(shield.SignedAndSubmitted{TxID: "shield-tx"}, nil)
	deps.chain.On("LatestBlockhash", mock.Anything).Return(chain.Blockhash{Blockhash: "bh", LastValidBlockHeight: 10}, nil)
	deps.chain.On("SubmitTransaction", mock.Anything, mock.Anything).Return("gas-sig", nil)
	deps.chain.On("ConfirmTransaction", mock.Anything, "gas-sig").Return(nil)
	deps.ds.On("UpdateLinkStatus", mock.Anything, mock.Anything, model.StatusComplete).Return(nil)
	deps.ds.On("UpdateLinkOutcome", mock.Anything, mock.Anything, "gas-sig", "").Return(nil)

	created, err := service.CreateLink(context.Background(), req, signer)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, created.Link.Status)
	assert.Equal(t, "gas-sig", created.Link.TxSignature)

	// Recipient sees the amount net of the 1% protocol fee.
	assert.True(t, created.ClaimableAmount.Equal(decimal.RequireFromString("0.495")),
		"claimable %s", created.ClaimableAmount)

	// The secret rides in the fragment, never the query string.
	assert.Contains(t, created.ShareURL, "/claim?t=SOL&a=0.5#")
	assert.Equal(t, created.Link.SecretKey, created.ShareURL[strings.Index(created.ShareURL, "#")+1:])
	deps.ds.AssertExpectations(t)
}

func TestCreateLinkRejectsBelowMinimum(t *testing.T) {
	// Scenario: asking for 0.05 of an asset whose minimum is 0.1.
	service, deps := newTestVanta()
	req := nativeRequest("0.05")

	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)

	_, err := service.CreateLink(context.Background(), req, testSigner(t))
	require.Error(t, err)
	assert.Equal(t, apierror.ErrInsufficientBalance, apierror.CodeOf(err))
	deps.ds.AssertNotCalled(t, "SaveLink", mock.Anything, mock.Anything)
	deps.shield.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestCreateLinkRejectsInsufficientBalance(t *testing.T) {
	// Balance 1.0, amount 0.999, gas buffer 0.003: required 1.002.
	service, deps := newTestVanta()
	req := nativeRequest("0.999")

	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)
	deps.shield.On("GetBalance", mock.Anything, req.Sender, "SOL").Return(decimal.RequireFromString("1.0"), nil)
	deps.chain.On("GasBufferLamports", mock.Anything).Return(uint64(3_000_000))

	_, err := service.CreateLink(context.Background(), req, testSigner(t))
	require.Error(t, err)

	var apiErr apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.ErrInsufficientBalance, apiErr.Code)
	detail := apiErr.Details.(map[string]interface{})
	assert.Equal(t, "1.002", detail["required"])
	assert.Equal(t, "1", detail["available"])
	deps.ds.AssertNotCalled(t, "SaveLink", mock.Anything, mock.Anything)
}

func TestCreateLinkComplianceBlockedPersistsNothing(t *testing.T) {
	// Scenario: sender scores 8, creation must stop before any persistence.
	service, deps := newTestVanta()
	req := nativeRequest("0.5")

	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)
	deps.shield.On("GetBalance", mock.Anything, req.Sender, "SOL").Return(decimal.RequireFromString("1.0"), nil)
	deps.chain.On("GasBufferLamports", mock.Anything).Return(testGasBuffer)
	deps.chain.On("GetBalance", mock.Anything, mock.Anything).Return(uint64(5_000_000), nil)
	deps.gate.On("Check", mock.Anything, req.Sender).Return(blockedVerdict(8, "HIGH"))

	_, err := service.CreateLink(context.Background(), req, testSigner(t))
	require.Error(t, err)
	assert.Equal(t, apierror.ErrComplianceBlocked, apierror.CodeOf(err))
	deps.ds.AssertNotCalled(t, "SaveLink", mock.Anything, mock.Anything)
	deps.shield.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestCreateLinkWritesRowBeforeTransfer(t *testing.T) {
	service, deps := newTestVanta()
	req := nativeRequest("0.5")

	rowSaved := false
	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)
	deps.shield.On("GetBalance", mock.Anything, req.Sender, "SOL").Return(decimal.RequireFromString("1.0"), nil)
	deps.chain.On("GasBufferLamports", mock.Anything).Return(testGasBuffer)
	deps.chain.On("GetBalance", mock.Anything, mock.Anything).Return(uint64(5_000_000), nil)
	deps.gate.On("Check", mock.Anything, req.Sender).Return(allowedVerdict())
	deps.ds.On("SaveLink", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		rowSaved = true
		link := args.Get(1).(*model.Link)
		assert.Equal(t, model.StatusPending, link.Status)
		assert.NotEmpty(t, link.SecretKey)
	}).Return(nil, nil)
	deps.shield.On("Transfer", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		assert.True(t, rowSaved, "transfer attempted before the PENDING row was persisted")
	}).Return(nil, fmt.Errorf("shield unreachable"))
	deps.ds.On("RemoveLink", mock.Anything, mock.Anything).Return(nil)

	_, err := service.CreateLink(context.Background(), req, testSigner(t))
	require.Error(t, err)
	assert.Equal(t, apierror.ErrTransferFailed, apierror.CodeOf(err))
	deps.ds.AssertCalled(t, "RemoveLink", mock.Anything, mock.Anything)
}

func TestCreateLinkGasFailureLeavesPartial(t *testing.T) {
	service, deps := newTestVanta()
	queue := &mockQueue{}
	service.queue = queue
	signer := testSigner(t)
	req := nativeRequest("0.5")

	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)
	deps.shield.On("GetBalance", mock.Anything, req.Sender, "SOL").Return(decimal.RequireFromString("1.0"), nil)
	deps.chain.On("GasBufferLamports", mock.Anything).Return(testGasBuffer)
	deps.chain.On("GetBalance", mock.Anything, signer.Address()).Return(uint64(5_000_000), nil)
	deps.gate.On("Check", mock.Anything, req.Sender).Return(allowedVerdict())
	deps.ds.On("SaveLink", mock.Anything, mock.Anything).Return(nil, nil)
	deps.shield.On("Transfer", mock.Anything, mock.Anything).Return(shield.SignedAndSubmitted{TxID: "shield-tx"}, nil)
	deps.chain.On("LatestBlockhash", mock.Anything).Return(chain.Blockhash{}, fmt.Errorf("network drop"))
	deps.ds.On("UpdateLinkStatus", mock.Anything, mock.Anything, model.StatusPartial).Return(nil)
	deps.ds.On("UpdateLinkOutcome", mock.Anything, mock.Anything, "", mock.Anything).Return(nil)
	queue.On("EnqueueRecoveryScan", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	_, err := service.CreateLink(context.Background(), req, signer)
	require.Error(t, err)
	assert.Equal(t, apierror.ErrPartialFunding, apierror.CodeOf(err))

	// Funds are in custody: the row must survive, never be removed, and the
	// stranded link is handed to the recovery workers.
	deps.ds.AssertCalled(t, "UpdateLinkStatus", mock.Anything, mock.Anything, model.StatusPartial)
	deps.ds.AssertNotCalled(t, "RemoveLink", mock.Anything, mock.Anything)
	queue.AssertExpectations(t)
}

func TestCreateLinkRejectsUnderfundedGasWallet(t *testing.T) {
	// Shielded balance covers the amount, but the public wallet that pays
	// gas is dry. The link must be rejected instead of stranding PARTIAL.
	service, deps := newTestVanta()
	signer := testSigner(t)
	req := nativeRequest("0.5")

	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)
	deps.shield.On("GetBalance", mock.Anything, req.Sender, "SOL").Return(decimal.RequireFromString("1.0"), nil)
	deps.chain.On("GasBufferLamports", mock.Anything).Return(testGasBuffer)
	deps.chain.On("GetBalance", mock.Anything, signer.Address()).Return(testGasBuffer-1, nil)

	_, err := service.CreateLink(context.Background(), req, signer)
	require.Error(t, err)
	assert.Equal(t, apierror.ErrInsufficientBalance, apierror.CodeOf(err))
	deps.ds.AssertNotCalled(t, "SaveLink", mock.Anything, mock.Anything)
	deps.shield.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestCreateLinkSignsUnsignedSettlement(t *testing.T) {
	service, deps := newTestVanta()
	signer := testSigner(t)
	req := nativeRequest("0.5")

	unsigned := chain.NewTransaction(signer.Address(), chain.Blockhash{Blockhash: "bh", LastValidBlockHeight: 9}).
		AddTransfer(signer.Address(), "custody-addr", 500_000_000)
	encoded, err := unsigned.Serialize()
	require.NoError(t, err)

	deps.shield.On("GetMinimumAmount", mock.Anything, "SOL").Return(decimal.RequireFromString("0.1"), nil)
	deps.shield.On("GetBalance", mock.Anything, req.Sender, "SOL").Return(decimal.RequireFromString("1.0"), nil)
	deps.shield.On("GetFeePercentage", mock.Anything, "SOL").Return(decimal.RequireFromString("0.01"), nil)
	deps.chain.On("GasBufferLamports", mock.Anything).Return(testGasBuffer)
	deps.chain.On("GetBalance", mock.Anything, signer.Address()).Return(uint64(5_000_000), nil)
	deps.gate.On("Check", mock.Anything, req.Sender).Return(allowedVerdict())
	deps.ds.On("SaveLink", mock.Anything, mock.Anything).Return(nil, nil)
	deps.shield.On("Transfer", mock.Anything, mock.Anything).Return(shield.NeedsSignature{UnsignedTx: []byte(encoded)}, nil)
	deps.chain.On("LatestBlockhash", mock.Anything).Return(chain.Blockhash{Blockhash: "bh2", LastValidBlockHeight: 11}, nil)
	deps.chain.On("SubmitTransaction", mock.Anything, mock.Anything).Return("sig", nil)
	deps.chain.On("ConfirmTransaction", mock.Anything, "sig").Return(nil)
	deps.ds.On("UpdateLinkStatus", mock.Anything, mock.Anything, model.StatusComplete).Return(nil)
	deps.ds.On("UpdateLinkOutcome", mock.Anything, mock.Anything, "sig", "").Return(nil)

	created, err := service.CreateLink(context.Background(), req, signer)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, created.Link.Status)

	// First submission is the sender-signed settlement.
	require.NotEmpty(t, deps.chain.submitted)
	assert.Contains(t, deps.chain.submitted[0].Signers(), signer.Address())
}

func TestCreateLinkUnsupportedAsset(t *testing.T) {
	service, _ := newTestVanta()
	req := CreateLinkRequest{Sender: "s", Symbol: "DOGE", Amount: decimal.RequireFromString("1")}

	_, err := service.CreateLink(context.Background(), req, testSigner(t))
	require.Error(t, err)
	assert.Equal(t, apierror.ErrInvalidInput, apierror.CodeOf(err))
}
