package vanta

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/jerry-enebeli/vanta/chain"
	"github.com/jerry-enebeli/vanta/compliance"
	"github.com/jerry-enebeli/vanta/model"
	"github.com/jerry-enebeli/vanta/shield"
)

type mockDataSource struct {
	mock.Mock
}

func (m *mockDataSource) SaveLink(ctx context.Context, link *model.Link) (*model.Link, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		if args.Error(1) != nil {
			return nil, args.Error(1)
		}
		// Echo the stored row back, the way the real store does.
		if link.LinkID == "" {
			link.LinkID = model.GenerateUUIDWithSuffix("lnk")
		}
		return link, nil
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

func (m *mockDataSource) GetLink(ctx context.Context, linkID string) (*model.Link, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

func (m *mockDataSource) GetLinkByAddress(ctx context.Context, address string) (*model.Link, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

func (m *mockDataSource) GetAllLinks(ctx context.Context, limit, offset int) ([]*model.Link, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Link), args.Error(1)
}

func (m *mockDataSource) UpdateLinkStatus(ctx context.Context, linkID, status string) error {
	return m.Called(ctx, linkID, status).Error(0)
}

func (m *mockDataSource) UpdateLinkOutcome(ctx context.Context, linkID, txSignature, lastError string) error {
	return m.Called(ctx, linkID, txSignature, lastError).Error(0)
}

func (m *mockDataSource) RemoveLink(ctx context.Context, linkID string) error {
	return m.Called(ctx, linkID).Error(0)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) Check(ctx context.Context, address string) *compliance.Verdict {
	return m.Called(ctx, address).Get(0).(*compliance.Verdict)
}

type mockShield struct {
	mock.Mock
}

func (m *mockShield) Transfer(ctx context.Context, req shield.TransferRequest) (shield.TransferOutcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shield.TransferOutcome), args.Error(1)
}

func (m *mockShield) GetMinimumAmount(ctx context.Context, token string) (decimal.Decimal, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockShield) GetFeePercentage(ctx context.Context, token string) (decimal.Decimal, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockShield) GetBalance(ctx context.Context, owner, token string) (decimal.Decimal, error) {
	args := m.Called(ctx, owner, token)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type mockChain struct {
	mock.Mock

	// submitted records every transaction handed to SubmitTransaction so
	// tests can assert on signers and fee payers.
	submitted []*chain.Transaction
}

func (m *mockChain) GetBalance(ctx context.Context, address string) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockChain) LatestBlockhash(ctx context.Context) (chain.Blockhash, error) {
	args := m.Called(ctx)
	return args.Get(0).(chain.Blockhash), args.Error(1)
}

func (m *mockChain) SubmitTransaction(ctx context.Context, tx *chain.Transaction) (string, error) {
	m.submitted = append(m.submitted, tx)
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func (m *mockChain) ConfirmTransaction(ctx context.Context, signature string) error {
	return m.Called(ctx, signature).Error(0)
}

func (m *mockChain) TransactionSucceeded(ctx context.Context, signature string) (bool, error) {
	args := m.Called(ctx, signature)
	return args.Bool(0), args.Error(1)
}

func (m *mockChain) AccountExists(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *mockChain) GetTokenBalance(ctx context.Context, tokenAccount string) (uint64, bool, error) {
	args := m.Called(ctx, tokenAccount)
	return args.Get(0).(uint64), args.Bool(1), args.Error(2)
}

func (m *mockChain) GasBufferLamports(ctx context.Context) uint64 {
	return m.Called(ctx).Get(0).(uint64)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) EnqueueRecoveryScan(ctx context.Context, linkID string) error {
	return m.Called(ctx, linkID).Error(0)
}

type testDeps struct {
	ds     *mockDataSource
	gate   *mockGate
	shield *mockShield
	chain  *mockChain
}

func newTestVanta() (*Vanta, *testDeps) {
	deps := &testDeps{
		ds:     &mockDataSource{},
		gate:   &mockGate{},
		shield: &mockShield{},
		chain:  &mockChain{},
	}
	service := &Vanta{
		datasource: deps.ds,
		gate:       deps.gate,
		shield:     deps.shield,
		chain:      deps.chain,
		shareBase:  "https://vanta.cash",
	}
	return service, deps
}

func allowedVerdict() *compliance.Verdict {
	return &compliance.Verdict{Allowed: true, RiskScore: 1, RiskLevel: "LOW"}
}

func blockedVerdict(score float64, level string) *compliance.Verdict {
	return &compliance.Verdict{Allowed: false, RiskScore: score, RiskLevel: level, Reason: "address is high risk"}
}
