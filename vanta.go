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

package vanta

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jerry-enebeli/vanta/chain"
	"github.com/jerry-enebeli/vanta/compliance"
	"github.com/jerry-enebeli/vanta/config"
	"github.com/jerry-enebeli/vanta/database"
	"github.com/jerry-enebeli/vanta/internal/cache"
	"github.com/jerry-enebeli/vanta/shield"
)

// riskGate is the compliance collaborator. Checks are live, fail-closed, and
// never cached.
type riskGate interface {
	Check(ctx context.Context, address string) *compliance.Verdict
}

// transferService is the privacy transfer collaborator. Amounts at this
// boundary are human units, not smallest-unit integers.
type transferService interface {
	Transfer(ctx context.Context, req shield.TransferRequest) (shield.TransferOutcome, error)
	GetMinimumAmount(ctx context.Context, token string) (decimal.Decimal, error)
	GetFeePercentage(ctx context.Context, token string) (decimal.Decimal, error)
	GetBalance(ctx context.Context, owner, token string) (decimal.Decimal, error)
}

// ledgerGateway is the public ledger collaborator.
type ledgerGateway interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
	LatestBlockhash(ctx context.Context) (chain.Blockhash, error)
	SubmitTransaction(ctx context.Context, tx *chain.Transaction) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
	TransactionSucceeded(ctx context.Context, signature string) (bool, error)
	AccountExists(ctx context.Context, address string) (bool, error)
	GetTokenBalance(ctx context.Context, tokenAccount string) (uint64, bool, error)
	GasBufferLamports(ctx context.Context) uint64
}

// taskQueue hands link maintenance work to the background workers.
type taskQueue interface {
	EnqueueRecoveryScan(ctx context.Context, linkID string) error
}

// Vanta represents the main struct for the Vanta application.
type Vanta struct {
	datasource database.IDataSource
	gate       riskGate
	shield     transferService
	chain      ledgerGateway
	queue      taskQueue
	shareBase  string
}

// NewVanta initializes a new instance of Vanta with the provided link ledger
// datasource. It fetches the configuration and wires the compliance gate,
// the privacy transfer client, the ledger gateway, and the task queue.
func NewVanta(db database.IDataSource) (*Vanta, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	sharedCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}

	newVanta := &Vanta{
		datasource: db,
		gate:       compliance.NewGate(compliance.NewRangeProvider(configuration.Compliance)),
		shield:     shield.NewClient(configuration.Shield, sharedCache),
		chain:      chain.NewClient(configuration.Chain.RpcEndpoint, sharedCache),
		shareBase:  configuration.Chain.ShareOrigin,
	}
	// A typed-nil *Queue must not land in the interface field.
	if queue := NewQueue(configuration); queue != nil {
		newVanta.queue = queue
	}
	return newVanta, nil
}
