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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/vanta/chain"
	"github.com/jerry-enebeli/vanta/internal/apierror"
	"github.com/jerry-enebeli/vanta/internal/keyvault"
	"github.com/jerry-enebeli/vanta/model"
)

// ClaimRequest redeems a link. The secret comes from the share URL fragment;
// the symbol from its query string. The recipient signs nothing and pays no
// gas.
type ClaimRequest struct {
	Secret    string `json:"secret"`
	Recipient string `json:"recipient"`
	Symbol    string `json:"symbol"`
}

// ClaimResult reports a settled claim.
type ClaimResult struct {
	TxSignature    string `json:"tx_signature"`
	LamportsMoved  uint64 `json:"lamports_moved,omitempty"`
	TokenUnitMoved uint64 `json:"token_units_moved,omitempty"`
}

// ClaimLink runs the gasless redemption state machine: decode the custody
// key, verify the custody account can still pay a claim fee, compliance-check
// the recipient, then build and submit a settlement signed solely by the
// custody key, with the custody key as fee payer.
//
// Everything before submission is non-destructive. After submission the
// actual outcome is resolved against the ledger before anything is reported.
func (l *Vanta) ClaimLink(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	ctx, span := tracer.Start(ctx, "Claiming link")
	defer span.End()

	custody, err := keyvault.Decode(req.Secret)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrMalformedKey, "Claim secret is not a valid custody key", err)
	}
	defer custody.Zero()

	if req.Recipient == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Recipient address is required", nil)
	}

	symbol := req.Symbol
	if symbol == "" {
		symbol = model.NativeSymbol
	}
	token, ok := model.GetTokenBySymbol(symbol)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unsupported asset %q", symbol), nil)
	}

	custodyAddress := custody.Address()
	gasBalance, err := l.chain.GetBalance(ctx, custodyAddress)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read custody balance", err)
	}
	if gasBalance < chain.FeeBufferLamports {
		return nil, apierror.NewAPIError(apierror.ErrLinkExhausted,
			"Link has already been claimed or its custody account is drained",
			map[string]interface{}{"custody_balance": gasBalance})
	}

	// Compliance on the recipient, not the sender. The sender passed at
	// creation time; the claimer is a different party. Full risk detail is
	// surfaced so the caller can show it, not a bare boolean.
	verdict := l.gate.Check(ctx, req.Recipient)
	if !verdict.Allowed {
		return nil, apierror.NewAPIError(apierror.ErrComplianceBlocked,
			fmt.Sprintf("Recipient address blocked: %s", verdict.Reason), verdict)
	}

	recent, err := l.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch blockhash", err)
	}

	// The custody key is the fee payer and the only signer.
	tx := chain.NewTransaction(custodyAddress, recent)
	result := &ClaimResult{}

	if token.Symbol == model.NativeSymbol {
		moved := gasBalance - chain.FeeBufferLamports
		tx.AddTransfer(custodyAddress, req.Recipient, moved)
		result.LamportsMoved = moved
	} else {
		custodyAccount := chain.TokenAccountAddress(custodyAddress, token.Mint)
		tokenBalance, exists, err := l.chain.GetTokenBalance(ctx, custodyAccount)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read custody token balance", err)
		}
		if !exists || tokenBalance == 0 {
			return nil, apierror.NewAPIError(apierror.ErrAlreadyClaimed, "Link token balance is empty", nil)
		}

		recipientAccount := chain.TokenAccountAddress(req.Recipient, token.Mint)
		hasAccount, err := l.chain.AccountExists(ctx, recipientAccount)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check recipient account", err)
		}
		if !hasAccount {
			// Custody pays the receiving account's rent; the claim
			// stays gasless for the recipient.
			tx.AddCreateTokenAccount(custodyAddress, req.Recipient, token.Mint)
		}
		tx.AddTokenTransfer(custodyAccount, recipientAccount, custodyAddress, tokenBalance)
		result.TokenUnitMoved = tokenBalance
	}

	if err := tx.Sign(custody.Signer()); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sign settlement", err)
	}

	signature, err := l.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrTransferFailed, "Failed to submit claim", err)
	}
	if err := l.confirmOrResolve(ctx, signature); err != nil {
		return nil, err
	}
	result.TxSignature = signature

	l.markClaimed(ctx, custodyAddress)
	return result, nil
}

// markClaimed advances the local ledger row when one exists. Best-effort: the
// claimer usually does not hold the sender's ledger, so absence is normal and
// the claim outcome does not depend on this write.
func (l *Vanta) markClaimed(ctx context.Context, custodyAddress string) {
	link, err := l.datasource.GetLinkByAddress(ctx, custodyAddress)
	if err != nil {
		return
	}
	if !link.CanTransitionTo(model.StatusClaimed) {
		return
	}
	if err := l.datasource.UpdateLinkStatus(ctx, link.LinkID, model.StatusClaimed); err != nil {
		logrus.Warnf("failed to mark link %s claimed: %v", link.LinkID, err)
	}
}
