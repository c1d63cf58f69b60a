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
	"net/url"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/jerry-enebeli/vanta/chain"
	"github.com/jerry-enebeli/vanta/internal/apierror"
	"github.com/jerry-enebeli/vanta/internal/keyvault"
	"github.com/jerry-enebeli/vanta/model"
	"github.com/jerry-enebeli/vanta/shield"
	"github.com/shopspring/decimal"
)

var tracer = otel.Tracer("vanta.links")

// CreateLinkRequest describes a link the sender wants to fund from their
// shielded balance.
type CreateLinkRequest struct {
	Sender   string                 `json:"sender"`
	Symbol   string                 `json:"symbol"`
	Amount   decimal.Decimal        `json:"amount"`
	MetaData map[string]interface{} `json:"meta_data,omitempty"`
}

// CreatedLink is the creation result: the persisted link plus the share URL
// handed to the recipient. The custody secret rides in the URL fragment only,
// so it never reaches a server log. ClaimableAmount is the display amount
// net of the protocol fee, which is what the recipient actually receives.
type CreatedLink struct {
	Link            *model.Link     `json:"link"`
	ShareURL        string          `json:"share_url"`
	ClaimableAmount decimal.Decimal `json:"claimable_amount"`
}

// CreateLink runs the funding state machine: validate, compliance-check the
// sender, generate a custody key, persist the PENDING row, move value into
// custody through the privacy transfer service, then fund the custody account
// with gas from the sender's public balance.
//
// The PENDING row is written before any value moves. A crash after that point
// leaves a discoverable row; a failed value transfer removes it since nothing
// was ever at risk. A failed gas step leaves the row PARTIAL with the funds
// recoverable through RetryGasFunding or RefundLink.
func (l *Vanta) CreateLink(ctx context.Context, req CreateLinkRequest, signer chain.Signer) (*CreatedLink, error) {
	ctx, span := tracer.Start(ctx, "Creating link")
	defer span.End()

	token, ok := model.GetTokenBySymbol(req.Symbol)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unsupported asset %q", req.Symbol), nil)
	}

	if err := l.validateCreation(ctx, req, token, signer); err != nil {
		return nil, err
	}

	// Compliance on the sender, before anything is persisted. Fail-closed.
	verdict := l.gate.Check(ctx, req.Sender)
	if !verdict.Allowed {
		return nil, apierror.NewAPIError(apierror.ErrComplianceBlocked,
			fmt.Sprintf("Sender address blocked: %s", verdict.Reason), verdict)
	}

	custody, err := keyvault.Generate()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to generate custody key", err)
	}
	defer custody.Zero()

	meta := req.MetaData
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["sender"] = req.Sender

	link := &model.Link{
		SecretKey: custody.Encode(),
		Address:   custody.Address(),
		Symbol:    token.Symbol,
		Mint:      token.Mint,
		Decimals:  token.Decimals,
		Amount:    req.Amount,
		Status:    model.StatusPending,
		MetaData:  meta,
	}

	// Write before spend. The row must exist before the transfer is
	// attempted so a crash between the two leaves a recoverable trace.
	link, err = l.datasource.SaveLink(ctx, link)
	if err != nil {
		return nil, err
	}

	if err := l.moveValueToCustody(ctx, req, custody.Address(), signer); err != nil {
		// Nothing reached custody. The row carries no funds, so it is
		// removed rather than left as a dead PENDING entry.
		if removeErr := l.datasource.RemoveLink(ctx, link.LinkID); removeErr != nil {
			logrus.Errorf("failed to remove link %s after transfer failure: %v", link.LinkID, removeErr)
		}
		return nil, err
	}

	gasSignature, err := l.fundGas(ctx, custody.Address(), signer)
	if err != nil {
		// Value is already in custody and must not be rolled back; the
		// link is stranded but recoverable.
		if stErr := l.datasource.UpdateLinkStatus(ctx, link.LinkID, model.StatusPartial); stErr != nil {
			logrus.Errorf("failed to mark link %s partial: %v", link.LinkID, stErr)
		}
		if outErr := l.datasource.UpdateLinkOutcome(ctx, link.LinkID, "", err.Error()); outErr != nil {
			logrus.Errorf("failed to record gas failure on link %s: %v", link.LinkID, outErr)
		}
		link.Status = model.StatusPartial
		l.notifyStrandedLink(link)
		if l.queue != nil {
			if qErr := l.queue.EnqueueRecoveryScan(ctx, link.LinkID); qErr != nil {
				logrus.Warnf("failed to enqueue recovery for link %s: %v", link.LinkID, qErr)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrPartialFunding,
			fmt.Sprintf("Funds are safe in custody but gas funding failed; recover link %s from history", link.LinkID),
			map[string]interface{}{"link_id": link.LinkID, "cause": err.Error()})
	}

	if err := l.datasource.UpdateLinkStatus(ctx, link.LinkID, model.StatusComplete); err != nil {
		logrus.Errorf("failed to mark link %s complete: %v", link.LinkID, err)
	}
	if err := l.datasource.UpdateLinkOutcome(ctx, link.LinkID, gasSignature, ""); err != nil {
		logrus.Errorf("failed to record gas signature on link %s: %v", link.LinkID, err)
	}
	link.Status = model.StatusComplete
	link.TxSignature = gasSignature

	return &CreatedLink{
		Link:            link,
		ShareURL:        l.shareURL(token.Symbol, req.Amount, link.SecretKey),
		ClaimableAmount: l.claimableAmount(ctx, token.Symbol, req.Amount),
	}, nil
}

// claimableAmount nets the protocol fee out of the display amount. A failed
// fee lookup falls back to the gross amount; the funds moved already, so the
// created link is not failed over a display figure.
func (l *Vanta) claimableAmount(ctx context.Context, symbol string, amount decimal.Decimal) decimal.Decimal {
	feeFraction, err := l.shield.GetFeePercentage(ctx, symbol)
	if err != nil {
		logrus.Warnf("fee lookup for %s failed, reporting gross amount: %v", symbol, err)
		return amount
	}
	return amount.Mul(decimal.NewFromInt(1).Sub(feeFraction))
}

// validateCreation enforces the pre-flight checks. Both are rejected before
// any side effect: the asset minimum, and the sender's balance covering the
// amount plus the dynamically sized gas buffer.
func (l *Vanta) validateCreation(ctx context.Context, req CreateLinkRequest, token model.Token, signer chain.Signer) error {
	if req.Sender == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Sender address is required", nil)
	}
	if !req.Amount.IsPositive() {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Amount must be positive", nil)
	}

	minimum, err := l.shield.GetMinimumAmount(ctx, token.Symbol)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Failed to resolve asset minimum", err)
	}
	if req.Amount.LessThan(minimum) {
		return apierror.NewAPIError(apierror.ErrInsufficientBalance,
			fmt.Sprintf("Amount %s is below the %s minimum of %s", req.Amount, token.Symbol, minimum),
			map[string]interface{}{"minimum": minimum.String(), "amount": req.Amount.String()})
	}

	available, err := l.shield.GetBalance(ctx, req.Sender, token.Symbol)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Failed to resolve sender balance", err)
	}

	gasBuffer := model.FromLamports(l.chain.GasBufferLamports(ctx))
	required := req.Amount
	if token.Symbol == model.NativeSymbol {
		required = required.Add(gasBuffer)
	}
	if available.LessThan(required) {
		return apierror.NewAPIError(apierror.ErrInsufficientBalance,
			fmt.Sprintf("Balance %s %s cannot cover %s plus gas buffer", available, token.Symbol, req.Amount),
			map[string]interface{}{"required": required.String(), "available": available.String()})
	}

	// Gas is always paid from the signer's public native balance, whatever
	// the linked asset. Catching an underfunded wallet here keeps the link
	// from stranding PARTIAL at the funding step.
	publicBalance, err := l.chain.GetBalance(ctx, signer.Address())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Failed to read sender gas balance", err)
	}
	if publicBalance < l.chain.GasBufferLamports(ctx) {
		return apierror.NewAPIError(apierror.ErrInsufficientBalance,
			"Sender's public balance cannot cover the gas buffer",
			map[string]interface{}{"required": l.chain.GasBufferLamports(ctx), "available": publicBalance})
	}
	return nil
}

// moveValueToCustody calls the privacy transfer service and, when handed an
// unsigned settlement, signs it with the sender's wallet and submits it.
func (l *Vanta) moveValueToCustody(ctx context.Context, req CreateLinkRequest, custodyAddress string, signer chain.Signer) error {
	outcome, err := l.shield.Transfer(ctx, shield.TransferRequest{
		Sender:    req.Sender,
		Recipient: custodyAddress,
		Amount:    req.Amount,
		Token:     req.Symbol,
		Mode:      "external",
	})
	if err != nil {
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Privacy transfer failed", err)
	}

	switch result := outcome.(type) {
	case shield.SignedAndSubmitted:
		logrus.WithField("tx", result.TxID).Info("privacy transfer executed")
		return nil
	case shield.NeedsSignature:
		return l.signAndSettle(ctx, result.UnsignedTx, signer)
	default:
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Unknown transfer outcome", nil)
	}
}

func (l *Vanta) signAndSettle(ctx context.Context, unsigned []byte, signer chain.Signer) error {
	tx, err := chain.DeserializeTransaction(string(unsigned))
	if err != nil {
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Malformed unsigned settlement", err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Failed to sign settlement", err)
	}
	signature, err := l.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrTransferFailed, "Failed to submit settlement", err)
	}
	return l.confirmOrResolve(ctx, signature)
}

// confirmOrResolve confirms a submitted transaction, resolving an unknown
// outcome by querying the ledger before reporting either way.
func (l *Vanta) confirmOrResolve(ctx context.Context, signature string) error {
	err := l.chain.ConfirmTransaction(ctx, signature)
	if err == nil {
		return nil
	}
	if errors.Is(err, chain.ErrUnconfirmed) {
		landed, queryErr := l.chain.TransactionSucceeded(ctx, signature)
		if queryErr == nil && landed {
			return nil
		}
		return apierror.NewAPIError(apierror.ErrLedgerUnconfirmed,
			fmt.Sprintf("Transaction %s submitted but outcome unknown", signature), err)
	}
	return apierror.NewAPIError(apierror.ErrTransferFailed, "Settlement failed on ledger", err)
}

// fundGas moves the gas buffer from the sender's public balance to the
// custody account, sized for the recipient's later claim.
func (l *Vanta) fundGas(ctx context.Context, custodyAddress string, signer chain.Signer) (string, error) {
	recent, err := l.chain.LatestBlockhash(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch blockhash for gas funding")
	}

	tx := chain.NewTransaction(signer.Address(), recent).
		AddTransfer(signer.Address(), custodyAddress, l.chain.GasBufferLamports(ctx))
	if err := signer.SignTransaction(tx); err != nil {
		return "", errors.Wrap(err, "failed to sign gas funding")
	}

	signature, err := l.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		return "", errors.Wrap(err, "failed to submit gas funding")
	}
	if err := l.confirmOrResolve(ctx, signature); err != nil {
		return "", err
	}
	return signature, nil
}

func (l *Vanta) shareURL(symbol string, amount decimal.Decimal, encodedSecret string) string {
	return fmt.Sprintf("%s/claim?t=%s&a=%s#%s",
		l.shareBase, url.QueryEscape(symbol), url.QueryEscape(amount.String()), encodedSecret)
}
