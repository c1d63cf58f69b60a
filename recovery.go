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
	"github.com/jerry-enebeli/vanta/config"
	"github.com/jerry-enebeli/vanta/internal/apierror"
	"github.com/jerry-enebeli/vanta/internal/keyvault"
	"github.com/jerry-enebeli/vanta/internal/notification"
	"github.com/jerry-enebeli/vanta/model"
)

// RetryGasFunding re-attempts the gas step for a PARTIAL link. The custody
// balance is re-verified before trusting the locally recorded status: a
// PARTIAL row whose custody account turns out empty was drained elsewhere
// and must not be funded again.
func (l *Vanta) RetryGasFunding(ctx context.Context, linkID string, signer chain.Signer) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "Retrying gas funding")
	defer span.End()

	link, err := l.datasource.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.Status != model.StatusPartial {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Link %s is %s, not awaiting gas funding", linkID, link.Status), nil)
	}

	funded, err := l.custodyHoldsFunds(ctx, link)
	if err != nil {
		return nil, err
	}
	if !funded {
		return nil, apierror.NewAPIError(apierror.ErrAlreadyClaimed,
			"Custody account no longer holds the link's funds", nil)
	}

	gasSignature, err := l.fundGas(ctx, link.Address, signer)
	if err != nil {
		if outErr := l.datasource.UpdateLinkOutcome(ctx, link.LinkID, "", err.Error()); outErr != nil {
			logrus.Errorf("failed to record retry failure on link %s: %v", link.LinkID, outErr)
		}
		return nil, apierror.NewAPIError(apierror.ErrPartialFunding,
			fmt.Sprintf("Gas funding failed again; funds remain safe in custody for link %s", link.LinkID),
			map[string]interface{}{"link_id": link.LinkID, "cause": err.Error()})
	}

	if err := l.datasource.UpdateLinkStatus(ctx, link.LinkID, model.StatusComplete); err != nil {
		return nil, err
	}
	if err := l.datasource.UpdateLinkOutcome(ctx, link.LinkID, gasSignature, ""); err != nil {
		logrus.Errorf("failed to record gas signature on link %s: %v", link.LinkID, err)
	}
	link.Status = model.StatusComplete
	link.TxSignature = gasSignature
	return link, nil
}

// RefundLink drains a link's custody account back to the destination address
// (normally the original sender): token balance first, then remaining native
// balance minus the fee buffer, the claim path reversed. The custody key
// signs and pays. Refunding a link that already moved its funds yields
// AlreadyClaimed, never a second transfer.
func (l *Vanta) RefundLink(ctx context.Context, linkID, destination string) (*model.Link, error) {
	ctx, span := tracer.Start(ctx, "Refunding link")
	defer span.End()

	link, err := l.datasource.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.Status == model.StatusRefunded || link.Status == model.StatusClaimed {
		return nil, apierror.NewAPIError(apierror.ErrAlreadyClaimed,
			fmt.Sprintf("Link %s is already %s", linkID, link.Status), nil)
	}
	if destination == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Refund destination is required", nil)
	}
	if !link.CanTransitionTo(model.StatusRefunded) {
		return nil, apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Link %s cannot be refunded from %s", linkID, link.Status), nil)
	}

	custody, err := keyvault.Decode(link.SecretKey)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrMalformedKey, "Stored custody key is corrupt", err)
	}
	defer custody.Zero()
	custodyAddress := custody.Address()

	recent, err := l.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch blockhash", err)
	}
	tx := chain.NewTransaction(custodyAddress, recent)

	if !link.IsNative() {
		custodyAccount := chain.TokenAccountAddress(custodyAddress, link.Mint)
		tokenBalance, exists, err := l.chain.GetTokenBalance(ctx, custodyAccount)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read custody token balance", err)
		}
		if exists && tokenBalance > 0 {
			destinationAccount := chain.TokenAccountAddress(destination, link.Mint)
			hasAccount, err := l.chain.AccountExists(ctx, destinationAccount)
			if err != nil {
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to check refund destination account", err)
			}
			if !hasAccount {
				tx.AddCreateTokenAccount(custodyAddress, destination, link.Mint)
			}
			tx.AddTokenTransfer(custodyAccount, destinationAccount, custodyAddress, tokenBalance)
		}
	}

	nativeBalance, err := l.chain.GetBalance(ctx, custodyAddress)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read custody balance", err)
	}
	if nativeBalance > chain.FeeBufferLamports {
		tx.AddTransfer(custodyAddress, destination, nativeBalance-chain.FeeBufferLamports)
	}

	if len(tx.Instructions) == 0 {
		// Nothing to move is a claimed or drained link, not a success.
		return nil, apierror.NewAPIError(apierror.ErrAlreadyClaimed,
			"Custody account holds nothing to refund", nil)
	}

	if err := tx.Sign(custody.Signer()); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sign refund", err)
	}
	signature, err := l.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrTransferFailed, "Failed to submit refund", err)
	}
	if err := l.confirmOrResolve(ctx, signature); err != nil {
		return nil, err
	}

	if err := l.datasource.UpdateLinkStatus(ctx, link.LinkID, model.StatusRefunded); err != nil {
		return nil, err
	}
	if err := l.datasource.UpdateLinkOutcome(ctx, link.LinkID, signature, ""); err != nil {
		logrus.Errorf("failed to record refund signature on link %s: %v", link.LinkID, err)
	}
	link.Status = model.StatusRefunded
	link.TxSignature = signature
	return link, nil
}

// custodyHoldsFunds re-verifies that a link's principal actually sits in the
// custody account, instead of trusting the stored status.
func (l *Vanta) custodyHoldsFunds(ctx context.Context, link *model.Link) (bool, error) {
	if link.IsNative() {
		balance, err := l.chain.GetBalance(ctx, link.Address)
		if err != nil {
			return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read custody balance", err)
		}
		return balance > 0, nil
	}
	custodyAccount := chain.TokenAccountAddress(link.Address, link.Mint)
	tokenBalance, exists, err := l.chain.GetTokenBalance(ctx, custodyAccount)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read custody token balance", err)
	}
	return exists && tokenBalance > 0, nil
}

// ScanStrandedLinks finds PARTIAL links and, depending on configuration,
// either notifies the sender or refunds them to the recorded sender address.
// Funds never move automatically without the AutoRecover flag.
func (l *Vanta) ScanStrandedLinks(ctx context.Context) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	const batchSize = 100
	for offset := 0; ; offset += batchSize {
		links, err := l.datasource.GetAllLinks(ctx, batchSize, offset)
		if err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		for _, link := range links {
			if link.Status != model.StatusPartial {
				continue
			}
			if cfg.Recovery.AutoRecover {
				sender, _ := link.MetaData["sender"].(string)
				if sender == "" {
					logrus.Warnf("stranded link %s has no recorded sender, skipping auto-refund", link.LinkID)
					l.notifyStrandedLink(link)
					continue
				}
				if _, err := l.RefundLink(ctx, link.LinkID, sender); err != nil {
					logrus.Errorf("auto-refund of link %s failed: %v", link.LinkID, err)
					l.notifyStrandedLink(link)
				}
				continue
			}
			l.notifyStrandedLink(link)
		}
		if len(links) < batchSize {
			return nil
		}
	}
}

func (l *Vanta) notifyStrandedLink(link *model.Link) {
	err := notification.WebhookNotification("link.stranded", map[string]interface{}{
		"link_id":    link.LinkID,
		"symbol":     link.Symbol,
		"amount":     link.Amount.String(),
		"status":     link.Status,
		"created_at": link.CreatedAt,
	})
	if err != nil {
		logrus.Warnf("failed to send stranded-link notification for %s: %v", link.LinkID, err)
	}
}
