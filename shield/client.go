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

// Package shield is the client for the external privacy transfer service. It
// moves value from a sender's shielded balance to an arbitrary address. The
// proof system behind it is the service's concern, not ours: this package
// only speaks the service's HTTP contract. Amounts cross this boundary in
// human units, never smallest-unit integers.
package shield

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/vanta/config"
	"github.com/jerry-enebeli/vanta/internal/cache"
	"github.com/jerry-enebeli/vanta/internal/request"
)

// Fallback values used when the live fee query fails and stale fees are
// allowed by configuration. They mirror the service's published defaults.
var (
	fallbackMinimumNative = decimal.RequireFromString("0.1")
	fallbackFeePercentage = decimal.RequireFromString("0.01")
)

const feeCacheTTL = time.Hour

// TransferOutcome is the tagged result of a transfer call. Exactly one
// concrete type is returned: SignedAndSubmitted when the service executed
// the settlement itself, NeedsSignature when the caller must sign with the
// sender's wallet and submit. Failures are errors, not a variant.
type TransferOutcome interface {
	isTransferOutcome()
}

// SignedAndSubmitted reports a fully executed transfer.
type SignedAndSubmitted struct {
	TxID string
}

// NeedsSignature carries an unsigned settlement transaction the sender's
// wallet must sign and submit.
type NeedsSignature struct {
	UnsignedTx []byte
}

func (SignedAndSubmitted) isTransferOutcome() {}
func (NeedsSignature) isTransferOutcome()     {}

// TransferRequest describes a shielded-to-address transfer. Mode "external"
// targets an address outside the sender's own shielded pool.
type TransferRequest struct {
	Sender    string          `json:"sender"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Token     string          `json:"token"`
	Mode      string          `json:"type"`
}

// Client talks to the privacy transfer service.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	cache          cache.Cache
	allowStaleFees bool
}

// NewClient builds a shield client from configuration. The cache is used for
// per-asset minimums and fee percentages; pass nil to disable caching.
func NewClient(cfg config.ShieldConfig, feeCache cache.Cache) *Client {
	allowStale := true
	if cfg.AllowStaleFees != nil {
		allowStale = *cfg.AllowStaleFees
	}
	return &Client{
		baseURL:        cfg.Url,
		apiKey:         cfg.ApiKey,
		httpClient:     request.NewClient(cfg.Timeout),
		cache:          feeCache,
		allowStaleFees: allowStale,
	}
}

type transferResponse struct {
	Success          bool   `json:"success"`
	TxSignature      string `json:"tx_signature"`
	UnsignedTxBase64 string `json:"unsigned_tx_base64"`
	Error            string `json:"error"`
}

// Transfer asks the service to move value from the sender's shielded balance
// to the recipient address. The service either settles the transfer itself
// or hands back an unsigned transaction for the sender to sign.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (TransferOutcome, error) {
	if req.Mode == "" {
		req.Mode = "external"
	}

	payload, err := request.ToJsonReq(&req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfer", payload)
	if err != nil {
		return nil, err
	}
	c.addAuth(httpReq)

	var resp transferResponse
	rawResp, err := request.CallWithClient(c.httpClient, httpReq, &resp)
	if err != nil {
		return nil, fmt.Errorf("privacy transfer request failed: %w", err)
	}
	if rawResp.StatusCode < 200 || rawResp.StatusCode >= 300 {
		if resp.Error != "" {
			return nil, fmt.Errorf("privacy transfer rejected: %s", resp.Error)
		}
		return nil, fmt.Errorf("privacy transfer returned status %d", rawResp.StatusCode)
	}

	switch {
	case resp.UnsignedTxBase64 != "":
		unsigned, err := base64.StdEncoding.DecodeString(resp.UnsignedTxBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid unsigned settlement payload: %w", err)
		}
		return NeedsSignature{UnsignedTx: unsigned}, nil
	case resp.Success || resp.TxSignature != "":
		return SignedAndSubmitted{TxID: resp.TxSignature}, nil
	default:
		if resp.Error != "" {
			return nil, fmt.Errorf("privacy transfer failed: %s", resp.Error)
		}
		return nil, fmt.Errorf("privacy transfer failed with no diagnostic")
	}
}

type tokenFeesResponse struct {
	MinimumAmount decimal.Decimal `json:"minimum_amount"`
	FeePercentage decimal.Decimal `json:"fee_percentage"`
}

// GetMinimumAmount returns the smallest transferable amount for a token, in
// human units. Falls back to the published default when the live query fails
// and stale fees are allowed.
func (c *Client) GetMinimumAmount(ctx context.Context, token string) (decimal.Decimal, error) {
	fees, err := c.tokenFees(ctx, token)
	if err != nil {
		if !c.allowStaleFees {
			return decimal.Zero, err
		}
		logrus.Warnf("minimum amount query for %s failed, using fallback: %v", token, err)
		if token == "SOL" {
			return fallbackMinimumNative, nil
		}
		return decimal.Zero, nil
	}
	return fees.MinimumAmount, nil
}

// GetFeePercentage returns the protocol fee fraction for a token (0.01 means
// one percent). The fee is deducted from what the recipient receives, so a
// link's display amount and its claimable amount differ by this fraction.
func (c *Client) GetFeePercentage(ctx context.Context, token string) (decimal.Decimal, error) {
	fees, err := c.tokenFees(ctx, token)
	if err != nil {
		if !c.allowStaleFees {
			return decimal.Zero, err
		}
		logrus.Warnf("fee percentage query for %s failed, using fallback: %v", token, err)
		return fallbackFeePercentage, nil
	}
	return fees.FeePercentage, nil
}

func (c *Client) tokenFees(ctx context.Context, token string) (*tokenFeesResponse, error) {
	cacheKey := "shield:fees:" + token
	if c.cache != nil {
		var cached tokenFeesResponse
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil && !cached.MinimumAmount.IsZero() {
			return &cached, nil
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/tokens/%s/fees", c.baseURL, token), nil)
	if err != nil {
		return nil, err
	}
	c.addAuth(httpReq)

	var resp tokenFeesResponse
	rawResp, err := request.CallWithClient(c.httpClient, httpReq, &resp)
	if err != nil {
		return nil, err
	}
	if rawResp.StatusCode < 200 || rawResp.StatusCode >= 300 {
		return nil, fmt.Errorf("fee query returned status %d", rawResp.StatusCode)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, resp, feeCacheTTL); err != nil {
			logrus.Warnf("failed to cache fees for %s: %v", token, err)
		}
	}
	return &resp, nil
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// GetBalance returns the owner's shielded balance for a token, in human units.
func (c *Client) GetBalance(ctx context.Context, owner, token string) (decimal.Decimal, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/balance?owner=%s&token=%s", c.baseURL, owner, token), nil)
	if err != nil {
		return decimal.Zero, err
	}
	c.addAuth(httpReq)

	var resp balanceResponse
	rawResp, err := request.CallWithClient(c.httpClient, httpReq, &resp)
	if err != nil {
		return decimal.Zero, fmt.Errorf("shielded balance query failed: %w", err)
	}
	if rawResp.StatusCode < 200 || rawResp.StatusCode >= 300 {
		return decimal.Zero, fmt.Errorf("shielded balance query returned status %d", rawResp.StatusCode)
	}
	return resp.Balance, nil
}

func (c *Client) addAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
}
