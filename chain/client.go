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

// Package chain is the gateway to the public ledger: balance reads,
// transaction submission and confirmation, and rent queries, over the
// node's JSON-RPC interface.
package chain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jerry-enebeli/vanta/internal/cache"
)

const (
	// FeeBufferLamports is left behind in the custody account to pay the
	// settlement transaction's network fee.
	FeeBufferLamports uint64 = 5_000
	// TxFeeBufferLamports pads the gas funding transfer beyond rent, so the
	// recipient's claim cannot run dry on fees.
	TxFeeBufferLamports uint64 = 500_000
	// DustThresholdLamports is the custody balance at or below which a link
	// is considered drained for display purposes.
	DustThresholdLamports uint64 = 1_000_000

	// fallbackRentLamports is the known rent-exemption cost of a token
	// account, used when the live query fails.
	fallbackRentLamports uint64 = 2_039_280

	rentCacheKey = "chain:rent:token-account"
	rentCacheTTL = time.Hour

	tokenAccountSize = 165
)

// ErrUnconfirmed reports a submitted transaction whose outcome is unknown:
// the confirmation window elapsed without the ledger reporting success or
// failure. Callers must re-query before telling a user anything definitive.
var ErrUnconfirmed = errors.New("transaction submitted but unconfirmed")

// Client talks JSON-RPC to a ledger node.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cache      cache.Cache

	// confirmTimeout bounds a single ConfirmTransaction call.
	confirmTimeout time.Duration
}

// NewClient builds a gateway against the given RPC endpoint. The cache is
// used for rent-exemption lookups; pass nil to disable caching.
func NewClient(endpoint string, rentCache cache.Cache) *Client {
	return &Client{
		endpoint:       endpoint,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		cache:          rentCache,
		confirmTimeout: 45 * time.Second,
	}
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "rpc %s failed", method)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return errors.Wrapf(err, "rpc %s returned malformed response", method)
	}
	if envelope.Error != nil {
		return errors.Wrapf(envelope.Error, "rpc %s rejected", method)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return errors.Wrapf(err, "rpc %s result decode failed", method)
		}
	}
	return nil
}

// GetBalance returns an account's lamport balance.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []interface{}{address}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// LatestBlockhash returns the handle used to build a bounded-validity
// transaction.
func (c *Client) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	var result struct {
		Value Blockhash `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return Blockhash{}, err
	}
	return result.Value, nil
}

// SubmitTransaction serializes and sends a signed transaction, returning its
// signature. Submission alone proves nothing: callers must confirm.
func (c *Client) SubmitTransaction(ctx context.Context, tx *Transaction) (string, error) {
	if err := tx.Verify(); err != nil {
		return "", err
	}
	encoded, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	var signature string
	if err := c.call(ctx, "sendTransaction", []interface{}{encoded}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

type signatureStatus struct {
	ConfirmationStatus string      `json:"confirmationStatus"`
	Err                interface{} `json:"err"`
}

// ConfirmTransaction polls the ledger until the transaction is confirmed,
// fails, or the confirmation window elapses. A transaction observed with an
// on-chain error is a failure — inclusion is not success. A window elapsing
// without a definitive status yields ErrUnconfirmed, never a silent verdict
// either way.
func (c *Client) ConfirmTransaction(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	// backoff.Retry hands back a Permanent error with the wrapper already
	// stripped, so the revert is recorded here rather than unwrapped after.
	var reverted error
	operation := func() error {
		status, err := c.signatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		if status == nil {
			return fmt.Errorf("signature %s not yet observed", signature)
		}
		if status.Err != nil {
			reverted = fmt.Errorf("transaction %s failed on-chain: %v", signature, status.Err)
			return backoff.Permanent(reverted)
		}
		if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
			return nil
		}
		return fmt.Errorf("signature %s still %s", signature, status.ConfirmationStatus)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	err := backoff.Retry(operation, policy)
	if err == nil {
		return nil
	}
	if reverted != nil {
		return reverted
	}
	logrus.Warnf("confirmation window elapsed for %s: %v", signature, err)
	return ErrUnconfirmed
}

func (c *Client) signatureStatus(ctx context.Context, signature string) (*signatureStatus, error) {
	var result struct {
		Value []*signatureStatus `json:"value"`
	}
	params := []interface{}{[]string{signature}, map[string]bool{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return result.Value[0], nil
}

// TransactionSucceeded resolves a previously submitted transaction's actual
// outcome. Used after ErrUnconfirmed: a claim must not be reported failed
// when it actually landed.
func (c *Client) TransactionSucceeded(ctx context.Context, signature string) (bool, error) {
	status, err := c.signatureStatus(ctx, signature)
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, nil
	}
	return status.Err == nil, nil
}

// AccountExists reports whether the account has been created on the ledger.
func (c *Client) AccountExists(ctx context.Context, address string) (bool, error) {
	var result struct {
		Value json.RawMessage `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", []interface{}{address}, &result); err != nil {
		return false, err
	}
	return len(result.Value) > 0 && string(result.Value) != "null", nil
}

// GetTokenBalance returns the token unit balance of a token account. The
// second return reports whether the account exists at all.
func (c *Client) GetTokenBalance(ctx context.Context, tokenAccount string) (uint64, bool, error) {
	exists, err := c.AccountExists(ctx, tokenAccount)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, nil
	}
	var result struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", []interface{}{tokenAccount}, &result); err != nil {
		return 0, true, err
	}
	var amount uint64
	if _, err := fmt.Sscanf(result.Value.Amount, "%d", &amount); err != nil {
		return 0, true, fmt.Errorf("malformed token balance %q", result.Value.Amount)
	}
	return amount, true, nil
}

// MinimumRentExemption returns the lamports a token-sized receiving account
// must hold to persist. The value changes rarely, so it is cached for an
// hour; when the query fails, the known network constant is used.
func (c *Client) MinimumRentExemption(ctx context.Context) uint64 {
	if c.cache != nil {
		var cached uint64
		if err := c.cache.Get(ctx, rentCacheKey, &cached); err == nil && cached > 0 {
			return cached
		}
	}

	var rent uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", []interface{}{tokenAccountSize}, &rent); err != nil {
		logrus.Warnf("rent exemption query failed, using fallback: %v", err)
		return fallbackRentLamports
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, rentCacheKey, rent, rentCacheTTL); err != nil {
			logrus.Warnf("failed to cache rent exemption: %v", err)
		}
	}
	return rent
}

// GasBufferLamports is the total native amount a custody account needs so
// the recipient can claim without funding anything themselves: rent for a
// receiving token account plus a transaction fee pad.
func (c *Client) GasBufferLamports(ctx context.Context) uint64 {
	return c.MinimumRentExemption(ctx) + TxFeeBufferLamports
}

// TokenAccountAddress derives the deterministic token account address for an
// owner and mint, as defined by the ledger's account scheme.
func TokenAccountAddress(owner, mint string) string {
	h := sha256.Sum256([]byte("token-account:" + mint + ":" + owner))
	return base58.Encode(h[:])
}
