package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/jerry-enebeli/vanta/config"
)

const riskAPIURL = "https://risk.example.com/v1/risk/address"

func newTestGate() *Gate {
	provider := NewRangeProvider(config.ComplianceConfig{
		Url:     riskAPIURL,
		ApiKey:  "test-key",
		Network: "solana",
		Timeout: 5,
	})
	return NewGate(provider)
}

func TestCheckAllowsLowRisk(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", riskAPIURL,
		httpmock.NewStringResponder(200, `{"riskScore": 2, "riskLevel": "LOW RISK", "hops": 1}`))

	verdict := newTestGate().Check(context.Background(), "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	assert.True(t, verdict.Allowed)
	assert.Equal(t, float64(2), verdict.RiskScore)
	assert.Equal(t, 1, verdict.Hops)
}

func TestCheckBlocksHighScore(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", riskAPIURL,
		httpmock.NewStringResponder(200, `{"riskScore": 8, "riskLevel": "SEVERE", "category": "sanctions"}`))

	verdict := newTestGate().Check(context.Background(), "some-address")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, float64(8), verdict.RiskScore)
	assert.Equal(t, "SEVERE", verdict.Reason)
	assert.Equal(t, "sanctions", verdict.Category)
}

func TestCheckBlocksHighRiskLevelString(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	for _, level := range []string{"HIGH RISK", "CRITICAL RISK (Directly malicious)", "high"} {
		httpmock.RegisterResponder("GET", riskAPIURL,
			httpmock.NewStringResponder(200, `{"riskScore": 3, "riskLevel": "`+level+`"}`))

		verdict := newTestGate().Check(context.Background(), "some-address")
		assert.False(t, verdict.Allowed, level)
		assert.Equal(t, level, verdict.Reason)
	}
}

func TestCheckFailClosedOnUpstreamError(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", riskAPIURL,
		httpmock.NewStringResponder(500, `{"error": "internal"}`))

	verdict := newTestGate().Check(context.Background(), "some-address")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "check failed", verdict.Reason)
}

func TestCheckFailClosedOnNetworkError(t *testing.T) {
	// No responder registered: the transport errors out.
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	verdict := newTestGate().Check(context.Background(), "some-address")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "check failed", verdict.Reason)
}

func TestCheckFailClosedOnCancelledContext(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", riskAPIURL,
		httpmock.NewStringResponder(200, `{"riskScore": 0}`))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	verdict := newTestGate().Check(ctx, "some-address")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "check failed", verdict.Reason)
}

func TestCheckRejectsEmptyAddress(t *testing.T) {
	verdict := newTestGate().Check(context.Background(), "")
	assert.False(t, verdict.Allowed)
	assert.Equal(t, "address is required", verdict.Reason)
}
