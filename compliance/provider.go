package compliance

import (
	"context"
)

// RiskAssessment is the raw answer from an address risk-scoring provider.
type RiskAssessment struct {
	RiskScore float64                `json:"riskScore"`
	RiskLevel string                 `json:"riskLevel"`
	Category  string                 `json:"category,omitempty"`
	Hops      int                    `json:"hops,omitempty"`
	Raw       map[string]interface{} `json:"raw,omitempty"`
}

// Verdict is the gate's allow/deny decision. It is ephemeral: verdicts are
// never persisted beyond the operation that requested them, because risk can
// change between checks.
type Verdict struct {
	Allowed   bool                   `json:"allowed"`
	RiskScore float64                `json:"risk_score,omitempty"`
	RiskLevel string                 `json:"risk_level,omitempty"`
	Category  string                 `json:"category,omitempty"`
	Hops      int                    `json:"hops,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

// RiskProvider scores a ledger address. Implementations call the upstream
// service once per invocation; the gate adds no caching or retries on top.
type RiskProvider interface {
	Name() string
	ScoreAddress(ctx context.Context, address string) (*RiskAssessment, error)
}
