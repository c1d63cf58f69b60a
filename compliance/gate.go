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

// Package compliance gates value movement on an external address risk score.
// The gate is fail-closed: an unreachable or erroring provider blocks the
// operation. That is a safety property, not a performance concern — a check
// that cannot complete must never default to allowed.
package compliance

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// highRiskThreshold is the provider score at or above which an address is
// blocked outright.
const highRiskThreshold = 7

// Gate wraps a RiskProvider with the allow/deny policy.
type Gate struct {
	provider RiskProvider
}

func NewGate(provider RiskProvider) *Gate {
	return &Gate{provider: provider}
}

// Check scores the address and returns a verdict. It calls the provider
// exactly once — no caching (risk can change between operations) and no
// retries (a failed check blocks the operation; the caller surfaces it).
// Context cancellation is treated like any other provider failure.
func (g *Gate) Check(ctx context.Context, address string) *Verdict {
	if address == "" {
		return &Verdict{Allowed: false, Reason: "address is required"}
	}

	assessment, err := g.provider.ScoreAddress(ctx, address)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"provider": g.provider.Name(),
		}).Warnf("risk check failed: %v", err)
		return &Verdict{Allowed: false, Reason: "check failed"}
	}

	verdict := &Verdict{
		RiskScore: assessment.RiskScore,
		RiskLevel: assessment.RiskLevel,
		Category:  assessment.Category,
		Hops:      assessment.Hops,
		Detail:    assessment.Raw,
	}

	if isHighRisk(assessment) {
		verdict.Allowed = false
		verdict.Reason = assessment.RiskLevel
		if verdict.Reason == "" {
			verdict.Reason = "High Risk"
		}
		return verdict
	}

	verdict.Allowed = true
	return verdict
}

// isHighRisk applies the provider's vocabulary: a numeric score at or above
// the threshold, or a level string containing HIGH or CRITICAL
// (e.g. "CRITICAL RISK (Directly malicious)").
func isHighRisk(a *RiskAssessment) bool {
	if a.RiskScore >= highRiskThreshold {
		return true
	}
	level := strings.ToUpper(a.RiskLevel)
	return strings.Contains(level, "HIGH") || strings.Contains(level, "CRITICAL")
}
