package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jerry-enebeli/vanta/config"
	"github.com/jerry-enebeli/vanta/internal/request"
)

// rangeProvider scores addresses against the Range risk API.
type rangeProvider struct {
	baseURL    string
	apiKey     string
	network    string
	httpClient *http.Client
}

// NewRangeProvider builds the default risk provider from configuration.
func NewRangeProvider(cfg config.ComplianceConfig) RiskProvider {
	return &rangeProvider{
		baseURL:    cfg.Url,
		apiKey:     cfg.ApiKey,
		network:    cfg.Network,
		httpClient: request.NewClient(cfg.Timeout),
	}
}

func (p *rangeProvider) Name() string {
	return "range"
}

type rangeResponse struct {
	RiskScore float64 `json:"riskScore"`
	RiskLevel string  `json:"riskLevel"`
	Category  string  `json:"category"`
	Hops      int     `json:"hops"`
}

func (p *rangeProvider) ScoreAddress(ctx context.Context, address string) (*RiskAssessment, error) {
	// A dead context must never produce an assessment the gate could read
	// as clean.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid risk api url: %w", err)
	}
	q := u.Query()
	q.Set("network", p.network)
	q.Set("address", address)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("risk check request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("risk api returned status %d", resp.StatusCode)
	}

	var raw map[string]interface{}
	var parsed rangeResponse
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode risk response: %w", err)
	}
	rawBytes, _ := json.Marshal(raw)
	if err := json.Unmarshal(rawBytes, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse risk response: %w", err)
	}

	return &RiskAssessment{
		RiskScore: parsed.RiskScore,
		RiskLevel: parsed.RiskLevel,
		Category:  parsed.Category,
		Hops:      parsed.Hops,
		Raw:       raw,
	}, nil
}
