package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Níveis de risco retornados pelo colaborador de fraude
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// CheckRequest é o payload enviado ao serviço de fraude
type CheckRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Context     string `json:"context"` // ex: "bet_placement"
}

// CheckResult é a decisão pass/fail com o tier de risco.
// Allowed=false é hard stop; RiskLevel=high com Allowed=true prossegue
// mas deve ser logado pelo chamador.
type CheckResult struct {
	Allowed   bool    `json:"allowed"`
	RiskLevel string  `json:"risk_level"`
	RiskScore float64 `json:"risk_score"`
	Action    string  `json:"action,omitempty"` // ex: "verify"
	Message   string  `json:"message,omitempty"`
}

// Client consome o serviço externo de checagem de fraude
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Check submete a tentativa de aposta para avaliação de risco
func (c *Client) Check(ctx context.Context, userID string, amountCents int64, checkContext string) (CheckResult, error) {
	body, _ := json.Marshal(CheckRequest{UserID: userID, AmountCents: amountCents, Context: checkContext})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/fraud/check", bytes.NewReader(body))
	if err != nil {
		return CheckResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return CheckResult{}, fmt.Errorf("fraud check: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return CheckResult{}, fmt.Errorf("fraud check http %d", res.StatusCode)
	}

	var out CheckResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return CheckResult{}, fmt.Errorf("fraud check decode: %w", err)
	}
	return out, nil
}
