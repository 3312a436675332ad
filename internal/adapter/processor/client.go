package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"jvc-ledger/config"
	"jvc-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.PaymentProcessor against the external payment
// provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a processor API client.
func NewClient(cfg config.ProcessorConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// NewClientWithHTTP creates a processor client with a custom HTTP client.
func NewClientWithHTTP(cfg config.ProcessorConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		log:        log,
	}
}

type createIntentRequest struct {
	ReferenceID string `json:"reference_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
}

type createIntentResponse struct {
	IntentID     string `json:"intent_id"`
	RedirectURL  string `json:"redirect_url"`
	Instructions string `json:"instructions"`
}

// CreateIntent registers a payment with the processor.
func (c *Client) CreateIntent(ctx context.Context, req ports.IntentRequest) (*ports.IntentResult, error) {
	body, err := json.Marshal(createIntentRequest{
		ReferenceID: req.ReferenceID,
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
		Method:      string(req.Method),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal intent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call processor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("reference_id", req.ReferenceID).
			Msg("processor rejected intent creation")
		return nil, fmt.Errorf("processor returned %d: %s", resp.StatusCode, snippet)
	}

	var out createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode intent response: %w", err)
	}
	if out.IntentID == "" {
		return nil, fmt.Errorf("processor response missing intent_id")
	}

	return &ports.IntentResult{
		IntentID:     out.IntentID,
		RedirectURL:  out.RedirectURL,
		Instructions: out.Instructions,
	}, nil
}
