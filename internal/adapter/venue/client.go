package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"jvc-ledger/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client notifies the venue/POS system when an order has been paid.
// It implements ports.OrderCallback.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	log        zerolog.Logger
}

func NewClient(cfg config.VenueConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.CallbackBaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

func NewClientWithHTTP(cfg config.VenueConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.CallbackBaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		log:        log,
	}
}

type orderPaidRequest struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// MarkOrderPaid tells the venue system that the order's payment settled.
func (c *Client) MarkOrderPaid(ctx context.Context, orderID string, transactionID uuid.UUID) error {
	body, err := json.Marshal(orderPaidRequest{
		OrderID:       orderID,
		TransactionID: transactionID.String(),
		Status:        "paid",
	})
	if err != nil {
		return fmt.Errorf("marshal order callback: %w", err)
	}

	url := fmt.Sprintf("%s/v1/orders/%s/paid", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build order callback: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call venue system: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("venue system returned %d for order %s", resp.StatusCode, orderID)
	}
	return nil
}
