// Package payment implements the hosted payment gateway client used for the
// one-time premium upgrade purchase.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stylisthq/stylist-server/internal/config"
)

// DefaultBaseURL is the gateway API root used when the config leaves it empty.
const DefaultBaseURL = "https://api.yookassa.ru/v3"

const requestTimeout = 15 * time.Second

// Created describes a freshly initiated payment.
type Created struct {
	ID          string
	RedirectURL string
}

// StatusResult describes the gateway-side state of a payment.
type StatusResult struct {
	ID   string
	Paid bool
}

// Gateway is the behavior required from the payment provider.
type Gateway interface {
	Create(ctx context.Context, amountCents int64, currency, returnURL string) (Created, error)
	Status(ctx context.Context, id string) (StatusResult, error)
}

// Client talks JSON over HTTP to the payment gateway.
type Client struct {
	shopID    string
	secretKey string
	baseURL   string
	http      *http.Client
}

// NewClient builds a gateway client from the payment config.
func NewClient(cfg config.PaymentConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		shopID:    cfg.ShopID,
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		http:      &http.Client{Timeout: requestTimeout},
	}
}

type amountBody struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationBody struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url,omitempty"`
	URL       string `json:"confirmation_url,omitempty"`
}

type createRequest struct {
	Amount       amountBody       `json:"amount"`
	Capture      bool             `json:"capture"`
	Confirmation confirmationBody `json:"confirmation"`
	Description  string           `json:"description,omitempty"`
}

type paymentResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Confirmation *confirmationBody `json:"confirmation,omitempty"`
}

// Create initiates a redirect payment and returns its id and confirmation URL.
func (c *Client) Create(ctx context.Context, amountCents int64, currency, returnURL string) (Created, error) {
	payload := createRequest{
		Amount:  amountBody{Value: formatAmount(amountCents), Currency: currency},
		Capture: true,
		Confirmation: confirmationBody{
			Type:      "redirect",
			ReturnURL: returnURL,
		},
		Description: "Stylist premium upgrade",
	}

	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return Created{}, fmt.Errorf("payment: marshal create request: %w", errMarshal)
	}

	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if errReq != nil {
		return Created{}, fmt.Errorf("payment: build create request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, errDo := c.http.Do(req)
	if errDo != nil {
		return Created{}, fmt.Errorf("payment: create payment: %w", errDo)
	}
	defer resp.Body.Close()

	data, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return Created{}, fmt.Errorf("payment: read create response: %w", errRead)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Created{}, fmt.Errorf("payment: create returned status %d: %s", resp.StatusCode, truncateBody(data))
	}

	var parsed paymentResponse
	if errDecode := json.Unmarshal(data, &parsed); errDecode != nil {
		return Created{}, fmt.Errorf("payment: decode create response: %w", errDecode)
	}
	if parsed.ID == "" {
		return Created{}, fmt.Errorf("payment: create response missing payment id")
	}

	created := Created{ID: parsed.ID}
	if parsed.Confirmation != nil {
		created.RedirectURL = parsed.Confirmation.URL
	}
	if created.RedirectURL == "" {
		return Created{}, fmt.Errorf("payment: create response missing confirmation url")
	}
	return created, nil
}

// Status fetches the current gateway state of the payment.
func (c *Client) Status(ctx context.Context, id string) (StatusResult, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/"+id, nil)
	if errReq != nil {
		return StatusResult{}, fmt.Errorf("payment: build status request: %w", errReq)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)

	resp, errDo := c.http.Do(req)
	if errDo != nil {
		return StatusResult{}, fmt.Errorf("payment: fetch payment status: %w", errDo)
	}
	defer resp.Body.Close()

	data, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return StatusResult{}, fmt.Errorf("payment: read status response: %w", errRead)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusResult{}, fmt.Errorf("payment: status returned status %d: %s", resp.StatusCode, truncateBody(data))
	}

	var parsed paymentResponse
	if errDecode := json.Unmarshal(data, &parsed); errDecode != nil {
		return StatusResult{}, fmt.Errorf("payment: decode status response: %w", errDecode)
	}

	return StatusResult{
		ID:   parsed.ID,
		Paid: parsed.Paid || parsed.Status == "succeeded",
	}, nil
}

// formatAmount renders minor units as the gateway's decimal string, e.g. 49900 -> "499.00".
func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func truncateBody(data []byte) string {
	const max = 256
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
