// Package paymentprovider is the Razorpay adapter: order creation over the
// REST API and webhook signature verification.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/dynasty-membership/internal/config"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// Client talks to the Razorpay orders API.
type Client struct {
	keyID      string
	keySecret  string
	apiURL     string
	currency   string
	httpClient *http.Client
}

// NewClient creates a Razorpay client from cfg.
func NewClient(cfg config.Razorpay) *Client {
	return &Client{
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		currency:   cfg.Currency,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// KeyID is the public key the checkout widget needs.
func (c *Client) KeyID() string {
	return c.keyID
}

// Currency is the currency orders are created in.
func (c *Client) Currency() string {
	return c.currency
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// CreateOrder creates an order. Transport errors and non-2xx answers wrap models.ErrUpstream.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderRequest) (*Order, error) {
	const op = "paymentprovider.CreateOrder"
	if params.Currency == "" {
		params.Currency = c.currency
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/orders", params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %w: %s", op, models.ErrUpstream, describeError(resp))
	}

	var order Order
	if err = json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%s: %w: decode order: %w", op, models.ErrUpstream, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%s: %w: order without id", op, models.ErrUpstream)
	}
	return &order, nil
}

func describeError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Description != "" {
		return fmt.Sprintf("unexpected status %s: %s: %s", resp.Status, e.Error.Code, e.Error.Description)
	}
	return "unexpected status " + resp.Status
}
