// Package paypal implements a minimal REST client for the payment provider:
// OAuth2 client-credentials tokens, catalog products, billing plans, and
// subscription lookup/cancellation. Only the fields this application reads
// are modeled.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"
)

// ErrNotFound is returned when the provider reports 404 for a resource.
var ErrNotFound = errors.New("paypal: resource not found")

// APIError carries a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: status %d: %s", e.Status, e.Body)
}

// Config holds credentials and environment selection.
type Config struct {
	ClientID string
	Secret   string
	Mode     string // "sandbox" or "live"
	BaseURL  string // optional override, used by tests
	Timeout  time.Duration
}

// Subscription is the subset of a provider subscription this app consumes.
type Subscription struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	PlanID      string    `json:"plan_id"`
	StartTime   time.Time `json:"start_time"`
	BillingInfo struct {
		NextBillingTime time.Time `json:"next_billing_time"`
	} `json:"billing_info"`
}

// PlanRequest describes a monthly billing plan to create at the provider.
type PlanRequest struct {
	ProductID string
	Name      string
	Price     string // decimal string, e.g. "29.00"
	Currency  string // ISO 4217, e.g. "USD"
}

// API is the provider port used by the billing services. Tests substitute
// fakes; Client is the real implementation.
type API interface {
	CreateProduct(ctx context.Context, name, description string) (productID string, err error)
	CreatePlan(ctx context.Context, req PlanRequest) (planID string, err error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
}

// Client talks to the provider REST API.
type Client struct {
	baseURL  string
	clientID string
	secret   string
	http     *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// New builds a client for the configured environment.
func New(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		if strings.EqualFold(cfg.Mode, "live") {
			base = liveBaseURL
		} else {
			base = sandboxBaseURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(base, "/"),
		clientID: cfg.ClientID,
		secret:   cfg.Secret,
		http:     &http.Client{Timeout: timeout},
	}
}

// accessToken returns a cached OAuth2 token, fetching a fresh one when the
// cache is empty or within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(time.Minute).Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("token decode: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("paypal: empty access token")
	}
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// doJSON performs an authenticated JSON request. A nil out skips decoding.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any, requestID string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		// Provider-side idempotency for create calls.
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decode: %w", method, path, err)
		}
	}
	return nil
}

// CreateProduct registers a catalog product and returns its id.
func (c *Client) CreateProduct(ctx context.Context, name, description string) (string, error) {
	payload := map[string]string{
		"name":        name,
		"description": description,
		"type":        "SERVICE",
		"category":    "SOFTWARE",
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/catalogs/products", payload, &out, uuid.NewString()); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreatePlan creates a monthly auto-renewing billing plan for a product.
func (c *Client) CreatePlan(ctx context.Context, pr PlanRequest) (string, error) {
	payload := map[string]any{
		"product_id": pr.ProductID,
		"name":       pr.Name,
		"status":     "ACTIVE",
		"billing_cycles": []map[string]any{{
			"frequency": map[string]any{
				"interval_unit":  "MONTH",
				"interval_count": 1,
			},
			"tenure_type":  "REGULAR",
			"sequence":     1,
			"total_cycles": 0,
			"pricing_scheme": map[string]any{
				"fixed_price": map[string]string{
					"value":         pr.Price,
					"currency_code": pr.Currency,
				},
			},
		}},
		"payment_preferences": map[string]any{
			"auto_bill_outstanding":     true,
			"payment_failure_threshold": 3,
		},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/billing/plans", payload, &out, uuid.NewString()); err != nil {
		return "", err
	}
	return out.ID, nil
}

// GetSubscription fetches the current provider state of a subscription.
func (c *Client) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var out Subscription
	if err := c.doJSON(ctx, http.MethodGet, "/v1/billing/subscriptions/"+url.PathEscape(id), nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSubscription asks the provider to cancel. The provider returns 204.
func (c *Client) CancelSubscription(ctx context.Context, id, reason string) error {
	if reason == "" {
		reason = "Cancelled by customer"
	}
	payload := map[string]string{"reason": reason}
	return c.doJSON(ctx, http.MethodPost,
		"/v1/billing/subscriptions/"+url.PathEscape(id)+"/cancel", payload, nil, "")
}
