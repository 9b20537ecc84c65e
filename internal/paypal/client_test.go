package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient wires a client against a stub provider that always grants
// tokens, counting how many token requests were made.
func newTestClient(t *testing.T, tokenCalls *int32, handler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenCalls != nil {
			atomic.AddInt32(tokenCalls, 1)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "shh" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"expires_in":   3600,
		})
	})
	if handler != nil {
		mux.HandleFunc("/", handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(Config{ClientID: "cid", Secret: "shh", BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestAccessToken_CachedAcrossCalls(t *testing.T) {
	var tokenCalls int32
	c := newTestClient(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "PROD-1"})
	})

	ctx := context.Background()
	if _, err := c.CreateProduct(ctx, "Pro", "Pro plan"); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if _, err := c.CreateProduct(ctx, "Pro", "Pro plan"); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", got)
	}
}

func TestCreateProduct_SendsTypeAndRequestID(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/catalogs/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("PayPal-Request-Id") == "" {
			t.Error("missing PayPal-Request-Id header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "SERVICE" || body["category"] != "SOFTWARE" {
			t.Errorf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "PROD-1"})
	})

	id, err := c.CreateProduct(context.Background(), "Pro", "Pro plan")
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if id != "PROD-1" {
		t.Fatalf("product id = %q", id)
	}
}

func TestCreatePlan_MonthlyCycle(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/billing/plans" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			ProductID     string `json:"product_id"`
			BillingCycles []struct {
				Frequency struct {
					IntervalUnit string `json:"interval_unit"`
				} `json:"frequency"`
				PricingScheme struct {
					FixedPrice struct {
						Value        string `json:"value"`
						CurrencyCode string `json:"currency_code"`
					} `json:"fixed_price"`
				} `json:"pricing_scheme"`
			} `json:"billing_cycles"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.ProductID != "PROD-1" || len(body.BillingCycles) != 1 {
			t.Errorf("unexpected body: %+v", body)
		} else if fp := body.BillingCycles[0].PricingScheme.FixedPrice; fp.Value != "29.00" || fp.CurrencyCode != "USD" {
			t.Errorf("unexpected price: %+v", fp)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "P-1"})
	})

	id, err := c.CreatePlan(context.Background(), PlanRequest{
		ProductID: "PROD-1", Name: "Pro", Price: "29.00", Currency: "USD",
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if id != "P-1" {
		t.Fatalf("plan id = %q", id)
	}
}

func TestGetSubscription_ParsesBillingInfo(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/billing/subscriptions/I-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"id": "I-1",
			"status": "ACTIVE",
			"plan_id": "P-1",
			"start_time": "2026-01-02T03:04:05Z",
			"billing_info": {"next_billing_time": "2026-02-02T03:04:05Z"}
		}`))
	})

	sub, err := c.GetSubscription(context.Background(), "I-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.Status != "ACTIVE" || sub.PlanID != "P-1" {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if sub.StartTime.IsZero() || sub.BillingInfo.NextBillingTime.IsZero() {
		t.Fatalf("timestamps not parsed: %+v", sub)
	}
}

func TestGetSubscription_NotFound(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := c.GetSubscription(context.Background(), "I-404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelSubscription_SendsReason(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/billing/subscriptions/I-1/cancel" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["reason"] == "" {
			t.Error("missing cancellation reason")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.CancelSubscription(context.Background(), "I-1", ""); err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}
}

func TestAPIError_SurfacesStatusAndBody(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"name":"UNPROCESSABLE_ENTITY"}`, http.StatusUnprocessableEntity)
	})
	_, err := c.CreateProduct(context.Background(), "Pro", "desc")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected APIError 422, got %v", err)
	}
}
