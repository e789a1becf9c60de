package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tyo-it/pulsa-bridge/pkg/errorsx"
	"github.com/tyo-it/pulsa-bridge/pkg/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		BaseURL:  srv.URL,
		UserID:   "user-1",
		APIToken: "token",
		Timeout:  2 * time.Second,
	}, slog.New(slog.DiscardHandler))
	// Keep tests fast: one attempt, tiny backoff.
	c.retry = resilience.NewRetryPolicy(1, time.Millisecond, time.Millisecond)
	return c, srv
}

func TestCheckAvailabilityPrice(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recharges/inquire" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body inquireBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Recharge.Amount != 50000 || body.Recharge.CustomerNumber != "08111222333" {
			t.Errorf("unexpected body %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"reference_number": "REF-1"})
	}))

	avail, err := c.CheckAvailability(context.Background(), "08111222333", 50000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !avail.Available || avail.Simulated {
		t.Fatalf("expected live availability, got %+v", avail)
	}
	if avail.Price != 52500 {
		t.Fatalf("expected price 52500, got %d", avail.Price)
	}
	if avail.ReferenceNumber != "REF-1" {
		t.Fatalf("expected gateway reference, got %q", avail.ReferenceNumber)
	}
}

func TestCheckAvailabilityClassifiedErrors(t *testing.T) {
	cases := []struct {
		status int
		reason errorsx.ReasonCode
	}{
		{http.StatusUnauthorized, errorsx.ReasonGatewayAuth},
		{http.StatusNotFound, errorsx.ReasonGatewayNotFound},
		{http.StatusTooManyRequests, errorsx.ReasonGatewayRateLimit},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"nope"}`, tc.status)
		}))
		_, err := c.CheckAvailability(context.Background(), "08111222333", 50000)
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if !errorsx.HasReason(err, tc.reason) {
			t.Fatalf("status %d: expected reason %s, got %s", tc.status, tc.reason, errorsx.Reason(err))
		}
	}
}

func TestCheckAvailabilitySimulationFallback(t *testing.T) {
	// A closed port makes every call a transport failure.
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond},
		slog.New(slog.DiscardHandler))
	c.retry = resilience.NewRetryPolicy(1, time.Millisecond, time.Millisecond)

	avail, err := c.CheckAvailability(context.Background(), "08111222333", 50000)
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if !avail.Available || !avail.Simulated {
		t.Fatalf("expected simulated availability, got %+v", avail)
	}
	if avail.Price != 52500 {
		t.Fatalf("expected simulated price 52500, got %d", avail.Price)
	}
	if !strings.HasPrefix(avail.ReferenceNumber, "SIM-") {
		t.Fatalf("expected synthetic reference, got %q", avail.ReferenceNumber)
	}

	// Off-whitelist denominations are unavailable even in simulation.
	avail, err = c.CheckAvailability(context.Background(), "08111222333", 7321)
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if avail.Available {
		t.Fatalf("expected unavailable for off-whitelist denomination")
	}
}

func TestPurchaseSequence(t *testing.T) {
	var gotOrder orderBody
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/recharges/inquire":
			json.NewEncoder(w).Encode(map[string]string{"reference_number": "REF-9"})
		case "/recharges/order":
			if err := json.NewDecoder(r.Body).Decode(&gotOrder); err != nil {
				t.Errorf("decode order: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]string{"unique_id": "UID-7"})
		case "/recharges/pay":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "status": "processing", "balance": 120000})
		case "/recharges/UID-7/status":
			json.NewEncoder(w).Encode(map[string]any{
				"status": "completed", "serial_number": "SN123", "balance": 115000,
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	tx, err := c.Purchase(context.Background(), PurchaseRequest{PhoneNumber: "08111222333", Amount: 50000})
	if err != nil {
		t.Fatalf("purchase error: %v", err)
	}
	if !tx.Success || tx.Simulated {
		t.Fatalf("expected live success, got %+v", tx)
	}
	if tx.UniqueID != "UID-7" || tx.SerialNumber != "SN123" || tx.Balance != 115000 {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if gotOrder.Recharge.ReferenceNumber != "REF-9" {
		t.Fatalf("order must carry the inquire reference, got %q", gotOrder.Recharge.ReferenceNumber)
	}
	if gotOrder.Recharge.UserID != "user-1" {
		t.Fatalf("order must carry the user id, got %q", gotOrder.Recharge.UserID)
	}
}

func TestPurchaseClassifiedErrors(t *testing.T) {
	cases := []struct {
		status int
		reason errorsx.ReasonCode
	}{
		{http.StatusPaymentRequired, errorsx.ReasonGatewayInsufficientBalance},
		{http.StatusConflict, errorsx.ReasonGatewayDuplicateTransaction},
		{http.StatusBadRequest, errorsx.ReasonGatewayInvalidParams},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/recharges/inquire" {
				json.NewEncoder(w).Encode(map[string]string{"reference_number": "REF-1"})
				return
			}
			http.Error(w, `{"message":"rejected"}`, tc.status)
		}))
		_, err := c.Purchase(context.Background(), PurchaseRequest{PhoneNumber: "08111222333", Amount: 50000})
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if !errorsx.HasReason(err, tc.reason) {
			t.Fatalf("status %d: expected reason %s, got %s", tc.status, tc.reason, errorsx.Reason(err))
		}
	}
}

func TestPurchaseSimulationFallback(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond},
		slog.New(slog.DiscardHandler))
	c.retry = resilience.NewRetryPolicy(1, time.Millisecond, time.Millisecond)

	tx, err := c.Purchase(context.Background(), PurchaseRequest{PhoneNumber: "08111222333", Amount: 50000})
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if !tx.Success || !tx.Simulated {
		t.Fatalf("expected simulated success, got %+v", tx)
	}
	if tx.UniqueID == "" {
		t.Fatalf("expected synthetic transaction id")
	}
}

func TestGetStatusNoFallback(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 100 * time.Millisecond},
		slog.New(slog.DiscardHandler))
	_, err := c.GetStatus(context.Background(), "UID-1")
	if err == nil {
		t.Fatalf("expected status check error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonStatusCheck) {
		t.Fatalf("expected status_check reason, got %s", errorsx.Reason(err))
	}
}

func TestAdminFeeCeiling(t *testing.T) {
	if Price(50000) != 52500 {
		t.Fatalf("expected 52500, got %d", Price(50000))
	}
	// 1001 * 0.05 = 50.05, rounded up to 51.
	if AdminFee(1001) != 51 {
		t.Fatalf("expected fee 51, got %d", AdminFee(1001))
	}
}
