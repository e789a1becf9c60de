package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tyo-it/pulsa-bridge/pkg/errorsx"
	"github.com/tyo-it/pulsa-bridge/pkg/gateway"
	"github.com/tyo-it/pulsa-bridge/pkg/session"
)

type fakePipeline struct {
	availability gateway.Availability
	availErr     error
	transaction  *gateway.Transaction
	purchaseErr  error

	lastInquiry  string
	lastPurchase gateway.PurchaseRequest
}

func (f *fakePipeline) CheckAvailability(_ context.Context, phoneNumber string, amount int64) (gateway.Availability, error) {
	f.lastInquiry = phoneNumber
	return f.availability, f.availErr
}

func (f *fakePipeline) Purchase(_ context.Context, req gateway.PurchaseRequest) (*gateway.Transaction, error) {
	f.lastPurchase = req
	return f.transaction, f.purchaseErr
}

func newOrchestrator(pipeline Pipeline) (*Orchestrator, *session.MemoryStore) {
	store := session.NewMemoryStore(session.DefaultTTL)
	o := New(pipeline, store, session.DefaultTTL, slog.New(slog.DiscardHandler))
	return o, store
}

func TestHandleUtteranceThroughConfirm(t *testing.T) {
	pipeline := &fakePipeline{
		availability: gateway.Availability{
			Available:       true,
			Price:           gateway.Price(50000),
			ReferenceNumber: "REF-42",
		},
		transaction: &gateway.Transaction{
			Success:      true,
			UniqueID:     "TX-1",
			Status:       "completed",
			SerialNumber: "SN-123",
		},
	}
	o, store := newOrchestrator(pipeline)

	res := o.HandleUtterance(context.Background(), "", "Topup pulsa lima puluh ribu nomor 08111222333")
	if res.Kind != KindConfirmation {
		t.Fatalf("kind = %s, err = %s", res.Kind, res.Err)
	}
	if res.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if res.Availability.Price != 52500 {
		t.Fatalf("price = %d, want 52500", res.Availability.Price)
	}
	if !strings.Contains(res.Reply, "52.500") {
		t.Fatalf("reply must state the total price: %q", res.Reply)
	}
	if pipeline.lastInquiry != "08111222333" {
		t.Fatalf("inquiry used %q", pipeline.lastInquiry)
	}
	s, ok := store.Get(res.SessionID)
	if !ok || s.Stage != session.StageAwaitingConfirmation {
		t.Fatalf("session not awaiting confirmation: %+v ok=%v", s, ok)
	}

	confirmed, err := o.Confirm(context.Background(), res.SessionID, true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Kind != KindCompleted {
		t.Fatalf("kind = %s, err = %s", confirmed.Kind, confirmed.Err)
	}
	if confirmed.Transaction.SerialNumber != "SN-123" {
		t.Fatalf("transaction = %+v", confirmed.Transaction)
	}
	if pipeline.lastPurchase.ReferenceNumber != "REF-42" {
		t.Fatalf("purchase must reuse the inquiry reference, got %q", pipeline.lastPurchase.ReferenceNumber)
	}
	if store.Len() != 0 {
		t.Fatalf("session must be consumed after confirm")
	}
}

func TestHandleUtteranceNoIntentLeavesNoSession(t *testing.T) {
	o, store := newOrchestrator(&fakePipeline{})
	res := o.HandleUtterance(context.Background(), "", "Hello world, how are you?")
	if res.Kind != KindNoIntent {
		t.Fatalf("kind = %s", res.Kind)
	}
	if !strings.Contains(res.Reply, "Beli pulsa") {
		t.Fatalf("no-intent reply must suggest an example phrase: %q", res.Reply)
	}
	if store.Len() != 0 {
		t.Fatalf("no-intent must not create a session")
	}
}

func TestHandleUtteranceInvalidPhoneLeavesNoSession(t *testing.T) {
	o, store := newOrchestrator(&fakePipeline{})
	res := o.HandleUtterance(context.Background(), "", "Beli pulsa sepuluh ribu untuk 084112345678")
	if res.Kind != KindInvalid {
		t.Fatalf("kind = %s", res.Kind)
	}
	if res.Validation == nil || res.Validation.Valid {
		t.Fatalf("validation = %+v", res.Validation)
	}
	if store.Len() != 0 {
		t.Fatalf("invalid phone must not create a session")
	}
}

func TestHandleUtteranceGatewayDown(t *testing.T) {
	pipeline := &fakePipeline{
		availErr: errorsx.New(errorsx.ReasonGatewayAuth, "recharge inquire: unauthorized"),
	}
	o, store := newOrchestrator(pipeline)
	res := o.HandleUtterance(context.Background(), "", "Isi pulsa lima ribu ke 08111222333")
	if res.Kind != KindUnavailable {
		t.Fatalf("kind = %s", res.Kind)
	}
	if res.Err == "" {
		t.Fatalf("expected the gateway error to surface")
	}
	if store.Len() != 0 {
		t.Fatalf("failed availability must not create a session")
	}
}

func TestConfirmUnknownSession(t *testing.T) {
	o, _ := newOrchestrator(&fakePipeline{})
	_, err := o.Confirm(context.Background(), "nope", true)
	if err == nil {
		t.Fatalf("expected expired error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonSessionExpired) {
		t.Fatalf("reason = %s", errorsx.Reason(err))
	}
}

func TestConfirmFalseCancels(t *testing.T) {
	pipeline := &fakePipeline{
		availability: gateway.Availability{Available: true, Price: 5250, ReferenceNumber: "REF-1"},
	}
	o, store := newOrchestrator(pipeline)
	res := o.HandleUtterance(context.Background(), "sess-1", "Beli pulsa lima ribu untuk 08111222333")
	if res.Kind != KindConfirmation {
		t.Fatalf("kind = %s, err = %s", res.Kind, res.Err)
	}

	cancelled, err := o.Confirm(context.Background(), "sess-1", false)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if cancelled.Kind != KindCancelled {
		t.Fatalf("kind = %s", cancelled.Kind)
	}
	if pipeline.lastPurchase.PhoneNumber != "" {
		t.Fatalf("cancel must not reach the gateway")
	}
	if store.Len() != 0 {
		t.Fatalf("cancelled session must be deleted")
	}

	// A second confirm of the same session is gone either way.
	if _, err := o.Confirm(context.Background(), "sess-1", true); !errorsx.HasReason(err, errorsx.ReasonSessionExpired) {
		t.Fatalf("expected session_expired, got %v", err)
	}
}

func TestConfirmAfterExpiry(t *testing.T) {
	pipeline := &fakePipeline{
		availability: gateway.Availability{Available: true, Price: 5250},
	}
	store := session.NewMemoryStore(10 * time.Millisecond)
	o := New(pipeline, store, 10*time.Millisecond, slog.New(slog.DiscardHandler))

	res := o.HandleUtterance(context.Background(), "", "Beli pulsa lima ribu untuk 08111222333")
	if res.Kind != KindConfirmation {
		t.Fatalf("kind = %s", res.Kind)
	}
	time.Sleep(20 * time.Millisecond)

	_, err := o.Confirm(context.Background(), res.SessionID, true)
	if !errorsx.HasReason(err, errorsx.ReasonSessionExpired) {
		t.Fatalf("expected session_expired, got %v", err)
	}
	if pipeline.lastPurchase.PhoneNumber != "" {
		t.Fatalf("expired confirm must not reach the gateway")
	}
}

func TestConfirmFailedPurchase(t *testing.T) {
	pipeline := &fakePipeline{
		availability: gateway.Availability{Available: true, Price: 5250, ReferenceNumber: "REF-1"},
		purchaseErr:  errorsx.New(errorsx.ReasonGatewayInsufficientBalance, "recharge pay: insufficient balance"),
	}
	o, store := newOrchestrator(pipeline)
	res := o.HandleUtterance(context.Background(), "", "Beli pulsa lima ribu untuk 08111222333")

	failed, err := o.Confirm(context.Background(), res.SessionID, true)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if failed.Kind != KindFailed {
		t.Fatalf("kind = %s", failed.Kind)
	}
	if failed.Err == "" {
		t.Fatalf("failure must carry the gateway error")
	}
	if store.Len() != 0 {
		t.Fatalf("failed session must be deleted")
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{
		500:     "500",
		5000:    "5.000",
		52500:   "52.500",
		1050000: "1.050.000",
	}
	for n, want := range cases {
		if got := formatRupiah(n); got != want {
			t.Fatalf("formatRupiah(%d) = %q, want %q", n, got, want)
		}
	}
}
