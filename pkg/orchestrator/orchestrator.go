// Package orchestrator drives one purchase conversation from utterance
// to confirmed transaction. It parses speech, validates the number,
// checks availability, and holds the pending purchase in a session
// until the caller confirms or cancels.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tyo-it/pulsa-bridge/pkg/errorsx"
	"github.com/tyo-it/pulsa-bridge/pkg/gateway"
	"github.com/tyo-it/pulsa-bridge/pkg/phone"
	"github.com/tyo-it/pulsa-bridge/pkg/redact"
	"github.com/tyo-it/pulsa-bridge/pkg/session"
	"github.com/tyo-it/pulsa-bridge/pkg/speech"
)

// Pipeline is the transaction backend. *gateway.Client satisfies it,
// as does the tool-provider routed client.
type Pipeline interface {
	CheckAvailability(ctx context.Context, phoneNumber string, amount int64) (gateway.Availability, error)
	Purchase(ctx context.Context, req gateway.PurchaseRequest) (*gateway.Transaction, error)
}

// Result kinds, one per conversational outcome.
const (
	KindNoIntent     = "no_intent"
	KindInvalid      = "invalid"
	KindUnavailable  = "unavailable"
	KindConfirmation = "awaiting_confirmation"
	KindCancelled    = "cancelled"
	KindCompleted    = "completed"
	KindFailed       = "failed"
)

// Result is what one conversational turn produced. Exactly which
// fields are set depends on Kind; Reply is always a speakable
// Indonesian sentence.
type Result struct {
	Kind         string                `json:"kind"`
	SessionID    string                `json:"sessionId,omitempty"`
	Reply        string                `json:"reply"`
	Command      *speech.ParsedCommand `json:"command,omitempty"`
	Validation   *phone.Validation     `json:"validation,omitempty"`
	Availability *gateway.Availability `json:"availability,omitempty"`
	Transaction  *gateway.Transaction  `json:"transaction,omitempty"`
	Err          string                `json:"error,omitempty"`
}

// Orchestrator coordinates the per-session purchase flow.
type Orchestrator struct {
	pipeline Pipeline
	store    session.Store
	ttl      time.Duration
	logger   *slog.Logger
}

func New(pipeline Pipeline, store session.Store, ttl time.Duration, logger *slog.Logger) *Orchestrator {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{pipeline: pipeline, store: store, ttl: ttl, logger: logger}
}

const noIntentReply = "Maaf, saya tidak mengerti. Coba ucapkan misalnya: " +
	`"Beli pulsa lima puluh ribu untuk nomor 08123456789".`

// HandleUtterance processes one transcribed utterance. When the
// request is complete and the denomination is available, a session in
// AWAITING_CONFIRMATION is created and the reply asks the caller to
// confirm the total price. Failed turns leave no session behind.
func (o *Orchestrator) HandleUtterance(ctx context.Context, sessionID, utterance string) *Result {
	traceID := uuid.NewString()
	log := o.logger.With("trace_id", traceID)

	cmd := speech.Parse(utterance)
	if cmd.Err == speech.ErrNoIntent {
		log.Info("utterance_no_intent")
		return &Result{Kind: KindNoIntent, Reply: noIntentReply, Err: cmd.Err}
	}
	if !cmd.Valid {
		log.Info("utterance_incomplete", "error", cmd.Err, "confidence", cmd.Confidence)
		return &Result{
			Kind:    KindInvalid,
			Reply:   "Maaf, " + cmd.Err + ". Mohon sebutkan nomor tujuan dan nominal pulsa.",
			Command: &cmd,
			Err:     cmd.Err,
		}
	}

	v := phone.Validate(cmd.PhoneNumber)
	if !v.Valid {
		log.Info("phone_invalid", "phone", redact.Phone(cmd.PhoneNumber), "reason", v.Reason)
		return &Result{
			Kind:       KindInvalid,
			Reply:      "Maaf, " + v.Reason + ".",
			Command:    &cmd,
			Validation: &v,
			Err:        v.Reason,
		}
	}

	// The carrier table is authoritative. A spoken provider that
	// disagrees with the prefix is noted and overridden.
	provider := v.Provider
	if cmd.Provider != "" && cmd.Provider != v.Provider {
		log.Warn("provider_mismatch", "spoken", cmd.Provider, "carrier", v.Provider)
	}

	avail, err := o.pipeline.CheckAvailability(ctx, v.Normalized, cmd.Amount)
	if err != nil {
		log.Error("availability_check_failed",
			"phone", redact.Phone(v.Normalized),
			"amount", cmd.Amount,
			"reason", string(errorsx.Reason(err)),
			"error", err)
		return &Result{
			Kind:       KindUnavailable,
			Reply:      "Maaf, layanan pembelian pulsa sedang tidak tersedia. Silakan coba lagi nanti.",
			Command:    &cmd,
			Validation: &v,
			Err:        err.Error(),
		}
	}
	if !avail.Available {
		log.Info("denomination_unavailable", "amount", cmd.Amount, "message", avail.Message)
		return &Result{
			Kind:         KindUnavailable,
			Reply:        fmt.Sprintf("Maaf, pulsa Rp%s untuk %s sedang tidak tersedia.", formatRupiah(cmd.Amount), provider),
			Command:      &cmd,
			Validation:   &v,
			Availability: &avail,
			Err:          avail.Message,
		}
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	s := &session.Session{
		ID:              sessionID,
		PhoneNumber:     v.Normalized,
		Amount:          cmd.Amount,
		Provider:        provider,
		ReferenceNumber: avail.ReferenceNumber,
		Price:           avail.Price,
		Stage:           session.StageAwaitingConfirmation,
		CreatedAt:       time.Now(),
	}
	o.store.Put(s)

	log.Info("awaiting_confirmation",
		"session_id", sessionID,
		"phone", redact.Phone(v.Normalized),
		"provider", provider,
		"amount", cmd.Amount,
		"price", avail.Price,
		"simulated", avail.Simulated)

	reply := fmt.Sprintf(
		"Anda akan membeli pulsa %s Rp%s untuk nomor %s. Total pembayaran Rp%s termasuk biaya admin. Lanjutkan?",
		provider, formatRupiah(cmd.Amount), v.Normalized, formatRupiah(avail.Price))
	return &Result{
		Kind:         KindConfirmation,
		SessionID:    sessionID,
		Reply:        reply,
		Command:      &cmd,
		Validation:   &v,
		Availability: &avail,
	}
}

// Confirm resolves a pending session. The session is consumed either
// way; confirming an unknown or expired session returns ExpiredError.
func (o *Orchestrator) Confirm(ctx context.Context, sessionID string, confirmed bool) (*Result, error) {
	s, ok := o.store.Take(sessionID)
	if !ok {
		return nil, errorsx.Wrap(&session.ExpiredError{SessionID: sessionID}, errorsx.ReasonSessionExpired)
	}
	log := o.logger.With("session_id", sessionID)

	if !confirmed {
		_ = s.Advance(session.StageCancelled)
		log.Info("purchase_cancelled", "phone", redact.Phone(s.PhoneNumber))
		return &Result{
			Kind:      KindCancelled,
			SessionID: sessionID,
			Reply:     "Baik, transaksi dibatalkan.",
		}, nil
	}

	if err := s.Advance(session.StageExecuting); err != nil {
		return nil, err
	}
	tx, err := o.pipeline.Purchase(ctx, gateway.PurchaseRequest{
		PhoneNumber:     s.PhoneNumber,
		Amount:          s.Amount,
		Provider:        s.Provider,
		ReferenceNumber: s.ReferenceNumber,
	})
	if err != nil || !tx.Success {
		_ = s.Advance(session.StageFailed)
		res := &Result{
			Kind:        KindFailed,
			SessionID:   sessionID,
			Reply:       "Maaf, pembelian pulsa gagal diproses. Tidak ada biaya yang dikenakan.",
			Transaction: tx,
		}
		if err != nil {
			log.Error("purchase_failed", "reason", string(errorsx.Reason(err)), "error", err)
			res.Err = err.Error()
		} else {
			log.Error("purchase_rejected", "status", tx.Status, "message", tx.Message)
			res.Err = tx.Message
		}
		return res, nil
	}

	_ = s.Advance(session.StageCompleted)
	log.Info("purchase_completed",
		"phone", redact.Phone(s.PhoneNumber),
		"transaction_id", tx.UniqueID,
		"serial_number", tx.SerialNumber,
		"simulated", tx.Simulated)

	reply := fmt.Sprintf("Pulsa Rp%s untuk nomor %s berhasil diisi.",
		formatRupiah(s.Amount), s.PhoneNumber)
	if tx.SerialNumber != "" {
		reply += " Nomor seri " + tx.SerialNumber + "."
	}
	return &Result{
		Kind:        KindCompleted,
		SessionID:   sessionID,
		Reply:       reply,
		Transaction: tx,
	}, nil
}

// formatRupiah renders 52500 as "52.500".
func formatRupiah(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	return string(out)
}
