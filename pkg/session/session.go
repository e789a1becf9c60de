// Package session holds per-conversation purchase state. A session is
// created once an utterance survives validation and an availability
// check, and lives until the purchase completes, is cancelled, fails,
// or expires.
package session

import (
	"fmt"
	"time"
)

// Stage is a step in the purchase conversation. Stages only ever
// advance; a transition backward is a programming error.
type Stage int

const (
	StageIdle Stage = iota
	StageParsed
	StageAvailable
	StageAwaitingConfirmation
	StageExecuting
	StageCompleted
	StageCancelled
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "IDLE"
	case StageParsed:
		return "PARSED"
	case StageAvailable:
		return "AVAILABLE"
	case StageAwaitingConfirmation:
		return "AWAITING_CONFIRMATION"
	case StageExecuting:
		return "EXECUTING"
	case StageCompleted:
		return "COMPLETED"
	case StageCancelled:
		return "CANCELLED"
	case StageFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is allowed.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageCancelled || s == StageFailed
}

// Session is one in-flight purchase conversation.
type Session struct {
	ID              string
	PhoneNumber     string
	Amount          int64
	Provider        string
	ReferenceNumber string
	Price           int64
	Stage           Stage
	CreatedAt       time.Time
}

// Advance moves the session to a later stage. Terminal stages accept
// no transition, and the stage order is monotonic.
func (s *Session) Advance(to Stage) error {
	if s.Stage.Terminal() {
		return &InvalidTransitionError{From: s.Stage, To: to}
	}
	if to <= s.Stage {
		return &InvalidTransitionError{From: s.Stage, To: to}
	}
	s.Stage = to
	return nil
}

// Expired reports whether the session has outlived the ttl.
func (s *Session) Expired(ttl time.Duration) bool {
	return time.Since(s.CreatedAt) > ttl
}

// InvalidTransitionError reports a stage transition that would move
// backward or out of a terminal stage.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition from %s to %s", e.From, e.To)
}

// ExpiredError is returned when a caller confirms a session that no
// longer exists, whether it expired or never existed at all.
type ExpiredError struct {
	SessionID string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("session %s has expired or does not exist", e.SessionID)
}
