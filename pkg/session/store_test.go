package session

import (
	"context"
	"testing"
	"time"
)

func TestStageAdvanceMonotonic(t *testing.T) {
	s := &Session{ID: "a", Stage: StageAwaitingConfirmation}
	if err := s.Advance(StageExecuting); err != nil {
		t.Fatalf("advance error: %v", err)
	}
	if err := s.Advance(StageAwaitingConfirmation); err == nil {
		t.Fatalf("expected backward transition to fail")
	}
	if err := s.Advance(StageCompleted); err != nil {
		t.Fatalf("advance to terminal error: %v", err)
	}
	if err := s.Advance(StageFailed); err == nil {
		t.Fatalf("expected transition out of terminal stage to fail")
	}
}

func TestTakeRemovesAtomically(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	store.Put(&Session{ID: "a", Stage: StageAwaitingConfirmation, CreatedAt: time.Now()})

	s, ok := store.Take("a")
	if !ok || s.ID != "a" {
		t.Fatalf("expected to take session a")
	}
	if _, ok := store.Take("a"); ok {
		t.Fatalf("second take must miss")
	}
	if _, ok := store.Get("a"); ok {
		t.Fatalf("taken session must be gone")
	}
}

func TestExpiredSessionInvisible(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	store.Put(&Session{ID: "a", CreatedAt: time.Now().Add(-time.Second)})

	if _, ok := store.Get("a"); ok {
		t.Fatalf("expired session must not be returned by Get")
	}
	if _, ok := store.Take("a"); ok {
		t.Fatalf("expired session must not be returned by Take")
	}
}

func TestSweeperRemovesExpired(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	store.Put(&Session{ID: "old", CreatedAt: time.Now().Add(-time.Second)})
	store.Put(&Session{ID: "fresh", CreatedAt: time.Now().Add(time.Hour)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartSweeper(ctx, 5*time.Millisecond, nil)

	deadline := time.Now().Add(time.Second)
	for store.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not remove expired session, len=%d", store.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Fatalf("fresh session must survive the sweep")
	}
}
