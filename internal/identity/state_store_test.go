package identity

import (
	"context"
	"testing"
	"time"
)

func TestStateStoreIssueAndConsume(t *testing.T) {
	t.Parallel()
	store := newStateStore(2 * time.Minute)
	store.now = func() time.Time { return time.Unix(1000, 0) }

	state, err := store.Issue(context.Background(), "verifier-1")
	if err != nil {
		t.Fatalf("issue state: %v", err)
	}
	if state == "" {
		t.Fatalf("expected state")
	}

	verifier, err := store.Consume(context.Background(), state)
	if err != nil {
		t.Fatalf("consume state: %v", err)
	}
	if verifier != "verifier-1" {
		t.Fatalf("unexpected verifier %q", verifier)
	}

	if _, err := store.Consume(context.Background(), state); err != ErrStateNotFound {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}
}

func TestStateStoreExpiry(t *testing.T) {
	t.Parallel()
	store := newStateStore(time.Minute)
	current := time.Unix(1000, 0)
	store.now = func() time.Time { return current }

	state, err := store.Issue(context.Background(), "verifier")
	if err != nil {
		t.Fatalf("issue state: %v", err)
	}

	current = current.Add(2 * time.Minute)

	if _, err := store.Consume(context.Background(), state); err != ErrStateExpired {
		t.Fatalf("expected ErrStateExpired, got %v", err)
	}
}
