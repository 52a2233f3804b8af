package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// stateStore binds one-time OAuth state values to their PKCE verifiers.
type stateStore struct {
	mutex     sync.Mutex
	entries   map[string]stateEntry
	ttl       time.Duration
	now       func() time.Time
	tokenSize int
}

type stateEntry struct {
	verifier  string
	expiresAt time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{
		entries:   make(map[string]stateEntry),
		ttl:       ttl,
		now:       time.Now,
		tokenSize: 32,
	}
}

func (store *stateStore) Issue(ctx context.Context, verifier string) (string, error) {
	state, err := store.randomState()
	if err != nil {
		return "", err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.purgeExpiredLocked()
	store.entries[state] = stateEntry{verifier: verifier, expiresAt: store.now().Add(store.ttl)}
	return state, nil
}

func (store *stateStore) Consume(ctx context.Context, state string) (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	entry, ok := store.entries[state]
	if !ok {
		store.purgeExpiredLocked()
		return "", ErrStateNotFound
	}
	delete(store.entries, state)
	if store.now().After(entry.expiresAt) {
		store.purgeExpiredLocked()
		return "", ErrStateExpired
	}
	store.purgeExpiredLocked()
	return entry.verifier, nil
}

func (store *stateStore) purgeExpiredLocked() {
	if len(store.entries) == 0 {
		return
	}
	now := store.now()
	for state, entry := range store.entries {
		if now.After(entry.expiresAt) {
			delete(store.entries, state)
		}
	}
}

func (store *stateStore) randomState() (string, error) {
	buffer := make([]byte, store.tokenSize)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
