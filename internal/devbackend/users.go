package devbackend

import (
	"context"
	"errors"
	"sync"

	"github.com/tyemirov/authwidget/internal/sessionstate"
)

// ErrUserProfileNotFound is returned when a profile is missing in the store.
var ErrUserProfileNotFound = errors.New("devbackend.user_profile_not_found")

// UserStore persists profiles keyed by application user id.
type UserStore interface {
	UpsertGoogleUser(ctx context.Context, googleSub string, profile sessionstate.Profile) (string, error)
	GetUserProfile(ctx context.Context, applicationUserID string) (sessionstate.Profile, error)
}

// InMemoryUsers is the user store used for local runs.
type InMemoryUsers struct {
	mutex sync.RWMutex
	users map[string]sessionstate.Profile
}

// NewInMemoryUsers constructs an empty store.
func NewInMemoryUsers() *InMemoryUsers {
	return &InMemoryUsers{users: make(map[string]sessionstate.Profile)}
}

// UpsertGoogleUser inserts or replaces the profile for a Google subject.
func (store *InMemoryUsers) UpsertGoogleUser(ctx context.Context, googleSub string, profile sessionstate.Profile) (string, error) {
	applicationUserID := "google:" + googleSub
	profile.Subject = googleSub
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.users[applicationUserID] = profile
	return applicationUserID, nil
}

// GetUserProfile returns a profile by application user id.
func (store *InMemoryUsers) GetUserProfile(ctx context.Context, applicationUserID string) (sessionstate.Profile, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	profile, ok := store.users[applicationUserID]
	if !ok {
		return sessionstate.Profile{}, ErrUserProfileNotFound
	}
	return profile, nil
}
