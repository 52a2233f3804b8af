// Package sessionstate holds the client-side user profile behind a small
// get/set/subscribe port.
package sessionstate

import (
	"encoding/json"
	"strings"
	"sync"
)

// Profile is the display-oriented user record published after login.
type Profile struct {
	Subject       string `json:"sub,omitempty"`
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Locale        string `json:"locale,omitempty"`
	// Extra keeps members of the profile document not modelled above, such
	// as "hd", so they survive the round trip to the backend.
	Extra map[string]json.RawMessage `json:"-"`
}

type profileFields Profile

var profileKeys = map[string]struct{}{
	"sub": {}, "name": {}, "given_name": {}, "family_name": {},
	"picture": {}, "email": {}, "email_verified": {}, "locale": {},
}

// UnmarshalJSON decodes the modelled members and keeps the rest in Extra.
func (profile *Profile) UnmarshalJSON(data []byte) error {
	var fields profileFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	for key := range profileKeys {
		delete(members, key)
	}
	if len(members) == 0 {
		members = nil
	}
	fields.Extra = members
	*profile = Profile(fields)
	return nil
}

// MarshalJSON encodes the modelled members followed by Extra. Modelled
// members win over an Extra entry of the same name.
func (profile Profile) MarshalJSON() ([]byte, error) {
	encoded, err := json.Marshal(profileFields(profile))
	if err != nil || len(profile.Extra) == 0 {
		return encoded, err
	}
	members := make(map[string]json.RawMessage, len(profile.Extra)+len(profileKeys))
	if err := json.Unmarshal(encoded, &members); err != nil {
		return nil, err
	}
	for key, value := range profile.Extra {
		if _, modelled := profileKeys[key]; modelled {
			continue
		}
		members[key] = value
	}
	return json.Marshal(members)
}

// FirstName returns the first whitespace-separated token of Name.
func (profile *Profile) FirstName() string {
	if profile == nil {
		return ""
	}
	fields := strings.Fields(profile.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Port is the session-state dependency consumed by the widget.
type Port interface {
	Get() *Profile
	// Set replaces the profile; nil clears it.
	Set(profile *Profile)
	Subscribe(listener func(*Profile)) (unsubscribe func())
}

// Store is the in-memory Port implementation.
type Store struct {
	mutex     sync.Mutex
	profile   *Profile
	listeners map[uint64]func(*Profile)
	nextID    uint64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{listeners: make(map[uint64]func(*Profile))}
}

// Get returns a copy of the current profile, or nil.
func (store *Store) Get() *Profile {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return cloneProfile(store.profile)
}

// Set replaces the profile and notifies listeners outside the lock.
func (store *Store) Set(profile *Profile) {
	store.mutex.Lock()
	store.profile = cloneProfile(profile)
	listeners := make([]func(*Profile), 0, len(store.listeners))
	for _, listener := range store.listeners {
		listeners = append(listeners, listener)
	}
	published := cloneProfile(store.profile)
	store.mutex.Unlock()

	for _, listener := range listeners {
		listener(cloneProfile(published))
	}
}

// Subscribe registers listener for profile changes.
func (store *Store) Subscribe(listener func(*Profile)) func() {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	listenerID := store.nextID
	store.nextID++
	store.listeners[listenerID] = listener
	var once sync.Once
	return func() {
		once.Do(func() {
			store.mutex.Lock()
			defer store.mutex.Unlock()
			delete(store.listeners, listenerID)
		})
	}
}

func cloneProfile(profile *Profile) *Profile {
	if profile == nil {
		return nil
	}
	clone := *profile
	if profile.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(profile.Extra))
		for key, value := range profile.Extra {
			clone.Extra[key] = append(json.RawMessage(nil), value...)
		}
	}
	return &clone
}
