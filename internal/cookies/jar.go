package cookies

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// SessionMaxAge is the lifetime of credential cookies written by the widget.
const SessionMaxAge = 30 * 24 * time.Hour

// Options are the attributes applied to a cookie when it is written.
type Options struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	SameSite http.SameSite
	Secure   bool
}

// SessionOptions returns the attributes used for session credential cookies:
// path=/, max-age=2592000, SameSite=Lax, Secure.
func SessionOptions() Options {
	return Options{
		Path:     "/",
		MaxAge:   SessionMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
	}
}

// Record is a single stored cookie.
type Record struct {
	Name      string
	Value     string
	Path      string
	Domain    string
	ExpiresAt time.Time
	SameSite  http.SameSite
	Secure    bool
}

func (record Record) expired(now time.Time) bool {
	return !record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt)
}

// Entry is a name/value pair written by Replace.
type Entry struct {
	Name  string
	Value string
}

// Store persists the jar contents.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	// Save replaces every persisted record with the supplied set in one unit.
	Save(ctx context.Context, records []Record) error
}

// Jar is a typed cookie jar. Every mutation is computed on a copy, persisted
// through the Store, and only then published, so a failed write leaves the
// jar unchanged.
type Jar struct {
	mutex   sync.Mutex
	records []Record
	store   Store
	now     func() time.Time
}

// NewJar loads the jar from store. A nil store keeps cookies in memory only.
func NewJar(ctx context.Context, store Store) (*Jar, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	jar := &Jar{store: store, now: time.Now}
	loaded, loadErr := store.Load(ctx)
	if loadErr != nil {
		return nil, fmt.Errorf("cookies.load: %w", loadErr)
	}
	jar.records = jar.live(loaded)
	return jar, nil
}

// Reload replaces the in-memory view with what the store currently holds,
// picking up writes made by another process sharing the store.
func (jar *Jar) Reload(ctx context.Context) error {
	loaded, loadErr := jar.store.Load(ctx)
	if loadErr != nil {
		return fmt.Errorf("cookies.reload: %w", loadErr)
	}
	jar.mutex.Lock()
	defer jar.mutex.Unlock()
	jar.records = jar.live(loaded)
	return nil
}

// Get returns the value of the named cookie when it is set and not expired.
func (jar *Jar) Get(name string) (string, bool) {
	jar.mutex.Lock()
	defer jar.mutex.Unlock()
	now := jar.now()
	for _, record := range jar.records {
		if record.Name == name && !record.expired(now) {
			return record.Value, true
		}
	}
	return "", false
}

// Set writes a cookie. Every existing cookie with the same name is expired
// first, whatever its path or domain, so no stale duplicate survives.
func (jar *Jar) Set(ctx context.Context, name string, value string, options Options) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("cookies.set: %w", ErrEmptyName)
	}
	return jar.mutate(ctx, "cookies.set", func(records []Record, now time.Time) []Record {
		kept := withoutMatching(records, func(record Record) bool { return record.Name == name })
		return append(kept, newRecord(name, value, options, now))
	})
}

// Clear expires every cookie with the given name.
func (jar *Jar) Clear(ctx context.Context, name string) error {
	return jar.mutate(ctx, "cookies.clear", func(records []Record, now time.Time) []Record {
		return withoutMatching(records, func(record Record) bool { return record.Name == name })
	})
}

// ClearAll expires every cookie whose name starts with prefixFilter. An empty
// filter clears the whole jar.
func (jar *Jar) ClearAll(ctx context.Context, prefixFilter string) error {
	return jar.mutate(ctx, "cookies.clear_all", func(records []Record, now time.Time) []Record {
		return withoutMatching(records, func(record Record) bool { return strings.HasPrefix(record.Name, prefixFilter) })
	})
}

// Replace expires every current cookie and writes entries in a single
// persisted step: either all entries are stored or none are.
func (jar *Jar) Replace(ctx context.Context, entries []Entry, options Options) error {
	for _, entry := range entries {
		if strings.TrimSpace(entry.Name) == "" {
			return fmt.Errorf("cookies.replace: %w", ErrEmptyName)
		}
	}
	return jar.mutate(ctx, "cookies.replace", func(records []Record, now time.Time) []Record {
		replaced := make([]Record, 0, len(entries))
		for _, entry := range entries {
			replaced = withoutMatching(replaced, func(record Record) bool { return record.Name == entry.Name })
			replaced = append(replaced, newRecord(entry.Name, entry.Value, options, now))
		}
		return replaced
	})
}

// Names lists the live cookie names in sorted order.
func (jar *Jar) Names() []string {
	jar.mutex.Lock()
	defer jar.mutex.Unlock()
	now := jar.now()
	seen := make(map[string]struct{}, len(jar.records))
	names := make([]string, 0, len(jar.records))
	for _, record := range jar.records {
		if record.expired(now) {
			continue
		}
		if _, exists := seen[record.Name]; exists {
			continue
		}
		seen[record.Name] = struct{}{}
		names = append(names, record.Name)
	}
	sort.Strings(names)
	return names
}

// Cookies returns the live cookies with their attributes.
func (jar *Jar) Cookies() []*http.Cookie {
	jar.mutex.Lock()
	defer jar.mutex.Unlock()
	now := jar.now()
	cookies := make([]*http.Cookie, 0, len(jar.records))
	for _, record := range jar.records {
		if record.expired(now) {
			continue
		}
		cookie := &http.Cookie{
			Name:     record.Name,
			Value:    record.Value,
			Path:     record.Path,
			Domain:   record.Domain,
			SameSite: record.SameSite,
			Secure:   record.Secure,
		}
		if !record.ExpiresAt.IsZero() {
			cookie.MaxAge = int(record.ExpiresAt.Sub(now) / time.Second)
		}
		cookies = append(cookies, cookie)
	}
	return cookies
}

func (jar *Jar) mutate(ctx context.Context, operation string, change func([]Record, time.Time) []Record) error {
	jar.mutex.Lock()
	defer jar.mutex.Unlock()
	now := jar.now()
	current := make([]Record, len(jar.records))
	copy(current, jar.records)
	next := jar.liveAt(change(current, now), now)
	if saveErr := jar.store.Save(ctx, next); saveErr != nil {
		return fmt.Errorf("%s: %w", operation, saveErr)
	}
	jar.records = next
	return nil
}

func (jar *Jar) live(records []Record) []Record {
	return jar.liveAt(records, jar.now())
}

func (jar *Jar) liveAt(records []Record, now time.Time) []Record {
	return withoutMatching(records, func(record Record) bool { return record.expired(now) })
}

func newRecord(name string, value string, options Options, now time.Time) Record {
	record := Record{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		SameSite: options.SameSite,
		Secure:   options.Secure,
	}
	if record.Path == "" {
		record.Path = "/"
	}
	if options.MaxAge > 0 {
		record.ExpiresAt = now.Add(options.MaxAge)
	}
	return record
}

func withoutMatching(records []Record, matches func(Record) bool) []Record {
	kept := make([]Record, 0, len(records))
	for _, record := range records {
		if !matches(record) {
			kept = append(kept, record)
		}
	}
	return kept
}
