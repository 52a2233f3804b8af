// Package widget implements the login/logout control: it reconciles the
// displayed session state from credential cookies, runs the sign-in and
// sign-out flows, and renders a view model.
package widget

import (
	"context"
	"errors"
	"sync"

	"github.com/tyemirov/authwidget/internal/backend"
	"github.com/tyemirov/authwidget/internal/bootstrap"
	"github.com/tyemirov/authwidget/internal/browser"
	"github.com/tyemirov/authwidget/internal/cookies"
	"github.com/tyemirov/authwidget/internal/identity"
	"github.com/tyemirov/authwidget/internal/sessionstate"
	"go.uber.org/zap"
)

// CookieJar is the cookie surface the widget needs.
type CookieJar interface {
	Get(name string) (string, bool)
	Clear(ctx context.Context, name string) error
	ClearAll(ctx context.Context, prefixFilter string) error
	Replace(ctx context.Context, entries []cookies.Entry, options cookies.Options) error
}

// Dependencies are injected into the widget. Jar, Store, Authorizer,
// UserInfo and Backend are required.
type Dependencies struct {
	Jar            CookieJar
	Store          sessionstate.Port
	Signals        browser.SignalSource
	Authorizer     identity.Authorizer
	UserInfo       identity.UserInfoFetcher
	Backend        backend.Exchanger
	Confirmer      browser.Confirmer
	LocalStorage   browser.Storage
	SessionStorage browser.Storage
	Navigator      browser.Navigator
	Theme          bootstrap.Theme
	Logger         *zap.Logger
	Metrics        MetricsRecorder
}

// Widget is the auth control. It is safe for concurrent use; its lock is
// never held across network calls.
type Widget struct {
	dependencies Dependencies
	logger       *zap.Logger
	metrics      MetricsRecorder

	// commitMutex orders credential reads in Reconcile against the
	// credential writes of SignIn and SignOut.
	commitMutex sync.Mutex

	mutex       sync.Mutex
	loggedIn    bool
	loading     bool
	mounted     bool
	releases    []func()
	watchers    map[uint64]func(View)
	nextWatcher uint64
}

// New validates dependencies and constructs an unmounted widget.
func New(dependencies Dependencies) (*Widget, error) {
	switch {
	case dependencies.Jar == nil:
		return nil, errors.New("widget.new: cookie jar is required")
	case dependencies.Store == nil:
		return nil, errors.New("widget.new: session store is required")
	case dependencies.Authorizer == nil:
		return nil, errors.New("widget.new: authorizer is required")
	case dependencies.UserInfo == nil:
		return nil, errors.New("widget.new: userinfo fetcher is required")
	case dependencies.Backend == nil:
		return nil, errors.New("widget.new: backend exchanger is required")
	}
	if dependencies.Confirmer == nil {
		dependencies.Confirmer = browser.AlwaysConfirm{}
	}
	if dependencies.Theme == (bootstrap.Theme{}) {
		dependencies.Theme = bootstrap.DefaultTheme()
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := dependencies.Metrics
	if metrics == nil {
		metrics = NewCounterMetrics()
	}
	return &Widget{
		dependencies: dependencies,
		logger:       logger,
		metrics:      metrics,
		watchers:     make(map[uint64]func(View)),
	}, nil
}

// State returns the current derived state.
func (widget *Widget) State() State {
	widget.mutex.Lock()
	defer widget.mutex.Unlock()
	return deriveState(widget.loggedIn, widget.loading)
}

// Mount reconciles once and starts listening for focus and storage
// signals and for store changes. Calling Mount twice is a no-op.
func (widget *Widget) Mount() {
	widget.mutex.Lock()
	if widget.mounted {
		widget.mutex.Unlock()
		return
	}
	widget.mounted = true
	releases := []func(){
		widget.dependencies.Store.Subscribe(func(*sessionstate.Profile) { widget.notify() }),
	}
	if widget.dependencies.Signals != nil {
		onSignal := func(kind browser.EventKind) {
			widget.logger.Debug("external session signal",
				zap.String("code", "widget.reconcile.signal"),
				zap.String("kind", string(kind)))
			widget.Reconcile()
		}
		releases = append(releases,
			widget.dependencies.Signals.Subscribe(browser.EventFocus, onSignal),
			widget.dependencies.Signals.Subscribe(browser.EventStorage, onSignal),
		)
	}
	widget.releases = releases
	widget.mutex.Unlock()

	widget.Reconcile()
}

// Unmount releases every subscription taken by Mount.
func (widget *Widget) Unmount() {
	widget.mutex.Lock()
	releases := widget.releases
	widget.releases = nil
	widget.mounted = false
	widget.mutex.Unlock()
	for _, release := range releases {
		release()
	}
}

// Reconcile derives the login flag from credential cookies. When either
// cookie is missing, a stale profile is cleared from the store. It never
// performs network calls.
func (widget *Widget) Reconcile() {
	widget.commitMutex.Lock()
	authenticated := widget.hasCredential()
	widget.mutex.Lock()
	widget.loggedIn = authenticated
	widget.mutex.Unlock()

	if !authenticated && widget.dependencies.Store.Get() != nil {
		widget.metrics.Increment(metricReconcileCleared)
		widget.logger.Info("session credential missing; clearing profile",
			zap.String("code", "widget.reconcile.cleared_profile"))
		widget.dependencies.Store.Set(nil)
	}
	widget.commitMutex.Unlock()
	widget.notify()
}

func (widget *Widget) hasCredential() bool {
	serverToken, hasServerToken := widget.dependencies.Jar.Get(ServerTokenCookie)
	googleToken, hasGoogleToken := widget.dependencies.Jar.Get(GoogleTokenCookie)
	return hasServerToken && serverToken != "" && hasGoogleToken && googleToken != ""
}

// Watch registers observer for every re-render. The returned function
// stops the observation.
func (widget *Widget) Watch(observer func(View)) func() {
	widget.mutex.Lock()
	defer widget.mutex.Unlock()
	watcherID := widget.nextWatcher
	widget.nextWatcher++
	widget.watchers[watcherID] = observer
	var once sync.Once
	return func() {
		once.Do(func() {
			widget.mutex.Lock()
			defer widget.mutex.Unlock()
			delete(widget.watchers, watcherID)
		})
	}
}

func (widget *Widget) notify() {
	widget.mutex.Lock()
	observers := make([]func(View), 0, len(widget.watchers))
	for _, observer := range widget.watchers {
		observers = append(observers, observer)
	}
	widget.mutex.Unlock()
	if len(observers) == 0 {
		return
	}
	view := widget.Render()
	for _, observer := range observers {
		observer(view)
	}
}

func (widget *Widget) setLoading(loading bool) {
	widget.mutex.Lock()
	widget.loading = loading
	widget.mutex.Unlock()
	widget.notify()
}

func (widget *Widget) setLoggedIn(loggedIn bool) {
	widget.mutex.Lock()
	widget.loggedIn = loggedIn
	widget.mutex.Unlock()
}
