package widget

import "errors"

// State is the derived login state of the widget.
type State int

const (
	// LoggedOut renders the sign-in affordance.
	LoggedOut State = iota
	// LoggingIn renders a busy, non-interactive sign-in affordance.
	LoggingIn
	// LoggedIn renders the signed-in identity and the sign-out menu.
	LoggedIn
)

// String returns the state name.
func (state State) String() string {
	switch state {
	case LoggedOut:
		return "LoggedOut"
	case LoggingIn:
		return "LoggingIn"
	case LoggedIn:
		return "LoggedIn"
	default:
		return "Unknown"
	}
}

const (
	// ServerTokenCookie holds the backend session token.
	ServerTokenCookie = "server_token"
	// GoogleTokenCookie holds the identity-provider access token.
	GoogleTokenCookie = "google_token"

	// SignOutPrompt is the confirmation shown before signing out.
	SignOutPrompt = "Are you sure you want to log out?"
	// HomeLocation is where sign-out navigates to.
	HomeLocation = "/"
)

var (
	// ErrSignInInProgress indicates a sign-in attempt is already running.
	ErrSignInInProgress = errors.New("widget.signin_in_progress")
	// ErrAlreadySignedIn indicates sign-in was requested while signed in.
	ErrAlreadySignedIn = errors.New("widget.already_signed_in")
)

func deriveState(loggedIn bool, loading bool) State {
	switch {
	case loading:
		return LoggingIn
	case loggedIn:
		return LoggedIn
	default:
		return LoggedOut
	}
}
