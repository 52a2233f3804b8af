// Package bootstrap establishes the ambient context the auth widget runs
// in: the identity-provider client, the session-state store, and the theme.
package bootstrap

import (
	"github.com/tyemirov/authwidget/internal/identity"
	"github.com/tyemirov/authwidget/internal/sessionstate"
	"golang.org/x/oauth2"
)

// Theme holds the visual tokens applied to the widget.
type Theme struct {
	Primary    string
	Hover      string
	Active     string
	Text       string
	FontFamily string
	Radius     int
}

// DefaultTheme is the yellow button palette.
func DefaultTheme() Theme {
	return Theme{
		Primary:    "yellow.400",
		Hover:      "yellow.500",
		Active:     "yellow.600",
		Text:       "black",
		FontFamily: "arial",
		Radius:     16,
	}
}

func (theme Theme) withDefaults() Theme {
	defaults := DefaultTheme()
	if theme.Primary == "" {
		theme.Primary = defaults.Primary
	}
	if theme.Hover == "" {
		theme.Hover = defaults.Hover
	}
	if theme.Active == "" {
		theme.Active = defaults.Active
	}
	if theme.Text == "" {
		theme.Text = defaults.Text
	}
	if theme.FontFamily == "" {
		theme.FontFamily = defaults.FontFamily
	}
	if theme.Radius <= 0 {
		theme.Radius = defaults.Radius
	}
	return theme
}

// Config is the fixed application configuration.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	Theme              Theme
}

// Providers is the ambient context shared by everything rendered inside Wrap.
type Providers struct {
	Identity *oauth2.Config
	Store    *sessionstate.Store
	Theme    Theme
}

// New builds the ambient context. It performs no I/O; a bad client
// identifier only surfaces when the identity provider rejects it.
func New(configuration Config) *Providers {
	return &Providers{
		Identity: identity.NewGoogleConfig(configuration.GoogleClientID, configuration.GoogleClientSecret),
		Store:    sessionstate.NewStore(),
		Theme:    configuration.Theme.withDefaults(),
	}
}

// Wrap renders children inside the ambient context.
func (providers *Providers) Wrap(children func(*Providers) string) string {
	if children == nil {
		return ""
	}
	return children(providers)
}
