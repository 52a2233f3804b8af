package widget

import (
	"strings"

	"github.com/tyemirov/authwidget/internal/bootstrap"
)

// Action is what activating a control does.
type Action string

const (
	ActionSignIn   Action = "sign_in"
	ActionOpenMenu Action = "open_menu"
	ActionSignOut  Action = "sign_out"
)

const (
	signInLabel   = "Login with Google"
	signOutLabel  = "Logout"
	fallbackName  = "User"
	greetingStart = "Hello, "
)

// Button is a clickable control.
type Button struct {
	Label       string
	Icon        string
	Busy        bool
	Interactive bool
	Action      Action
}

// MenuItem is an entry of the disclosure menu.
type MenuItem struct {
	Label  string
	Action Action
}

// View is the rendered widget.
type View struct {
	State    State
	Greeting string
	Button   Button
	Menu     []MenuItem
	Theme    bootstrap.Theme
}

// Render builds the view for the current state and stored profile.
func (widget *Widget) Render() View {
	state := widget.State()
	view := View{State: state, Theme: widget.dependencies.Theme}
	switch state {
	case LoggedIn:
		name := widget.dependencies.Store.Get().FirstName()
		if name == "" {
			name = fallbackName
		}
		view.Greeting = greetingStart + name
		view.Button = Button{Icon: "chevron-down", Interactive: true, Action: ActionOpenMenu}
		view.Menu = []MenuItem{{Label: signOutLabel, Action: ActionSignOut}}
	case LoggingIn:
		view.Button = Button{Label: signInLabel, Icon: "google", Busy: true, Action: ActionSignIn}
	default:
		view.Button = Button{Label: signInLabel, Icon: "google", Interactive: true, Action: ActionSignIn}
	}
	return view
}

// String renders the view as a single line of text.
func (view View) String() string {
	var builder strings.Builder
	switch view.State {
	case LoggedIn:
		builder.WriteString(view.Greeting)
		builder.WriteString(" [v]")
		for _, item := range view.Menu {
			builder.WriteString(" (")
			builder.WriteString(item.Label)
			builder.WriteString(")")
		}
	default:
		builder.WriteString("[ ")
		builder.WriteString(view.Button.Label)
		if view.Button.Busy {
			builder.WriteString(" ...")
		}
		builder.WriteString(" ]")
	}
	return builder.String()
}
