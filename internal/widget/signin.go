package widget

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyemirov/authwidget/internal/backend"
	"github.com/tyemirov/authwidget/internal/cookies"
	"github.com/tyemirov/authwidget/internal/identity"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// SignIn runs the interactive sign-in. The busy flag is raised before the
// popup and always lowered on return. Credentials are committed only after
// both the userinfo fetch and the backend exchange succeed.
func (widget *Widget) SignIn(ctx context.Context) error {
	widget.mutex.Lock()
	switch {
	case widget.loading:
		widget.mutex.Unlock()
		return ErrSignInInProgress
	case widget.loggedIn:
		widget.mutex.Unlock()
		return ErrAlreadySignedIn
	}
	widget.loading = true
	widget.mutex.Unlock()
	widget.notify()
	defer widget.setLoading(false)

	widget.metrics.Increment(metricSignInAttempt)
	token, authorizeErr := widget.dependencies.Authorizer.Authorize(ctx)
	if authorizeErr != nil {
		return widget.onPopupError(authorizeErr)
	}
	return widget.onPopupSuccess(ctx, token)
}

func (widget *Widget) onPopupError(authorizeErr error) error {
	if !errors.Is(authorizeErr, identity.ErrPopupFlowFailed) {
		authorizeErr = fmt.Errorf("widget.signin.popup: %v: %w", authorizeErr, identity.ErrPopupFlowFailed)
	}
	widget.metrics.Increment(metricSignInFailure)
	widget.logger.Error("google login error",
		zap.String("code", "widget.signin.popup_failed"),
		zap.Error(authorizeErr))
	return authorizeErr
}

func (widget *Widget) onPopupSuccess(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return widget.onPopupError(errors.New("empty access token"))
	}

	profile, userInfoErr := widget.dependencies.UserInfo.UserInfo(ctx, token)
	if userInfoErr != nil {
		if !errors.Is(userInfoErr, identity.ErrUserInfoFetchFailed) {
			userInfoErr = fmt.Errorf("widget.signin.userinfo: %v: %w", userInfoErr, identity.ErrUserInfoFetchFailed)
		}
		return widget.failSignIn("widget.signin.userinfo_failed", userInfoErr)
	}

	exchange, exchangeErr := widget.dependencies.Backend.Login(ctx, backend.LoginRequest{
		Token: token.AccessToken,
		User:  profile,
	})
	if exchangeErr != nil {
		return widget.failSignIn("widget.signin.exchange_failed", exchangeErr)
	}

	credential := []cookies.Entry{
		{Name: ServerTokenCookie, Value: exchange.Token},
		{Name: GoogleTokenCookie, Value: token.AccessToken},
	}
	user := exchange.User
	if user == nil {
		user = profile
	}

	widget.commitMutex.Lock()
	if persistErr := widget.dependencies.Jar.Replace(ctx, credential, cookies.SessionOptions()); persistErr != nil {
		widget.commitMutex.Unlock()
		return widget.failSignIn("widget.signin.persist_failed", persistErr)
	}
	widget.setLoggedIn(true)
	widget.dependencies.Store.Set(user)
	widget.commitMutex.Unlock()

	widget.metrics.Increment(metricSignInSuccess)
	widget.logger.Info("signed in",
		zap.String("code", "widget.signin.success"),
		zap.String("user_email", user.Email))
	return nil
}

func (widget *Widget) failSignIn(code string, cause error) error {
	widget.metrics.Increment(metricSignInFailure)
	widget.logger.Error("login error",
		zap.String("code", code),
		zap.Error(cause))
	return cause
}
