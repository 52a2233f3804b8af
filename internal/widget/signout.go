package widget

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SignOut asks for confirmation, then clears the credential cookies,
// local and session storage, every other cookie, and the stored profile,
// and finally navigates home. Declining leaves everything as it was.
// Cleanup failures are logged and returned joined; the remaining steps
// still run.
func (widget *Widget) SignOut(ctx context.Context) error {
	confirmed, confirmErr := widget.dependencies.Confirmer.Confirm(ctx, SignOutPrompt)
	if confirmErr != nil {
		widget.logger.Error("logout error",
			zap.String("code", "widget.signout.confirm_failed"),
			zap.Error(confirmErr))
		return fmt.Errorf("widget.signout.confirm: %w", confirmErr)
	}
	if !confirmed {
		widget.metrics.Increment(metricSignOutDeclined)
		return nil
	}

	var failures []error
	record := func(code string, err error) {
		if err == nil {
			return
		}
		widget.logger.Error("logout error",
			zap.String("code", code),
			zap.Error(err))
		failures = append(failures, err)
	}

	widget.commitMutex.Lock()
	record("widget.signout.clear_server_token", widget.dependencies.Jar.Clear(ctx, ServerTokenCookie))
	record("widget.signout.clear_google_token", widget.dependencies.Jar.Clear(ctx, GoogleTokenCookie))
	if widget.dependencies.LocalStorage != nil {
		record("widget.signout.clear_local_storage", widget.dependencies.LocalStorage.Clear())
	}
	if widget.dependencies.SessionStorage != nil {
		record("widget.signout.clear_session_storage", widget.dependencies.SessionStorage.Clear())
	}
	record("widget.signout.clear_all_cookies", widget.dependencies.Jar.ClearAll(ctx, ""))

	widget.dependencies.Store.Set(nil)
	widget.setLoggedIn(false)
	widget.commitMutex.Unlock()
	widget.metrics.Increment(metricSignOut)
	widget.logger.Info("signed out",
		zap.String("code", "widget.signout.success"))
	widget.notify()

	if widget.dependencies.Navigator != nil {
		widget.dependencies.Navigator.Navigate(HomeLocation)
	}
	return errors.Join(failures...)
}
