package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tyemirov/authwidget/internal/backend"
	"github.com/tyemirov/authwidget/internal/bootstrap"
	"github.com/tyemirov/authwidget/internal/browser"
	"github.com/tyemirov/authwidget/internal/cookies"
	"github.com/tyemirov/authwidget/internal/identity"
	"github.com/tyemirov/authwidget/internal/widget"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var openCookieStore = func(ctx context.Context, storeURL string, logger *zap.Logger) (cookies.Store, error) {
	if strings.TrimSpace(storeURL) == "" {
		logger.Info("using in-memory cookie store")
		return cookies.NewMemoryStore(), nil
	}
	persistentStore, storeErr := cookies.NewDatabaseStore(ctx, storeURL)
	if storeErr != nil {
		return nil, storeErr
	}
	logger.Info("using persistent cookie store", zap.String("driver", persistentStore.Driver()))
	return persistentStore, nil
}

var buildAuthorizer = func(oauthConfig *oauth2.Config, callbackAddr string, output io.Writer, logger *zap.Logger) (identity.Authorizer, error) {
	return identity.NewLoopbackAuthorizer(identity.LoopbackConfig{
		OAuth:      oauthConfig,
		ListenAddr: callbackAddr,
		OpenURL:    identity.PrintURL(output),
		Logger:     logger,
	})
}

type widgetSession struct {
	providers *bootstrap.Providers
	widget    *widget.Widget
	jar       *cookies.Jar
	events    *browser.Events
	navigator *browser.RecordingNavigator
}

func openWidgetSession(ctx context.Context, widgetConfig WidgetConfig, confirmer browser.Confirmer, output io.Writer, logger *zap.Logger) (*widgetSession, error) {
	providers := bootstrap.New(bootstrap.Config{
		GoogleClientID:     widgetConfig.GoogleClientID,
		GoogleClientSecret: widgetConfig.GoogleClientSecret,
		Theme:              widgetConfig.Theme,
	})

	store, storeErr := openCookieStore(ctx, widgetConfig.CookieStoreURL, logger)
	if storeErr != nil {
		return nil, fmt.Errorf("%s: %w", configCodeCookieStoreInit, storeErr)
	}
	jar, jarErr := cookies.NewJar(ctx, store)
	if jarErr != nil {
		return nil, fmt.Errorf("%s: %w", configCodeCookieStoreInit, jarErr)
	}

	authorizer, authorizerErr := buildAuthorizer(providers.Identity, widgetConfig.CallbackAddr, output, logger)
	if authorizerErr != nil {
		return nil, authorizerErr
	}
	exchanger, exchangerErr := backend.NewClient(widgetConfig.BackendURL, nil)
	if exchangerErr != nil {
		return nil, exchangerErr
	}

	events := browser.NewEvents()
	navigator := browser.NewRecordingNavigator(func(location string) {
		logger.Info("navigated", zap.String("code", "widget.navigate"), zap.String("location", location))
	})
	authWidget, widgetErr := widget.New(widget.Dependencies{
		Jar:            jar,
		Store:          providers.Store,
		Signals:        events,
		Authorizer:     authorizer,
		UserInfo:       identity.NewUserInfoClient(widgetConfig.UserInfoURL, nil),
		Backend:        exchanger,
		Confirmer:      confirmer,
		LocalStorage:   browser.NewMemoryStorage(),
		SessionStorage: browser.NewMemoryStorage(),
		Navigator:      navigator,
		Theme:          providers.Theme,
		Logger:         logger,
	})
	if widgetErr != nil {
		return nil, widgetErr
	}
	return &widgetSession{
		providers: providers,
		widget:    authWidget,
		jar:       jar,
		events:    events,
		navigator: navigator,
	}, nil
}

func (session *widgetSession) render() string {
	return session.providers.Wrap(func(*bootstrap.Providers) string {
		return session.widget.Render().String()
	})
}

func widgetConfigFrom(command *cobra.Command) (WidgetConfig, error) {
	var contextValue any
	if commandCtx := command.Context(); commandCtx != nil {
		contextValue = commandCtx.Value(widgetConfigContextKey)
	}
	widgetConfig, ok := contextValue.(WidgetConfig)
	if !ok {
		return WidgetConfig{}, configError(configCodeUninitializedConfig, "widget configuration not prepared; PreRunE must execute before RunE")
	}
	return widgetConfig, nil
}

func newStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Render the widget for the current cookie session",
		PreRunE: prepareWidgetConfig,
		RunE:    runStatus,
	}
	statusCmd.Flags().Bool("watch", false, "Keep rendering as the shared cookie store changes")
	statusCmd.Flags().Duration("poll_interval", 2*time.Second, "How often --watch re-reads the cookie store")
	return statusCmd
}

func runStatus(command *cobra.Command, arguments []string) error {
	widgetConfig, configErr := widgetConfigFrom(command)
	if configErr != nil {
		return configErr
	}
	logger, loggerErr := newLogger()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(commandContext(command), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, sessionErr := openWidgetSession(ctx, widgetConfig, nil, command.OutOrStdout(), logger)
	if sessionErr != nil {
		return sessionErr
	}
	session.widget.Mount()
	defer session.widget.Unmount()

	lastRendered := session.render()
	fmt.Fprintln(command.OutOrStdout(), lastRendered)

	watch, _ := command.Flags().GetBool("watch")
	if !watch {
		return nil
	}
	pollInterval, _ := command.Flags().GetDuration("poll_interval")
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	unwatch := session.widget.Watch(func(view widget.View) {
		rendered := view.String()
		if rendered == lastRendered {
			return
		}
		lastRendered = rendered
		fmt.Fprintln(command.OutOrStdout(), rendered)
	})
	defer unwatch()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if reloadErr := session.jar.Reload(ctx); reloadErr != nil {
				logger.Warn("cookie store reload failed",
					zap.String("code", "widget.watch.reload_failed"),
					zap.Error(reloadErr))
				continue
			}
			session.events.Emit(browser.EventStorage)
		}
	}
}

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "login",
		Short:   "Sign in with Google and exchange the token with the backend",
		PreRunE: prepareWidgetConfig,
		RunE:    runLogin,
	}
}

func runLogin(command *cobra.Command, arguments []string) error {
	widgetConfig, configErr := widgetConfigFrom(command)
	if configErr != nil {
		return configErr
	}
	logger, loggerErr := newLogger()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(commandContext(command), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, sessionErr := openWidgetSession(ctx, widgetConfig, nil, command.OutOrStdout(), logger)
	if sessionErr != nil {
		return sessionErr
	}
	session.widget.Mount()
	defer session.widget.Unmount()

	if session.widget.State() == widget.LoggedIn {
		fmt.Fprintln(command.OutOrStdout(), session.render())
		return nil
	}
	if signInErr := session.widget.SignIn(ctx); signInErr != nil {
		return signInErr
	}
	fmt.Fprintln(command.OutOrStdout(), session.render())
	return nil
}

func newLogoutCommand() *cobra.Command {
	logoutCmd := &cobra.Command{
		Use:     "logout",
		Short:   "Sign out and clear every cookie in the jar",
		PreRunE: prepareWidgetConfig,
		RunE:    runLogout,
	}
	logoutCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	return logoutCmd
}

func runLogout(command *cobra.Command, arguments []string) error {
	widgetConfig, configErr := widgetConfigFrom(command)
	if configErr != nil {
		return configErr
	}
	logger, loggerErr := newLogger()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	var confirmer browser.Confirmer = browser.PromptConfirmer{Input: command.InOrStdin(), Output: command.OutOrStdout()}
	if skipPrompt, _ := command.Flags().GetBool("yes"); skipPrompt {
		confirmer = browser.AlwaysConfirm{}
	}

	ctx := commandContext(command)
	session, sessionErr := openWidgetSession(ctx, widgetConfig, confirmer, command.OutOrStdout(), logger)
	if sessionErr != nil {
		return sessionErr
	}
	session.widget.Mount()
	defer session.widget.Unmount()

	if session.widget.State() != widget.LoggedIn {
		fmt.Fprintln(command.OutOrStdout(), session.render())
		return nil
	}
	signOutErr := session.widget.SignOut(ctx)
	fmt.Fprintln(command.OutOrStdout(), session.render())
	return signOutErr
}
