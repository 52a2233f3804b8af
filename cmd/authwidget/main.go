package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/authwidget/internal/bootstrap"
	"github.com/tyemirov/authwidget/internal/devbackend"
	"go.uber.org/zap"
)

var newLogger = func() (*zap.Logger, error) {
	return zap.NewProduction()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

const (
	defaultGoogleClientID = "805198101040-vreklmpqqtaqpfueufs5a2hrh1fjiu6o.apps.googleusercontent.com"

	configCodeMissingGoogleClientID = "config.missing_google_client_id"
	configCodeMissingBackendURL     = "config.missing_backend_url"
	configCodeInvalidBackendURL     = "config.invalid_backend_url"
	configCodeInvalidThemeRadius    = "config.invalid_theme_radius"
	configCodeMissingJWTSigningKey  = "config.missing_jwt_signing_key"
	configCodeInvalidSessionTTL     = "config.invalid_session_ttl"
	configCodeMissingCORSOrigins    = "config.missing_cors_allowed_origins"
	configCodeUninitializedConfig   = "config.uninitialized_config"
	configCodeCookieStoreInit       = "config.cookie_store_init"
	configCodeTokenVerifierInit     = "config.token_verifier_init"
)

type contextKey string

const (
	widgetConfigContextKey  contextKey = "widgetConfig"
	backendConfigContextKey contextKey = "backendConfig"
)

// WidgetConfig configures the widget commands.
type WidgetConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	BackendURL         string
	UserInfoURL        string
	CookieStoreURL     string
	CallbackAddr       string
	Theme              bootstrap.Theme
}

// BackendConfig configures the development backend command.
type BackendConfig struct {
	ListenAddr         string
	Server             devbackend.ServerConfig
	EnableCORS         bool
	CORSAllowedOrigins []string
	TokenInfoEndpoint  string
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "authwidget",
		Short:         "Google sign-in widget with cookie sessions and a backend token exchange",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().String("google_client_id", defaultGoogleClientID, "Google OAuth client ID")
	rootCmd.PersistentFlags().String("google_client_secret", "", "Google OAuth client secret (installed-app clients)")
	rootCmd.PersistentFlags().String("backend_url", "http://localhost:8080", "Base URL of the backend serving POST /login")
	rootCmd.PersistentFlags().String("userinfo_url", "", "Userinfo endpoint override; empty for Google's")
	rootCmd.PersistentFlags().String("cookie_store_url", "sqlite://authwidget.db", "Cookie jar store (postgres:// or sqlite://; empty for in-memory)")
	rootCmd.PersistentFlags().String("callback_addr", "127.0.0.1:0", "Loopback address receiving the OAuth redirect")
	rootCmd.PersistentFlags().String("theme_primary", "", "Button colour")
	rootCmd.PersistentFlags().String("theme_text", "", "Button text colour")
	rootCmd.PersistentFlags().String("theme_font_family", "", "Button font family")
	rootCmd.PersistentFlags().Int("theme_radius", 0, "Button corner radius")

	for _, name := range []string{
		"google_client_id", "google_client_secret", "backend_url", "userinfo_url", "cookie_store_url",
		"callback_addr", "theme_primary", "theme_text", "theme_font_family", "theme_radius",
	} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	viper.SetEnvPrefix("AUTHWIDGET")
	viper.AutomaticEnv()

	rootCmd.AddCommand(newStatusCommand(), newLoginCommand(), newLogoutCommand(), newBackendCommand())
	return rootCmd
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func commandContext(command *cobra.Command) context.Context {
	if command != nil && command.Context() != nil {
		return command.Context()
	}
	return context.Background()
}

func prepareWidgetConfig(command *cobra.Command, arguments []string) error {
	widgetConfig, loadErr := LoadWidgetConfig()
	if loadErr != nil {
		return loadErr
	}
	command.SetContext(context.WithValue(commandContext(command), widgetConfigContextKey, widgetConfig))
	return nil
}

func prepareBackendConfig(command *cobra.Command, arguments []string) error {
	backendConfig, loadErr := LoadBackendConfig()
	if loadErr != nil {
		return loadErr
	}
	command.SetContext(context.WithValue(commandContext(command), backendConfigContextKey, backendConfig))
	return nil
}

// LoadWidgetConfig reads the widget configuration from viper.
func LoadWidgetConfig() (WidgetConfig, error) {
	googleClientID := strings.TrimSpace(viper.GetString("google_client_id"))
	if googleClientID == "" {
		return WidgetConfig{}, configError(configCodeMissingGoogleClientID, "google_client_id must be provided")
	}

	backendURL := strings.TrimSpace(viper.GetString("backend_url"))
	if backendURL == "" {
		return WidgetConfig{}, configError(configCodeMissingBackendURL, "backend_url must be provided")
	}
	parsedBackendURL, parseErr := url.Parse(backendURL)
	if parseErr != nil || (parsedBackendURL.Scheme != "http" && parsedBackendURL.Scheme != "https") || parsedBackendURL.Host == "" {
		return WidgetConfig{}, configError(configCodeInvalidBackendURL, "backend_url must be an absolute http(s) URL")
	}

	themeRadius := viper.GetInt("theme_radius")
	if themeRadius < 0 {
		return WidgetConfig{}, configError(configCodeInvalidThemeRadius, "theme_radius must not be negative")
	}

	return WidgetConfig{
		GoogleClientID:     googleClientID,
		GoogleClientSecret: viper.GetString("google_client_secret"),
		BackendURL:         backendURL,
		UserInfoURL:        viper.GetString("userinfo_url"),
		CookieStoreURL:     viper.GetString("cookie_store_url"),
		CallbackAddr:       viper.GetString("callback_addr"),
		Theme: bootstrap.Theme{
			Primary:    viper.GetString("theme_primary"),
			Text:       viper.GetString("theme_text"),
			FontFamily: viper.GetString("theme_font_family"),
			Radius:     themeRadius,
		},
	}, nil
}

// LoadBackendConfig reads the development backend configuration from viper.
func LoadBackendConfig() (BackendConfig, error) {
	googleClientID := strings.TrimSpace(viper.GetString("google_client_id"))
	if googleClientID == "" {
		return BackendConfig{}, configError(configCodeMissingGoogleClientID, "google_client_id must be provided")
	}

	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return BackendConfig{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	sessionTTL := viper.GetDuration("session_ttl")
	if sessionTTL <= 0 {
		return BackendConfig{}, configError(configCodeInvalidSessionTTL, "session_ttl must be greater than zero")
	}

	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := viper.GetStringSlice("cors_allowed_origins")
	if enableCORS && len(corsAllowedOrigins) == 0 {
		return BackendConfig{}, configError(configCodeMissingCORSOrigins, "cors_allowed_origins must be provided when enable_cors is true")
	}

	return BackendConfig{
		ListenAddr: viper.GetString("listen_addr"),
		Server: devbackend.ServerConfig{
			GoogleClientID: googleClientID,
			SigningKey:     []byte(jwtSigningKey),
			Issuer:         devbackend.DefaultIssuer,
			SessionTTL:     sessionTTL,
		},
		EnableCORS:         enableCORS,
		CORSAllowedOrigins: corsAllowedOrigins,
		TokenInfoEndpoint:  viper.GetString("tokeninfo_endpoint"),
	}, nil
}
