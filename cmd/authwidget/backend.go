package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/authwidget/internal/devbackend"
	"github.com/tyemirov/authwidget/internal/widget"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var buildAccessTokenVerifier = func(ctx context.Context, endpoint string) (devbackend.AccessTokenVerifier, error) {
	return devbackend.NewGoogleAccessTokenVerifier(ctx, nil, endpoint)
}

func newBackendCommand() *cobra.Command {
	backendCmd := &cobra.Command{
		Use:     "backend",
		Short:   "Run a development backend serving POST /login and GET /me",
		PreRunE: prepareBackendConfig,
		RunE:    runBackend,
	}

	backendCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	backendCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for server tokens")
	backendCmd.Flags().Duration("session_ttl", devbackend.DefaultSessionTTL, "Server token TTL")
	backendCmd.Flags().Bool("enable_cors", false, "Enable credentialed CORS for browser clients")
	backendCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled")
	backendCmd.Flags().String("tokeninfo_endpoint", "", "Google API endpoint override for tokeninfo")

	for _, name := range []string{"listen_addr", "jwt_signing_key", "session_ttl", "enable_cors", "cors_allowed_origins", "tokeninfo_endpoint"} {
		_ = viper.BindPFlag(name, backendCmd.Flags().Lookup(name))
	}
	return backendCmd
}

func runBackend(command *cobra.Command, arguments []string) error {
	var contextValue any
	if commandCtx := command.Context(); commandCtx != nil {
		contextValue = commandCtx.Value(backendConfigContextKey)
	}
	backendConfig, ok := contextValue.(BackendConfig)
	if !ok {
		return configError(configCodeUninitializedConfig, "backend configuration not prepared; PreRunE must execute before RunE")
	}

	logger, loggerErr := newLogger()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if backendConfig.EnableCORS {
		corsMiddleware, corsErr := devbackend.ConfigureCORS(logger, backendConfig.CORSAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	verifier, verifierErr := buildAccessTokenVerifier(commandContext(command), backendConfig.TokenInfoEndpoint)
	if verifierErr != nil {
		return fmt.Errorf("%s: %w", configCodeTokenVerifierInit, verifierErr)
	}

	metricsRecorder := widget.NewCounterMetrics()
	mountErr := devbackend.MountRoutes(router, backendConfig.Server, devbackend.Dependencies{
		Verifier: verifier,
		Users:    devbackend.NewInMemoryUsers(),
		Logger:   logger,
		Metrics:  metricsRecorder,
	})
	if mountErr != nil {
		return mountErr
	}

	server := &http.Server{
		Addr:              backendConfig.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stopSignals)
		select {
		case <-stopSignals:
		case <-shutdownCtx.Done():
			return
		}
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", backendConfig.ListenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	logger.Info("backend stopped", zap.Any("metrics", metricsRecorder.Snapshot()))
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", time.Since(startTime)),
		)
	}
}
