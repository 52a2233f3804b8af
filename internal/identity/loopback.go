package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	callbackPath    = "/callback"
	defaultStateTTL = 5 * time.Minute
)

// LoopbackConfig configures a LoopbackAuthorizer.
type LoopbackConfig struct {
	// OAuth is the client configuration; RedirectURL is set per attempt.
	OAuth *oauth2.Config
	// ListenAddr is the loopback address for the redirect listener, e.g. "127.0.0.1:8085".
	ListenAddr string
	// OpenURL presents the consent URL to the user.
	OpenURL func(authURL string) error
	// StateTTL bounds how long a started attempt stays valid.
	StateTTL time.Duration
	Logger   *zap.Logger
}

// LoopbackAuthorizer runs the authorization-code flow with PKCE against a
// short-lived loopback listener, which plays the role of the sign-in popup.
type LoopbackAuthorizer struct {
	configuration LoopbackConfig
	states        *stateStore
	logger        *zap.Logger
}

// NewLoopbackAuthorizer validates configuration and constructs the authorizer.
func NewLoopbackAuthorizer(configuration LoopbackConfig) (*LoopbackAuthorizer, error) {
	if configuration.OAuth == nil || strings.TrimSpace(configuration.OAuth.ClientID) == "" {
		return nil, errors.New("identity.loopback: oauth client id is required")
	}
	if strings.TrimSpace(configuration.ListenAddr) == "" {
		configuration.ListenAddr = "127.0.0.1:0"
	}
	if configuration.OpenURL == nil {
		return nil, errors.New("identity.loopback: url opener is required")
	}
	if configuration.StateTTL <= 0 {
		configuration.StateTTL = defaultStateTTL
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoopbackAuthorizer{
		configuration: configuration,
		states:        newStateStore(configuration.StateTTL),
		logger:        logger,
	}, nil
}

// PrintURL returns an opener that writes the consent URL to output.
func PrintURL(output io.Writer) func(string) error {
	return func(authURL string) error {
		_, err := fmt.Fprintf(output, "Open this URL to sign in with Google:\n\n  %s\n\n", authURL)
		return err
	}
}

type callbackResult struct {
	code     string
	verifier string
	err      error
}

// Authorize implements Authorizer. Every failure, including a cancelled
// context, is reported as ErrPopupFlowFailed.
func (authorizer *LoopbackAuthorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	listener, listenErr := net.Listen("tcp", authorizer.configuration.ListenAddr)
	if listenErr != nil {
		return nil, fmt.Errorf("identity.loopback.listen: %v: %w", listenErr, ErrPopupFlowFailed)
	}

	oauthConfig := *authorizer.configuration.OAuth
	oauthConfig.RedirectURL = "http://" + listener.Addr().String() + callbackPath

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Handler:           authorizer.callbackRouter(results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			authorizer.logger.Error("loopback listener stopped",
				zap.String("code", "identity.loopback.serve"),
				zap.Error(serveErr))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	verifier := oauth2.GenerateVerifier()
	state, stateErr := authorizer.states.Issue(ctx, verifier)
	if stateErr != nil {
		return nil, fmt.Errorf("identity.loopback.state: %v: %w", stateErr, ErrPopupFlowFailed)
	}
	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	if openErr := authorizer.configuration.OpenURL(authURL); openErr != nil {
		return nil, fmt.Errorf("identity.loopback.open: %v: %w", openErr, ErrPopupFlowFailed)
	}

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("identity.loopback: %v: %w", ctx.Err(), ErrPopupFlowFailed)
	case result = <-results:
	}
	if result.err != nil {
		return nil, fmt.Errorf("identity.loopback.callback: %v: %w", result.err, ErrPopupFlowFailed)
	}

	token, exchangeErr := oauthConfig.Exchange(ctx, result.code, oauth2.VerifierOption(result.verifier))
	if exchangeErr != nil {
		return nil, fmt.Errorf("identity.loopback.exchange: %v: %w", exchangeErr, ErrPopupFlowFailed)
	}
	return token, nil
}

func (authorizer *LoopbackAuthorizer) callbackRouter(results chan<- callbackResult) http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(callbackPath, func(contextGin *gin.Context) {
		deliver := func(result callbackResult) {
			select {
			case results <- result:
			default:
			}
		}

		verifier, consumeErr := authorizer.states.Consume(contextGin, contextGin.Query("state"))
		if consumeErr != nil {
			authorizer.logger.Warn("loopback callback with unknown state",
				zap.String("code", "identity.loopback.state_mismatch"),
				zap.Error(consumeErr))
			contextGin.String(http.StatusBadRequest, "Sign-in request not recognised. You can close this window.")
			return
		}
		if providerErr := contextGin.Query("error"); providerErr != "" {
			deliver(callbackResult{err: errors.New(providerErr)})
			contextGin.String(http.StatusOK, "Sign-in was cancelled. You can close this window.")
			return
		}
		code := contextGin.Query("code")
		if strings.TrimSpace(code) == "" {
			deliver(callbackResult{err: errors.New("missing_code")})
			contextGin.String(http.StatusBadRequest, "Sign-in failed. You can close this window.")
			return
		}
		deliver(callbackResult{code: code, verifier: verifier})
		contextGin.String(http.StatusOK, "Signed in. You can close this window.")
	})
	return router
}
