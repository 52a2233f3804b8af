package devbackend

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/authwidget/internal/backend"
	"github.com/tyemirov/authwidget/internal/sessionstate"
	"github.com/tyemirov/authwidget/pkg/sessionvalidator"
	"go.uber.org/zap"
)

const (
	// SessionCookieName is the cookie the backend sets alongside the token it returns.
	SessionCookieName = sessionvalidator.DefaultCookieName

	claimsContextKey = "session_claims"

	metricLoginSuccess = "login.success"
	metricLoginFailure = "login.failure"
)

// MetricsRecorder increments counters for backend events.
type MetricsRecorder interface {
	Increment(event string)
}

type noopMetrics struct{}

func (noopMetrics) Increment(string) {}

// Dependencies are the collaborators of the development backend routes.
type Dependencies struct {
	Verifier AccessTokenVerifier
	Users    UserStore
	Logger   *zap.Logger
	Metrics  MetricsRecorder
}

// MountRoutes registers POST /login and GET /me.
func MountRoutes(router gin.IRouter, configuration ServerConfig, dependencies Dependencies) error {
	validated, configErr := configuration.validate()
	if configErr != nil {
		return configErr
	}
	if dependencies.Verifier == nil {
		return errors.New("devbackend.mount: verifier is required")
	}
	if dependencies.Users == nil {
		return errors.New("devbackend.mount: user store is required")
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := dependencies.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	validator, validatorErr := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: validated.SigningKey,
		Issuer:     validated.Issuer,
		CookieName: SessionCookieName,
	})
	if validatorErr != nil {
		return validatorErr
	}

	router.POST("/login", handleLogin(validated, validator, dependencies.Verifier, dependencies.Users, logger, metrics))
	router.GET("/me", validator.GinMiddleware(claimsContextKey), handleWhoAmI(dependencies.Users, logger))
	return nil
}

func handleLogin(configuration ServerConfig, validator *sessionvalidator.Validator, verifier AccessTokenVerifier, users UserStore, logger *zap.Logger, metrics MetricsRecorder) gin.HandlerFunc {
	reject := func(contextGin *gin.Context, status int, code string, err error) {
		metrics.Increment(metricLoginFailure)
		fields := []zap.Field{zap.String("code", "api.login."+code)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Warn("login rejected", fields...)
		contextGin.AbortWithStatusJSON(status, gin.H{"error": code})
	}

	return func(contextGin *gin.Context) {
		var inbound backend.LoginRequest
		if err := contextGin.ShouldBindJSON(&inbound); err != nil || strings.TrimSpace(inbound.Token) == "" {
			reject(contextGin, http.StatusBadRequest, "invalid_json", err)
			return
		}

		info, verifyErr := verifier.Verify(contextGin.Request.Context(), inbound.Token)
		if verifyErr != nil {
			reject(contextGin, http.StatusUnauthorized, "invalid_token", verifyErr)
			return
		}
		if !info.IssuedFor(configuration.GoogleClientID) {
			reject(contextGin, http.StatusUnauthorized, "audience_mismatch", nil)
			return
		}
		if info.UserID == "" {
			reject(contextGin, http.StatusUnauthorized, "unverified_identity", nil)
			return
		}

		var profile sessionstate.Profile
		if inbound.User != nil {
			profile = *inbound.User
		}
		if info.Email != "" {
			profile.Email = info.Email
			profile.EmailVerified = info.EmailVerified
		}

		applicationUserID, upsertErr := users.UpsertGoogleUser(contextGin.Request.Context(), info.UserID, profile)
		if upsertErr != nil || applicationUserID == "" {
			reject(contextGin, http.StatusInternalServerError, "upsert_failed", upsertErr)
			return
		}
		stored, lookupErr := users.GetUserProfile(contextGin.Request.Context(), applicationUserID)
		if lookupErr != nil {
			reject(contextGin, http.StatusInternalServerError, "profile_error", lookupErr)
			return
		}

		serverToken, expiresAt, mintErr := validator.Mint(sessionvalidator.Claims{
			UserID:    applicationUserID,
			UserEmail: stored.Email,
			UserName:  stored.Name,
			Picture:   stored.Picture,
		}, configuration.SessionTTL)
		if mintErr != nil {
			reject(contextGin, http.StatusInternalServerError, "mint_failed", mintErr)
			return
		}

		contextGin.SetSameSite(http.SameSiteLaxMode)
		contextGin.SetCookie(SessionCookieName, serverToken, int(configuration.SessionTTL.Seconds()), "/", "", isHTTPS(contextGin.Request), true)

		metrics.Increment(metricLoginSuccess)
		logger.Info("login accepted",
			zap.String("code", "api.login.accepted"),
			zap.String("user_id", applicationUserID),
			zap.Time("expires_at", expiresAt))
		contextGin.JSON(http.StatusOK, backend.LoginResponse{Token: serverToken, User: &stored})
	}
}

func handleWhoAmI(users UserStore, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		claimsValue, found := contextGin.Get(claimsContextKey)
		claims, ok := claimsValue.(*sessionvalidator.Claims)
		if !found || !ok || claims == nil || claims.UserID == "" {
			logger.Warn("invalid session claims on context",
				zap.String("code", "api.me.invalid_claims"))
			contextGin.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		profile, profileErr := users.GetUserProfile(contextGin.Request.Context(), claims.UserID)
		if profileErr != nil {
			if errors.Is(profileErr, ErrUserProfileNotFound) {
				logger.Warn("user profile missing",
					zap.String("code", "api.me.profile_missing"),
					zap.String("user_id", claims.UserID))
				contextGin.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			logger.Error("user profile lookup error",
				zap.String("code", "api.me.profile_error"),
				zap.String("user_id", claims.UserID),
				zap.Error(profileErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"user_id": claims.UserID,
			"user":    profile,
			"expires": claims.GetExpiresAt(),
		})
	}
}

func isHTTPS(request *http.Request) bool {
	if request.TLS != nil {
		return true
	}
	return strings.EqualFold(request.Header.Get("X-Forwarded-Proto"), "https")
}
