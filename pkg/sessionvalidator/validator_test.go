package sessionvalidator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fixedClock struct {
	current time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.current
}

func newTestValidator(t *testing.T, issuer string, now time.Time) *Validator {
	t.Helper()
	validator, err := New(Config{
		SigningKey: []byte("secret-key"),
		Issuer:     issuer,
		Clock:      fixedClock{current: now},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return validator
}

func TestNewValidatorRequiresSigningKeyAndIssuer(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Issuer: "issuer"}); !errors.Is(err, ErrMissingSigningKey) {
		t.Fatalf("expected missing signing key error, got %v", err)
	}
	if _, err := New(Config{SigningKey: []byte("k")}); !errors.Is(err, ErrMissingIssuer) {
		t.Fatalf("expected missing issuer error, got %v", err)
	}
}

func TestNewValidatorDefaults(t *testing.T) {
	t.Parallel()
	validator, err := New(Config{SigningKey: []byte("secret"), Issuer: "issuer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if validator.cookieName != DefaultCookieName {
		t.Fatalf("expected default cookie name, got %s", validator.cookieName)
	}
	if validator.clock == nil {
		t.Fatalf("expected default clock to be set")
	}
}

func TestMintAndValidateRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Unix(1700000000, 0).UTC()
	validator := newTestValidator(t, "issuer", now)

	token, expiresAt, err := validator.Mint(Claims{UserID: "google:sub-1", UserEmail: "jane@example.com", UserName: "Jane Doe"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "google:sub-1" || claims.Subject != "google:sub-1" || claims.UserName != "Jane Doe" {
		t.Fatalf("unexpected claims %#v", claims)
	}
	if !claims.GetExpiresAt().Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected claim expiry %v", claims.GetExpiresAt())
	}
}

func TestValidateTokenRejectsInvalidCases(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	validator := newTestValidator(t, "issuer", now)
	otherIssuer := newTestValidator(t, "other-issuer", now)
	pastValidator := newTestValidator(t, "issuer", now.Add(-2*time.Hour))
	otherKey, err := New(Config{SigningKey: []byte("other-key"), Issuer: "issuer", Clock: fixedClock{current: now}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mint := func(source *Validator) string {
		token, _, mintErr := source.Mint(Claims{UserID: "u"}, time.Hour)
		if mintErr != nil {
			t.Fatalf("mint: %v", mintErr)
		}
		return token
	}

	tests := []struct {
		name      string
		token     string
		expectErr error
	}{
		{name: "empty token", token: "", expectErr: ErrMissingToken},
		{name: "bad signature", token: mint(otherKey), expectErr: ErrInvalidToken},
		{name: "wrong issuer", token: mint(otherIssuer), expectErr: ErrInvalidIssuer},
		{name: "expired", token: mint(pastValidator), expectErr: ErrTokenExpired},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if _, validateErr := validator.ValidateToken(testCase.token); !errors.Is(validateErr, testCase.expectErr) {
				t.Fatalf("expected %v, got %v", testCase.expectErr, validateErr)
			}
		})
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now().UTC()
	validator := newTestValidator(t, "issuer", now)
	token, _, err := validator.Mint(Claims{UserID: "google:sub-1"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	router := gin.New()
	router.GET("/me", validator.GinMiddleware(""), func(contextGin *gin.Context) {
		claimsValue, _ := contextGin.Get(DefaultContextKey)
		claims := claimsValue.(*Claims)
		contextGin.String(http.StatusOK, claims.UserID)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/me", nil)
	request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK || recorder.Body.String() != "google:sub-1" {
		t.Fatalf("unexpected response %d %q", recorder.Code, recorder.Body.String())
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/me", nil))
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", missing.Code)
	}
}
