package devbackend

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeOrigins(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sanitized, err := sanitizeOrigins(zap.New(core), []string{
		"http://localhost:3000",
		" https://app.example.com/ ",
		"https://app.example.com",
		"http://intranet.example.com",
		"",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"http://intranet.example.com", "http://localhost:3000", "https://app.example.com"}
	if !reflect.DeepEqual(sanitized, expected) {
		t.Fatalf("expected %v, got %v", expected, sanitized)
	}
	if logs.FilterField(zap.String("code", "cors.origin.unsafe")).Len() != 1 {
		t.Fatalf("expected one unsafe origin warning")
	}
}

func TestSanitizeOriginsSortsNormalizedValues(t *testing.T) {
	sanitized, err := sanitizeOrigins(zap.NewNop(), []string{
		"  https://b.example.com",
		"HTTPS://a.example.com/",
		"\thttps://c.example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}
	if !reflect.DeepEqual(sanitized, expected) {
		t.Fatalf("expected %v, got %v", expected, sanitized)
	}
}

func TestSanitizeOriginsRejections(t *testing.T) {
	tests := []struct {
		name      string
		origins   []string
		expectErr error
	}{
		{name: "empty", origins: nil, expectErr: errEmptyAllowedOrigins},
		{name: "blank only", origins: []string{" "}, expectErr: errEmptyAllowedOrigins},
		{name: "wildcard", origins: []string{"*"}, expectErr: errWildcardOrigin},
		{name: "path", origins: []string{"https://app.example.com/login"}, expectErr: errInvalidOrigin},
		{name: "scheme", origins: []string{"ftp://app.example.com"}, expectErr: errInvalidOrigin},
		{name: "bare host", origins: []string{"app.example.com"}, expectErr: errInvalidOrigin},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := sanitizeOrigins(zap.NewNop(), testCase.origins); !errors.Is(err, testCase.expectErr) {
				t.Fatalf("expected %v, got %v", testCase.expectErr, err)
			}
		})
	}
}

func TestConfigureCORSAllowsCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	middleware, err := ConfigureCORS(nil, []string{"http://localhost:3000"})
	if err != nil {
		t.Fatalf("configure cors: %v", err)
	}
	router := gin.New()
	router.Use(middleware)
	router.POST("/login", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodOptions, "/login", nil)
	request.Header.Set("Origin", "http://localhost:3000")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	router.ServeHTTP(recorder, request)

	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
	if recorder.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials to be allowed")
	}
}
