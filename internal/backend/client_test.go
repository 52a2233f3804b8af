package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tyemirov/authwidget/internal/sessionstate"
)

func TestLoginPostsTokenAndProfile(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/login" {
			writer.WriteHeader(http.StatusNotFound)
			return
		}
		if request.Header.Get("Content-Type") != "application/json" || request.Header.Get("Accept") != "application/json" {
			writer.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		var inbound LoginRequest
		if err := json.NewDecoder(request.Body).Decode(&inbound); err != nil {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		if inbound.Token != "access-123" || inbound.User == nil || inbound.User.Name != "Jane Doe" {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"token":"srv123","user":{"name":"Jane Doe","email":"jane@example.com"}}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	response, err := client.Login(context.Background(), LoginRequest{
		Token: "access-123",
		User:  &sessionstate.Profile{Name: "Jane Doe"},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if response.Token != "srv123" || response.User == nil || response.User.Email != "jane@example.com" {
		t.Fatalf("unexpected response %#v", response)
	}
}

func TestLoginForwardsUnmodelledProfileMembers(t *testing.T) {
	t.Parallel()
	var received struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"token":"srv123","user":{"name":"Jane Doe","hd":"example.com"}}`))
	}))
	defer server.Close()

	var profile sessionstate.Profile
	if err := json.Unmarshal([]byte(`{"name":"Jane Doe","hd":"example.com"}`), &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	client, err := NewClient(server.URL, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	response, err := client.Login(context.Background(), LoginRequest{Token: "access-123", User: &profile})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if received.Token != "access-123" || received.User["hd"] != "example.com" {
		t.Fatalf("expected hd forwarded to /login, got %v", received.User)
	}
	if response.User == nil || string(response.User.Extra["hd"]) != `"example.com"` {
		t.Fatalf("expected hd kept from the response, got %#v", response.User)
	}
}

func TestLoginSurfacesResponseBody(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		_, _ = writer.Write([]byte("invalid token"))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, loginErr := client.Login(context.Background(), LoginRequest{Token: "bad"})
	if !errors.Is(loginErr, ErrBackendExchangeFailed) {
		t.Fatalf("expected ErrBackendExchangeFailed, got %v", loginErr)
	}
	var exchangeErr *ExchangeError
	if !errors.As(loginErr, &exchangeErr) {
		t.Fatalf("expected *ExchangeError, got %T", loginErr)
	}
	if exchangeErr.StatusCode != http.StatusUnauthorized || exchangeErr.Detail != "invalid token" {
		t.Fatalf("unexpected exchange error %#v", exchangeErr)
	}
	if !strings.Contains(loginErr.Error(), "invalid token") {
		t.Fatalf("expected detail in message, got %q", loginErr.Error())
	}
}

func TestLoginEmptyErrorBodyFallsBack(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, server.Client())
	_, loginErr := client.Login(context.Background(), LoginRequest{Token: "t"})
	var exchangeErr *ExchangeError
	if !errors.As(loginErr, &exchangeErr) || exchangeErr.Detail != "Login failed" {
		t.Fatalf("expected fallback detail, got %v", loginErr)
	}
}

func TestLoginRejectsEmptyServerToken(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"token":"","user":null}`))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL, server.Client())
	if _, err := client.Login(context.Background(), LoginRequest{Token: "t"}); !errors.Is(err, ErrBackendExchangeFailed) {
		t.Fatalf("expected ErrBackendExchangeFailed, got %v", err)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()
	if _, err := NewClient("  ", nil); err == nil {
		t.Fatalf("expected error for blank base url")
	}
}
