// Package backend calls the application backend that exchanges an
// identity-provider token for a server session token.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/tyemirov/authwidget/internal/sessionstate"
	"golang.org/x/net/publicsuffix"
)

const (
	loginPath         = "/login"
	maxErrorBodyBytes = 64 << 10
)

// ErrBackendExchangeFailed indicates the /login exchange did not succeed.
var ErrBackendExchangeFailed = errors.New("backend.exchange_failed")

// ExchangeError carries the status and response body of a failed exchange.
type ExchangeError struct {
	StatusCode int
	Detail     string
}

func (exchangeErr *ExchangeError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrBackendExchangeFailed.Error(), exchangeErr.StatusCode, exchangeErr.Detail)
}

// Is reports ErrBackendExchangeFailed as the error kind.
func (exchangeErr *ExchangeError) Is(target error) bool {
	return target == ErrBackendExchangeFailed
}

// LoginRequest is the JSON body sent to /login.
type LoginRequest struct {
	Token string                `json:"token"`
	User  *sessionstate.Profile `json:"user"`
}

// LoginResponse is the JSON body returned by a successful /login.
type LoginResponse struct {
	Token string                `json:"token"`
	User  *sessionstate.Profile `json:"user"`
}

// Exchanger performs the login exchange.
type Exchanger interface {
	Login(ctx context.Context, request LoginRequest) (LoginResponse, error)
}

// Client is an HTTP Exchanger. Its transport keeps a cookie jar so cookies
// set by the backend ride along on later calls, like a credentialed fetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for baseURL. A nil httpClient gets a fresh
// client with a public-suffix-aware cookie jar.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("backend.new_client: base url is required")
	}
	if httpClient == nil {
		jar, jarErr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jarErr != nil {
			return nil, fmt.Errorf("backend.new_client: %w", jarErr)
		}
		httpClient = &http.Client{Jar: jar, Timeout: 30 * time.Second}
	}
	return &Client{baseURL: trimmed, httpClient: httpClient}, nil
}

// Login posts {token, user} to /login. A non-2xx answer yields an
// *ExchangeError whose Detail is the response body.
func (client *Client) Login(ctx context.Context, loginRequest LoginRequest) (LoginResponse, error) {
	payload, encodeErr := json.Marshal(loginRequest)
	if encodeErr != nil {
		return LoginResponse{}, fmt.Errorf("backend.login.encode: %w", encodeErr)
	}
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+loginPath, bytes.NewReader(payload))
	if requestErr != nil {
		return LoginResponse{}, fmt.Errorf("backend.login: %w", requestErr)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, responseErr := client.httpClient.Do(request)
	if responseErr != nil {
		return LoginResponse{}, fmt.Errorf("backend.login: %v: %w", responseErr, ErrBackendExchangeFailed)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = "Login failed"
		}
		return LoginResponse{}, &ExchangeError{StatusCode: response.StatusCode, Detail: detail}
	}

	var loginResponse LoginResponse
	if decodeErr := json.NewDecoder(response.Body).Decode(&loginResponse); decodeErr != nil {
		return LoginResponse{}, fmt.Errorf("backend.login.decode: %v: %w", decodeErr, ErrBackendExchangeFailed)
	}
	if strings.TrimSpace(loginResponse.Token) == "" {
		return LoginResponse{}, fmt.Errorf("backend.login: empty server token: %w", ErrBackendExchangeFailed)
	}
	return loginResponse, nil
}
