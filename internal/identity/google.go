// Package identity talks to the Google identity provider: it runs the
// interactive authorization and fetches the signed-in user's profile.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tyemirov/authwidget/internal/sessionstate"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's OpenID userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// Scopes requested during sign-in.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Authorizer runs the interactive sign-in and yields an access token.
type Authorizer interface {
	Authorize(ctx context.Context) (*oauth2.Token, error)
}

// UserInfoFetcher resolves the profile behind an access token.
type UserInfoFetcher interface {
	UserInfo(ctx context.Context, token *oauth2.Token) (*sessionstate.Profile, error)
}

// NewGoogleConfig returns an OAuth2 client configuration scoped to clientID.
func NewGoogleConfig(clientID string, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       append([]string(nil), Scopes...),
		Endpoint:     google.Endpoint,
	}
}

// UserInfoClient fetches profiles from a userinfo endpoint.
type UserInfoClient struct {
	userInfoURL string
	httpClient  *http.Client
}

// NewUserInfoClient constructs a client for userInfoURL; an empty URL selects
// DefaultUserInfoURL and a nil httpClient selects http.DefaultClient.
func NewUserInfoClient(userInfoURL string, httpClient *http.Client) *UserInfoClient {
	if strings.TrimSpace(userInfoURL) == "" {
		userInfoURL = DefaultUserInfoURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &UserInfoClient{userInfoURL: userInfoURL, httpClient: httpClient}
}

// UserInfo sends GET userinfo with the bearer token and decodes the profile.
func (client *UserInfoClient) UserInfo(ctx context.Context, token *oauth2.Token) (*sessionstate.Profile, error) {
	if token == nil || strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("identity.userinfo: missing access token: %w", ErrUserInfoFetchFailed)
	}
	bearerClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, client.httpClient), oauth2.StaticTokenSource(token))
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, client.userInfoURL, nil)
	if requestErr != nil {
		return nil, fmt.Errorf("identity.userinfo: %w", requestErr)
	}
	request.Header.Set("Accept", "application/json")
	response, responseErr := bearerClient.Do(request)
	if responseErr != nil {
		return nil, fmt.Errorf("identity.userinfo: %v: %w", responseErr, ErrUserInfoFetchFailed)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil, fmt.Errorf("identity.userinfo: status %d: %w", response.StatusCode, ErrUserInfoFetchFailed)
	}
	var profile sessionstate.Profile
	if decodeErr := json.NewDecoder(response.Body).Decode(&profile); decodeErr != nil {
		return nil, fmt.Errorf("identity.userinfo.decode: %v: %w", decodeErr, ErrUserInfoFetchFailed)
	}
	return &profile, nil
}
