package devbackend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// ErrInvalidAccessToken indicates the identity provider rejected the access token.
var ErrInvalidAccessToken = errors.New("devbackend.invalid_access_token")

// TokenInfo is the identity provider's view of an access token.
type TokenInfo struct {
	Audience      string
	IssuedTo      string
	UserID        string
	Email         string
	EmailVerified bool
	ExpiresIn     int64
}

// IssuedFor reports whether the token was issued to clientID.
func (info TokenInfo) IssuedFor(clientID string) bool {
	return info.Audience == clientID || info.IssuedTo == clientID
}

// AccessTokenVerifier resolves an access token into TokenInfo.
type AccessTokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (TokenInfo, error)
}

// GoogleAccessTokenVerifier calls Google's tokeninfo API.
type GoogleAccessTokenVerifier struct {
	service *googleoauth2.Service
}

// NewGoogleAccessTokenVerifier constructs a verifier. A nil httpClient uses an
// unauthenticated default client; endpoint overrides the API base URL when set.
func NewGoogleAccessTokenVerifier(ctx context.Context, httpClient *http.Client, endpoint string) (*GoogleAccessTokenVerifier, error) {
	options := []option.ClientOption{}
	if httpClient != nil {
		options = append(options, option.WithHTTPClient(httpClient))
	} else {
		options = append(options, option.WithoutAuthentication())
	}
	if strings.TrimSpace(endpoint) != "" {
		options = append(options, option.WithEndpoint(endpoint))
	}
	service, err := googleoauth2.NewService(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("devbackend.new_verifier: %w", err)
	}
	return &GoogleAccessTokenVerifier{service: service}, nil
}

// Verify asks tokeninfo about accessToken.
func (verifier *GoogleAccessTokenVerifier) Verify(ctx context.Context, accessToken string) (TokenInfo, error) {
	if strings.TrimSpace(accessToken) == "" {
		return TokenInfo{}, fmt.Errorf("devbackend.verify: %w", ErrInvalidAccessToken)
	}
	info, err := verifier.service.Tokeninfo().AccessToken(accessToken).Context(ctx).Do()
	if err != nil {
		return TokenInfo{}, fmt.Errorf("devbackend.verify: %w: %v", ErrInvalidAccessToken, err)
	}
	return TokenInfo{
		Audience:      info.Audience,
		IssuedTo:      info.IssuedTo,
		UserID:        info.UserId,
		Email:         info.Email,
		EmailVerified: info.VerifiedEmail,
		ExpiresIn:     info.ExpiresIn,
	}, nil
}
