// Package devbackend is a development backend for the widget: it serves the
// /login exchange and a /me lookup guarded by the server session cookie.
package devbackend

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultIssuer is the issuer stamped on development server tokens.
	DefaultIssuer = "authwidget-dev"
	// DefaultSessionTTL matches the lifetime of the widget's credential cookies.
	DefaultSessionTTL = 30 * 24 * time.Hour
)

var (
	errMissingClientID   = errors.New("devbackend.missing_client_id")
	errMissingSigningKey = errors.New("devbackend.missing_signing_key")
	errInvalidSessionTTL = errors.New("devbackend.invalid_session_ttl")
)

// ServerConfig holds runtime settings for the development backend.
type ServerConfig struct {
	GoogleClientID string
	SigningKey     []byte
	Issuer         string
	SessionTTL     time.Duration
}

func (configuration ServerConfig) validate() (ServerConfig, error) {
	if strings.TrimSpace(configuration.GoogleClientID) == "" {
		return configuration, fmt.Errorf("devbackend.config: %w", errMissingClientID)
	}
	if len(configuration.SigningKey) == 0 {
		return configuration, fmt.Errorf("devbackend.config: %w", errMissingSigningKey)
	}
	if configuration.SessionTTL < 0 {
		return configuration, fmt.Errorf("devbackend.config: %w", errInvalidSessionTTL)
	}
	if configuration.SessionTTL == 0 {
		configuration.SessionTTL = DefaultSessionTTL
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		configuration.Issuer = DefaultIssuer
	}
	return configuration, nil
}
