package identity

import "errors"

var (
	// ErrPopupFlowFailed indicates the interactive authorization was rejected, cancelled, or failed.
	ErrPopupFlowFailed = errors.New("identity.popup_flow_failed")
	// ErrUserInfoFetchFailed indicates the userinfo endpoint did not answer with a profile.
	ErrUserInfoFetchFailed = errors.New("identity.userinfo_fetch_failed")
	// ErrStateNotFound indicates the callback state was never issued or already consumed.
	ErrStateNotFound = errors.New("identity.state_not_found")
	// ErrStateExpired indicates the callback arrived after the state lifetime.
	ErrStateExpired = errors.New("identity.state_expired")
)
