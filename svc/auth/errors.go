package auth

import "errors"

var (
	// ErrInvalidCode indicates the authorization code exchange failed
	ErrInvalidCode = errors.New("auth.invalid_code")

	// ErrNoProfile indicates the provider returned an unusable profile
	ErrNoProfile = errors.New("auth.no_profile")

	// ErrAttemptInProgress indicates a non-expired sign-in attempt exists
	ErrAttemptInProgress = errors.New("auth.attempt_in_progress")
)

// Kind classifies sign-in failures for the single error-display surface.
type Kind string

const (
	KindPopupBlocked         Kind = "popup_blocked"
	KindNetworkError         Kind = "network_error"
	KindRateLimited          Kind = "rate_limited"
	KindUserCancelled        Kind = "user_cancelled"
	KindThirdPartyCookies    Kind = "third_party_cookies"
	KindBrowserCompatibility Kind = "browser_compatibility"
	KindOAuthError           Kind = "oauth_error"
	KindSecurityMismatch     Kind = "security_state_mismatch"
	KindConfigurationMissing Kind = "configuration_missing"
)

// FlowError is the user-facing failure shape: a human-readable message, a
// technical detail string, and whether retrying can help.
type FlowError struct {
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e *FlowError) Error() string {
	if e.Detail != "" {
		return string(e.Kind) + ": " + e.Detail
	}
	return string(e.Kind)
}

// NewFlowError builds a FlowError for the given kind. Security mismatches
// and missing configuration are never retryable regardless of the flag.
func NewFlowError(kind Kind, message, detail string, retryable bool) *FlowError {
	if kind == KindSecurityMismatch || kind == KindConfigurationMissing {
		retryable = false
	}
	return &FlowError{
		Kind:      kind,
		Message:   message,
		Detail:    detail,
		Retryable: retryable,
	}
}

func securityMismatchError(detail string) *FlowError {
	return NewFlowError(KindSecurityMismatch, "Sign-in request could not be verified. Please start again.", detail, false)
}

func providerError(code, description string) *FlowError {
	kind := KindOAuthError
	retryable := true
	if code == "user_cancelled_login" || code == "user_cancelled_authorize" || code == "access_denied" {
		kind = KindUserCancelled
	}
	detail := code
	if description != "" {
		detail += ": " + description
	}
	return NewFlowError(kind, "LinkedIn sign-in did not complete.", detail, retryable)
}
