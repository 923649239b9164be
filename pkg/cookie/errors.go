package cookie

import "errors"

var (
	// ErrNoSecret indicates no usable secret was provided
	ErrNoSecret = errors.New("cookie.no_secret")

	// ErrSecretTooShort indicates a secret shorter than the minimum length
	ErrSecretTooShort = errors.New("cookie.secret_too_short")

	// ErrCookieNotFound indicates the request carries no such cookie
	ErrCookieNotFound = errors.New("cookie.not_found")

	// ErrInvalidFormat indicates a malformed signed or encrypted value
	ErrInvalidFormat = errors.New("cookie.invalid_format")

	// ErrInvalidSignature indicates signature verification failed for all secrets
	ErrInvalidSignature = errors.New("cookie.invalid_signature")

	// ErrDecryptionFailed indicates decryption failed for all secrets
	ErrDecryptionFailed = errors.New("cookie.decryption_failed")
)
