package auth

import "time"

// Config holds the LinkedIn sign-in configuration.
type Config struct {
	// ClientID is the LinkedIn application client id. An empty value is a
	// configuration error surfaced when the flow is initiated, not at startup,
	// so the rest of the site keeps working without sign-in.
	ClientID     string `env:"LINKEDIN_CLIENT_ID" envDefault:""`
	ClientSecret string `env:"LINKEDIN_CLIENT_SECRET" envDefault:""`

	// RedirectURL is the fixed OAuth redirect target pointing at the
	// callback route, e.g. https://example.com/auth/linkedin/callback.
	RedirectURL string `env:"LINKEDIN_REDIRECT_URL" envDefault:""`

	Scopes []string `env:"LINKEDIN_SCOPES" envDefault:"openid,profile,email" envSeparator:","`

	// AttemptTTL bounds how long a sign-in attempt is considered live.
	// Older attempts are treated as abandoned and reaped.
	AttemptTTL time.Duration `env:"AUTH_ATTEMPT_TTL" envDefault:"5m"`

	// SmallViewportWidth is the width at or below which the redirect
	// strategy is selected.
	SmallViewportWidth int `env:"AUTH_SMALL_VIEWPORT_WIDTH" envDefault:"768"`

	// AllowedOrigin restricts popup result delivery; postMessage targets
	// are compared against it exactly.
	AllowedOrigin string `env:"AUTH_ALLOWED_ORIGIN" envDefault:"http://localhost:8080"`

	// PopupCloseDelay is how long the popup shim waits before closing
	// after delivering an error, so the user can read the message.
	PopupCloseDelay time.Duration `env:"AUTH_POPUP_CLOSE_DELAY" envDefault:"3s"`
}
