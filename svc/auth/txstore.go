package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/anamartins/folio/pkg/cookie"
)

// Cookie names for the in-flight sign-in transaction markers. All of
// them are ephemeral: created when a flow begins, consumed on terminal
// transitions or reaped by the lifecycle guard.
const (
	stateCookie       = "li_auth_state"
	attemptCookie     = "li_auth_attempt"
	returnCookie      = "li_auth_return"
	interruptedCookie = "li_auth_interrupted"
)

// markerLifetime bounds how long marker cookies physically survive.
// Logical expiry (AttemptTTL) is shorter; the extra window lets the
// guard observe and reap stale markers instead of losing them silently.
const markerLifetime = time.Hour

// Attempt is the auth-in-progress marker: when the flow started and
// which strategy it used.
type Attempt struct {
	StartedAt time.Time
	Strategy  Strategy
}

// Expired reports whether the attempt is older than the given TTL.
func (a Attempt) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(a.StartedAt) > ttl
}

// TxStore keeps the ephemeral OAuth transaction markers in encrypted
// cookies, the server-side analog of per-tab ephemeral storage.
type TxStore struct {
	jar    *cookie.Jar
	secure bool
}

// NewTxStore creates a transaction marker store backed by the jar.
func NewTxStore(jar *cookie.Jar, secureCookies bool) *TxStore {
	return &TxStore{jar: jar, secure: secureCookies}
}

func (s *TxStore) markerOptions(ttl time.Duration) []cookie.Option {
	opts := []cookie.Option{
		cookie.WithPath("/"),
		cookie.WithMaxAge(int(ttl.Seconds())),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode),
	}
	if s.secure {
		opts = append(opts, cookie.WithSecure(true))
	}
	return opts
}

// SaveState stores the CSRF state token.
func (s *TxStore) SaveState(w http.ResponseWriter, token string) error {
	return s.jar.SetEncrypted(w, stateCookie, token, s.markerOptions(markerLifetime)...)
}

// TakeState reads and deletes the stored CSRF state token. The token is
// consumed exactly once; a second read finds nothing.
func (s *TxStore) TakeState(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, err := s.jar.GetEncrypted(r, stateCookie)
	s.jar.Delete(w, stateCookie)
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

// ClearState deletes the stored CSRF state token without reading it.
func (s *TxStore) ClearState(w http.ResponseWriter) {
	s.jar.Delete(w, stateCookie)
}

// BeginAttempt writes the auth-in-progress marker.
func (s *TxStore) BeginAttempt(w http.ResponseWriter, strategy Strategy, now time.Time) error {
	value := now.UTC().Format(time.RFC3339Nano) + "|" + string(strategy)
	return s.jar.SetEncrypted(w, attemptCookie, value, s.markerOptions(markerLifetime)...)
}

// CurrentAttempt reads the auth-in-progress marker if one exists.
// Malformed markers are reported as absent.
func (s *TxStore) CurrentAttempt(r *http.Request) (Attempt, bool) {
	value, err := s.jar.GetEncrypted(r, attemptCookie)
	if err != nil {
		return Attempt{}, false
	}

	ts, strategy, ok := strings.Cut(value, "|")
	if !ok {
		return Attempt{}, false
	}
	startedAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Attempt{}, false
	}

	return Attempt{StartedAt: startedAt, Strategy: Strategy(strategy)}, true
}

// ClearAttempt deletes the auth-in-progress marker.
func (s *TxStore) ClearAttempt(w http.ResponseWriter) {
	s.jar.Delete(w, attemptCookie)
}

// SaveReturnURL stores the path to navigate back to after a
// redirect-strategy flow completes.
func (s *TxStore) SaveReturnURL(w http.ResponseWriter, path string) error {
	return s.jar.SetEncrypted(w, returnCookie, path, s.markerOptions(markerLifetime)...)
}

// TakeReturnURL reads and deletes the stored return URL. Only local
// paths are honored so the value can never redirect off-site.
func (s *TxStore) TakeReturnURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	path, err := s.jar.GetEncrypted(r, returnCookie)
	s.jar.Delete(w, returnCookie)
	if err != nil || path == "" {
		return "", false
	}
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return "", false
	}
	return path, true
}

// SetInterrupted sets the navigation-during-auth flag.
func (s *TxStore) SetInterrupted(w http.ResponseWriter) error {
	return s.jar.SetEncrypted(w, interruptedCookie, "1", s.markerOptions(markerLifetime)...)
}

// ClearInterrupted deletes the navigation-during-auth flag without
// reading it.
func (s *TxStore) ClearInterrupted(w http.ResponseWriter) {
	s.jar.Delete(w, interruptedCookie)
}

// TakeInterrupted reads and clears the navigation-during-auth flag.
func (s *TxStore) TakeInterrupted(w http.ResponseWriter, r *http.Request) bool {
	value, err := s.jar.GetEncrypted(r, interruptedCookie)
	if err != nil {
		return false
	}
	s.jar.Delete(w, interruptedCookie)
	return value == "1"
}

// StripMarkers drops the marker cookies from the request itself, so
// reads later in the same request observe the cleared state that ClearAll
// only promises for the next request.
func (s *TxStore) StripMarkers(r *http.Request) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range cookies {
		switch c.Name {
		case stateCookie, attemptCookie, returnCookie, interruptedCookie:
			continue
		}
		r.AddCookie(c)
	}
}

// ClearAll removes every residual transaction marker; used by sign-out
// and terminal transitions.
func (s *TxStore) ClearAll(w http.ResponseWriter) {
	s.jar.Delete(w, stateCookie)
	s.jar.Delete(w, attemptCookie)
	s.jar.Delete(w, returnCookie)
	s.jar.Delete(w, interruptedCookie)
}
