package session

import (
	"net/http"
	"time"

	"github.com/anamartins/folio/pkg/cookie"
)

// Transport moves the session token between the client and the server.
type Transport interface {
	GetToken(r *http.Request) (string, error)
	SetToken(w http.ResponseWriter, token string, ttl time.Duration) error
	ClearToken(w http.ResponseWriter) error
}

// CookieTransport implements Transport using encrypted cookies.
type CookieTransport struct {
	jar           *cookie.Jar
	cookieName    string
	secureCookies bool
}

// NewCookieTransport creates a cookie-based transport.
func NewCookieTransport(jar *cookie.Jar, cookieName string, secureCookies bool) *CookieTransport {
	return &CookieTransport{
		jar:           jar,
		cookieName:    cookieName,
		secureCookies: secureCookies,
	}
}

func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	token, err := t.jar.GetEncrypted(r, t.cookieName)
	if err != nil {
		return "", ErrSessionNotFound
	}
	return token, nil
}

func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	opts := []cookie.Option{
		cookie.WithMaxAge(int(ttl.Seconds())),
		cookie.WithPath("/"),
		cookie.WithHTTPOnly(true),
		cookie.WithSameSite(http.SameSiteLaxMode), // CSRF protection
	}
	if t.secureCookies {
		opts = append(opts, cookie.WithSecure(true))
	}
	return t.jar.SetEncrypted(w, t.cookieName, token, opts...)
}

func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	t.jar.Delete(w, t.cookieName)
	return nil
}
