package session_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamartins/folio/pkg/cookie"
	"github.com/anamartins/folio/pkg/session"
)

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	jar, err := cookie.New([]string{strings.Repeat("s", 32)})
	require.NoError(t, err)
	return session.New(
		session.WithConfig(session.Config{
			CookieName:      "sid",
			AnonIdleTimeout: 30 * time.Minute,
			AnonMaxLifetime: 24 * time.Hour,
			AuthIdleTimeout: 2 * time.Hour,
			AuthMaxLifetime: 720 * time.Hour,
		}),
		session.WithTransport(session.NewCookieTransport(jar, "sid", false)),
	)
}

func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return req
}

func TestManagerEnsure(t *testing.T) {
	t.Parallel()

	t.Run("creates anonymous session", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)

		rec := httptest.NewRecorder()
		sess, err := m.Ensure(t.Context(), rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.False(t, sess.IsAuthenticated())
		assert.NotEmpty(t, sess.Token)

		// The same cookie resolves to the same session.
		again, err := m.Get(t.Context(), carry(rec))
		require.NoError(t, err)
		assert.Equal(t, sess.ID, again.ID)
	})

	t.Run("missing session errors on get", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)

		_, err := m.Get(t.Context(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})
}

func TestManagerSignIn(t *testing.T) {
	t.Parallel()

	t.Run("rotates the token", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)

		rec := httptest.NewRecorder()
		anon, err := m.Ensure(t.Context(), rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)

		signInRec := httptest.NewRecorder()
		err = m.SignIn(t.Context(), signInRec, carry(rec), json.RawMessage(`{"id":"u1","name":"Ana"}`))
		require.NoError(t, err)

		authed, err := m.Get(t.Context(), carry(signInRec))
		require.NoError(t, err)
		assert.True(t, authed.IsAuthenticated())
		assert.NotEqual(t, anon.Token, authed.Token, "token must rotate on sign-in")

		// The pre-rotation token no longer resolves.
		_, err = m.Get(t.Context(), carry(rec))
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("works without a prior session", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)

		rec := httptest.NewRecorder()
		err := m.SignIn(t.Context(), rec, httptest.NewRequest(http.MethodGet, "/", nil), json.RawMessage(`{"id":"u1"}`))
		require.NoError(t, err)

		sess, err := m.Get(t.Context(), carry(rec))
		require.NoError(t, err)
		assert.True(t, sess.IsAuthenticated())
	})
}

func TestManagerSignOut(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SignIn(t.Context(), rec, httptest.NewRequest(http.MethodGet, "/", nil), json.RawMessage(`{"id":"u1"}`)))

	outRec := httptest.NewRecorder()
	require.NoError(t, m.SignOut(t.Context(), outRec, carry(rec)))

	_, err := m.Get(t.Context(), carry(rec))
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestManagerClearUser(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SignIn(t.Context(), rec, httptest.NewRequest(http.MethodGet, "/", nil), json.RawMessage(`{"id":"u1"}`)))

	require.NoError(t, m.ClearUser(t.Context(), carry(rec)))

	sess, err := m.Get(t.Context(), carry(rec))
	require.NoError(t, err)
	assert.False(t, sess.IsAuthenticated(), "user record removed, session kept")
}

func TestManagerEnsureSession(t *testing.T) {
	t.Parallel()

	m := newManager(t)

	var attached *session.Session
	h := m.EnsureSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached, _ = session.FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, attached, "anonymous session created and attached")
	assert.False(t, attached.IsAuthenticated())

	// The cookie written on the first pass resolves to the same session.
	sess, err := m.Get(t.Context(), carry(rec))
	require.NoError(t, err)
	assert.Equal(t, attached.ID, sess.ID)
}
