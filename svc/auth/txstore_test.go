package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamartins/folio/pkg/cookie"
)

func newTestTxStore(t *testing.T) *TxStore {
	t.Helper()
	jar, err := cookie.New([]string{strings.Repeat("0123456789abcdef", 2)})
	require.NoError(t, err)
	return NewTxStore(jar, false)
}

func TestTxStoreState(t *testing.T) {
	t.Parallel()

	t.Run("take consumes the token", func(t *testing.T) {
		t.Parallel()
		tx := newTestTxStore(t)
		b := newBrowser()

		rec := httptest.NewRecorder()
		require.NoError(t, tx.SaveState(rec, "token-1"))
		b.apply(rec)

		rec = httptest.NewRecorder()
		token, ok := tx.TakeState(rec, b.request(http.MethodGet, "/"))
		b.apply(rec)
		require.True(t, ok)
		assert.Equal(t, "token-1", token)

		_, ok = tx.TakeState(httptest.NewRecorder(), b.request(http.MethodGet, "/"))
		assert.False(t, ok, "token must be gone after the first take")
	})

	t.Run("tampered value is absent", func(t *testing.T) {
		t.Parallel()
		tx := newTestTxStore(t)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: "not-encrypted"})

		_, ok := tx.TakeState(httptest.NewRecorder(), req)
		assert.False(t, ok)
	})
}

func TestTxStoreAttempt(t *testing.T) {
	t.Parallel()

	t.Run("roundtrip keeps strategy and start time", func(t *testing.T) {
		t.Parallel()
		tx := newTestTxStore(t)
		b := newBrowser()
		started := time.Now().Add(-time.Minute)

		rec := httptest.NewRecorder()
		require.NoError(t, tx.BeginAttempt(rec, StrategyRedirect, started))
		b.apply(rec)

		attempt, ok := tx.CurrentAttempt(b.request(http.MethodGet, "/"))
		require.True(t, ok)
		assert.Equal(t, StrategyRedirect, attempt.Strategy)
		assert.WithinDuration(t, started, attempt.StartedAt, time.Second)
		assert.False(t, attempt.Expired(5*time.Minute, time.Now()))
		assert.True(t, attempt.Expired(30*time.Second, time.Now()))
	})

	t.Run("malformed marker reads as absent", func(t *testing.T) {
		t.Parallel()
		tx := newTestTxStore(t)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: attemptCookie, Value: "garbage"})

		_, ok := tx.CurrentAttempt(req)
		assert.False(t, ok)
	})
}

func TestTxStoreReturnURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		wantOK bool
	}{
		{name: "local path", path: "/projects", wantOK: true},
		{name: "root", path: "/", wantOK: true},
		{name: "absolute url", path: "https://evil.example/", wantOK: false},
		{name: "protocol relative", path: "//evil.example/", wantOK: false},
		{name: "relative path", path: "projects", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tx := newTestTxStore(t)
			b := newBrowser()

			rec := httptest.NewRecorder()
			require.NoError(t, tx.SaveReturnURL(rec, tt.path))
			b.apply(rec)

			path, ok := tx.TakeReturnURL(httptest.NewRecorder(), b.request(http.MethodGet, "/"))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.path, path)
			}
		})
	}
}

func TestTxStoreClearAll(t *testing.T) {
	t.Parallel()

	tx := newTestTxStore(t)
	b := newBrowser()

	rec := httptest.NewRecorder()
	require.NoError(t, tx.SaveState(rec, "token-1"))
	require.NoError(t, tx.BeginAttempt(rec, StrategyPopup, time.Now()))
	require.NoError(t, tx.SaveReturnURL(rec, "/projects"))
	require.NoError(t, tx.SetInterrupted(rec))
	b.apply(rec)

	rec = httptest.NewRecorder()
	tx.ClearAll(rec)
	b.apply(rec)

	req := b.request(http.MethodGet, "/")
	_, hasState := tx.TakeState(httptest.NewRecorder(), req)
	_, hasAttempt := tx.CurrentAttempt(req)
	_, hasReturn := tx.TakeReturnURL(httptest.NewRecorder(), req)
	assert.False(t, hasState)
	assert.False(t, hasAttempt)
	assert.False(t, hasReturn)
	assert.False(t, tx.TakeInterrupted(httptest.NewRecorder(), req))
}

func TestTxStoreStripMarkers(t *testing.T) {
	t.Parallel()

	tx := newTestTxStore(t)
	b := newBrowser()

	rec := httptest.NewRecorder()
	require.NoError(t, tx.BeginAttempt(rec, StrategyPopup, time.Now()))
	b.apply(rec)
	b.cookies["keep"] = &http.Cookie{Name: "keep", Value: "1"}

	req := b.request(http.MethodGet, "/")
	tx.StripMarkers(req)

	_, ok := tx.CurrentAttempt(req)
	assert.False(t, ok)
	kept, err := req.Cookie("keep")
	require.NoError(t, err)
	assert.Equal(t, "1", kept.Value)
}
