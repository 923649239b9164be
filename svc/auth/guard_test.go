package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkInterrupted(t *testing.T) {
	t.Parallel()

	t.Run("ignored without live attempt", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		rec := httptest.NewRecorder()
		f.svc.MarkInterrupted(rec, b.request(http.MethodPost, "/auth/linkedin/interrupted"))
		b.apply(rec)

		notice := f.svc.Reconcile(httptest.NewRecorder(), b.request(http.MethodGet, "/"))
		assert.Nil(t, notice)
	})

	t.Run("sets flag during attempt", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)

		rec := httptest.NewRecorder()
		f.svc.MarkInterrupted(rec, b.request(http.MethodPost, "/auth/linkedin/interrupted"))
		b.apply(rec)

		assert.True(t, f.svc.tx.TakeInterrupted(httptest.NewRecorder(), b.request(http.MethodGet, "/")))
	})
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	t.Run("interrupted flag becomes a one-shot notice", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)

		rec := httptest.NewRecorder()
		f.svc.MarkInterrupted(rec, b.request(http.MethodPost, "/auth/linkedin/interrupted"))
		b.apply(rec)

		rec = httptest.NewRecorder()
		notice := f.svc.Reconcile(rec, b.request(http.MethodGet, "/"))
		b.apply(rec)

		require.NotNil(t, notice)
		assert.Equal(t, interruptedMessage, notice.Message)
		assert.Positive(t, notice.DismissAfter)

		rec = httptest.NewRecorder()
		assert.Nil(t, f.svc.Reconcile(rec, b.request(http.MethodGet, "/")), "notice must appear once")

		_, hasAttempt := f.svc.tx.CurrentAttempt(b.request(http.MethodGet, "/"))
		assert.False(t, hasAttempt, "interrupted attempt markers must be cleared")
	})

	t.Run("completed flow outlives an interrupted flag", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		f.adapter.user = UserRecord{ID: "u1", Name: "Ana"}
		b := newBrowser()

		// Blocked-popup fallback: the tab navigates away mid-flow, so the
		// unload beacon sets the interrupted flag before the provider
		// completes the redirect-shaped flow.
		f.begin(t, b, "/projects", StrategyPopup)

		rec := httptest.NewRecorder()
		f.svc.MarkInterrupted(rec, b.request(http.MethodPost, "/auth/linkedin/interrupted"))
		b.apply(rec)

		outcome, _ := f.callback(b, "state="+f.adapter.lastState+"&code=code1")
		require.True(t, outcome.Succeeded())

		rec = httptest.NewRecorder()
		notice := f.svc.Reconcile(rec, b.request(http.MethodGet, "/projects"))
		b.apply(rec)
		assert.Nil(t, notice, "a finished sign-in must not surface an interruption")

		user, ok := f.svc.CurrentUser(t.Context(), b.request(http.MethodGet, "/"))
		require.True(t, ok)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("reaps stale attempt silently", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		rec := httptest.NewRecorder()
		require.NoError(t, f.svc.tx.BeginAttempt(rec, StrategyPopup, time.Now().Add(-time.Hour)))
		b.apply(rec)

		rec = httptest.NewRecorder()
		notice := f.svc.Reconcile(rec, b.request(http.MethodGet, "/"))
		b.apply(rec)

		assert.Nil(t, notice, "reaping is silent")
		_, hasAttempt := f.svc.tx.CurrentAttempt(b.request(http.MethodGet, "/"))
		assert.False(t, hasAttempt)
	})

	t.Run("leaves live attempt alone", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		f.begin(t, b, "/", StrategyPopup)

		rec := httptest.NewRecorder()
		assert.Nil(t, f.svc.Reconcile(rec, b.request(http.MethodGet, "/")))
		b.apply(rec)

		_, hasAttempt := f.svc.tx.CurrentAttempt(b.request(http.MethodGet, "/"))
		assert.True(t, hasAttempt)
	})
}

func TestGuardMiddleware(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t, testConfig())
	b := newBrowser()

	f.begin(t, b, "/", StrategyRedirect)

	rec := httptest.NewRecorder()
	f.svc.MarkInterrupted(rec, b.request(http.MethodPost, "/auth/linkedin/interrupted"))
	b.apply(rec)

	var seen *Notice
	handler := f.svc.GuardMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = NoticeFromContext(r.Context())
	}))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, b.request(http.MethodGet, "/"))
	b.apply(rec)

	require.NotNil(t, seen)
	assert.Equal(t, interruptedMessage, seen.Message)

	seen = nil
	handler.ServeHTTP(httptest.NewRecorder(), b.request(http.MethodGet, "/"))
	assert.Nil(t, seen)
}
