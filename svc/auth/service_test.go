package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamartins/folio/pkg/cookie"
	"github.com/anamartins/folio/pkg/session"
)

// browser keeps cookies across simulated requests the way a real client
// would, including honoring deletions.
type browser struct {
	cookies map[string]*http.Cookie
}

func newBrowser() *browser {
	return &browser{cookies: make(map[string]*http.Cookie)}
}

func (b *browser) apply(rec *httptest.ResponseRecorder) {
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
}

func (b *browser) request(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

type fakeAdapter struct {
	authURL      string
	lastState    string
	user         UserRecord
	resolveErr   error
	resolveCalls int
}

func (a *fakeAdapter) ProviderID() string { return OAuthProviderLinkedIn }

func (a *fakeAdapter) AuthURL(state string) (string, error) {
	a.lastState = state
	return a.authURL + "?state=" + state, nil
}

func (a *fakeAdapter) ResolveProfile(ctx context.Context, code string) (UserRecord, error) {
	a.resolveCalls++
	if a.resolveErr != nil {
		return UserRecord{}, a.resolveErr
	}
	return a.user, nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []string
}

func (t *recordingTracker) Track(_ context.Context, event string, _ map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *recordingTracker) names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

func testConfig() Config {
	return Config{
		AttemptTTL:         5 * time.Minute,
		SmallViewportWidth: 768,
		AllowedOrigin:      "http://localhost:8080",
		PopupCloseDelay:    3 * time.Second,
	}
}

type flowFixture struct {
	svc      *Service
	sessions *session.Manager
	adapter  *fakeAdapter
	tracker  *recordingTracker
	repo     *MemoryUserRepository
}

func newFlowFixture(t *testing.T, cfg Config) *flowFixture {
	t.Helper()

	jar, err := cookie.New([]string{strings.Repeat("0123456789abcdef", 2)})
	require.NoError(t, err)

	sessions := session.New(
		session.WithTransport(session.NewCookieTransport(jar, "sid", false)),
	)
	adapter := &fakeAdapter{authURL: "https://provider.test/authorize"}
	tracker := &recordingTracker{}
	repo := NewMemoryUserRepository()

	svc := NewService(cfg, adapter, sessions, NewTxStore(jar, false),
		WithTracker(tracker),
		WithUserRepository(repo),
	)
	t.Cleanup(func() { _ = svc.Close() })

	return &flowFixture{svc: svc, sessions: sessions, adapter: adapter, tracker: tracker, repo: repo}
}

// begin runs the initiation step and returns the result with the
// browser's cookies updated.
func (f *flowFixture) begin(t *testing.T, b *browser, path string, strategy Strategy) BeginResult {
	t.Helper()
	rec := httptest.NewRecorder()
	result, err := f.svc.Begin(rec, b.request(http.MethodGet, "/auth/linkedin"), path, strategy)
	require.NoError(t, err)
	b.apply(rec)
	return result
}

// callback runs the callback step for the given query string.
func (f *flowFixture) callback(b *browser, query string) (CallbackOutcome, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	outcome := f.svc.HandleCallback(rec, b.request(http.MethodGet, "/auth/linkedin/callback?"+query))
	b.apply(rec)
	return outcome, rec
}

func TestServiceBegin(t *testing.T) {
	t.Parallel()

	t.Run("writes markers and reports auth url", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		result := f.begin(t, b, "/projects", StrategyPopup)

		assert.True(t, result.Started)
		assert.Equal(t, StrategyPopup, result.Strategy)
		assert.Contains(t, result.AuthURL, "state="+f.adapter.lastState)

		attempt, ok := f.svc.tx.CurrentAttempt(b.request(http.MethodGet, "/"))
		require.True(t, ok)
		assert.Equal(t, StrategyPopup, attempt.Strategy)
		assert.WithinDuration(t, time.Now(), attempt.StartedAt, time.Minute)

		assert.Equal(t, []string{eventOAuthInitiated}, f.tracker.names())
	})

	t.Run("reports attempt in progress", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		first := f.begin(t, b, "/", StrategyPopup)
		require.True(t, first.Started)

		rec := httptest.NewRecorder()
		second, err := f.svc.Begin(rec, b.request(http.MethodGet, "/auth/linkedin"), "/", StrategyPopup)
		require.ErrorIs(t, err, ErrAttemptInProgress)
		assert.False(t, second.Started)
		assert.Equal(t, StrategyPopup, second.Strategy, "live attempt's strategy is reported")
		assert.Empty(t, second.AuthURL)
		assert.Equal(t, []string{eventOAuthInitiated}, f.tracker.names(), "second call must not track")
	})

	t.Run("expired attempt is overwritten", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		rec := httptest.NewRecorder()
		require.NoError(t, f.svc.tx.BeginAttempt(rec, StrategyPopup, time.Now().Add(-10*time.Minute)))
		b.apply(rec)

		result := f.begin(t, b, "/", StrategyRedirect)
		assert.True(t, result.Started)
		assert.Equal(t, StrategyRedirect, result.Strategy)
	})
}

func TestServiceCallback(t *testing.T) {
	t.Parallel()

	t.Run("success signs in and redirects back", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		f.adapter.user = UserRecord{ID: "u1", Name: "Ana", Email: "ana@example.com"}
		b := newBrowser()

		sub := f.svc.Events(t.Context())

		f.begin(t, b, "/projects", StrategyRedirect)
		outcome, _ := f.callback(b, "state="+f.adapter.lastState+"&code=code1")

		require.True(t, outcome.Succeeded())
		assert.False(t, outcome.Popup)
		assert.Equal(t, "/projects", outcome.RedirectTo)
		assert.Equal(t, "u1", outcome.User.ID)

		user, ok := f.svc.CurrentUser(t.Context(), b.request(http.MethodGet, "/"))
		require.True(t, ok)
		assert.Equal(t, "Ana", user.Name)

		assert.Contains(t, f.tracker.names(), eventUserAuthenticated)

		select {
		case msg := <-sub.Receive(t.Context()):
			assert.Equal(t, EventAuthSuccess, msg.Data.Type)
			require.NotNil(t, msg.Data.User)
			assert.Equal(t, "u1", msg.Data.User.ID)
		case <-time.After(time.Second):
			t.Fatal("expected a success event")
		}

		require.Eventually(t, func() bool {
			_, ok, err := f.repo.Find(t.Context(), "u1")
			return err == nil && ok
		}, time.Second, 10*time.Millisecond, "profile should be persisted")
	})

	t.Run("state mismatch terminates without exchange", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)
		outcome, _ := f.callback(b, "state=forged&code=code1")

		assert.True(t, outcome.Security)
		require.NotNil(t, outcome.Err)
		assert.Equal(t, KindSecurityMismatch, outcome.Err.Kind)
		assert.False(t, outcome.Err.Retryable)
		assert.Zero(t, f.adapter.resolveCalls)

		_, ok := f.svc.CurrentUser(t.Context(), b.request(http.MethodGet, "/"))
		assert.False(t, ok, "no user record may exist after a security failure")
	})

	t.Run("missing code terminates without exchange", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)
		outcome, _ := f.callback(b, "state="+f.adapter.lastState)

		assert.False(t, outcome.Security)
		require.NotNil(t, outcome.Err)
		assert.Equal(t, KindOAuthError, outcome.Err.Kind)
		assert.Zero(t, f.adapter.resolveCalls)
	})

	t.Run("state token is consumed exactly once", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		f.adapter.user = UserRecord{ID: "u1", Name: "Ana"}
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)
		query := "state=" + f.adapter.lastState + "&code=code1"

		first, _ := f.callback(b, query)
		require.True(t, first.Succeeded())

		replay, _ := f.callback(b, query)
		assert.True(t, replay.Security)
		assert.Equal(t, 1, f.adapter.resolveCalls, "replay must not reach the provider")
	})

	t.Run("provider cancellation maps to user_cancelled", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)
		outcome, _ := f.callback(b, "error=access_denied&error_description=user+denied")

		require.NotNil(t, outcome.Err)
		assert.Equal(t, KindUserCancelled, outcome.Err.Kind)
		assert.Zero(t, f.adapter.resolveCalls)
	})

	t.Run("failed exchange maps to oauth_error", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		f.adapter.resolveErr = ErrInvalidCode
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)
		outcome, _ := f.callback(b, "state="+f.adapter.lastState+"&code=bad")

		require.NotNil(t, outcome.Err)
		assert.Equal(t, KindOAuthError, outcome.Err.Kind)
		assert.True(t, outcome.Err.Retryable)
	})

	t.Run("unreachable provider maps to network_error", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		f.adapter.resolveErr = errors.New("dial tcp: connection refused")
		b := newBrowser()

		f.begin(t, b, "/", StrategyRedirect)
		outcome, _ := f.callback(b, "state="+f.adapter.lastState+"&code=code1")

		require.NotNil(t, outcome.Err)
		assert.Equal(t, KindNetworkError, outcome.Err.Kind)
	})

	t.Run("popup attempt yields popup outcome", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		f.adapter.user = UserRecord{ID: "u1", Name: "Ana"}
		b := newBrowser()

		f.begin(t, b, "/", StrategyPopup)
		outcome, _ := f.callback(b, "state="+f.adapter.lastState+"&code=code1")

		require.True(t, outcome.Succeeded())
		assert.True(t, outcome.Popup)
	})
}

func TestServiceCurrentUser(t *testing.T) {
	t.Parallel()

	t.Run("purges record missing required fields", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		rec := httptest.NewRecorder()
		err := f.sessions.SignIn(t.Context(), rec, b.request(http.MethodGet, "/"), json.RawMessage(`{"id":"u1"}`))
		require.NoError(t, err)
		b.apply(rec)

		_, ok := f.svc.CurrentUser(t.Context(), b.request(http.MethodGet, "/"))
		assert.False(t, ok)

		sess, err := f.sessions.Get(t.Context(), b.request(http.MethodGet, "/"))
		require.NoError(t, err)
		assert.False(t, sess.IsAuthenticated(), "invalid record must be purged from the session")
	})

	t.Run("returns stored valid record", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t, testConfig())
		b := newBrowser()

		rec := httptest.NewRecorder()
		err := f.sessions.SignIn(t.Context(), rec, b.request(http.MethodGet, "/"),
			json.RawMessage(`{"id":"u1","name":"Ana","headline":"Engineer"}`))
		require.NoError(t, err)
		b.apply(rec)

		user, ok := f.svc.CurrentUser(t.Context(), b.request(http.MethodGet, "/"))
		require.True(t, ok)
		assert.Equal(t, "Engineer", user.Headline)

		state := f.svc.State(t.Context(), b.request(http.MethodGet, "/"))
		assert.True(t, state.IsAuthenticated)
		require.NotNil(t, state.User)
		assert.Equal(t, "Ana", state.User.Name)
	})
}

func TestServiceSignOut(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t, testConfig())
	f.adapter.user = UserRecord{ID: "u1", Name: "Ana"}
	b := newBrowser()

	f.begin(t, b, "/", StrategyRedirect)
	outcome, _ := f.callback(b, "state="+f.adapter.lastState+"&code=code1")
	require.True(t, outcome.Succeeded())

	rec := httptest.NewRecorder()
	require.NoError(t, f.svc.SignOut(rec, b.request(http.MethodPost, "/auth/signout")))
	b.apply(rec)

	_, ok := f.svc.CurrentUser(t.Context(), b.request(http.MethodGet, "/"))
	assert.False(t, ok)

	_, hasAttempt := f.svc.tx.CurrentAttempt(b.request(http.MethodGet, "/"))
	assert.False(t, hasAttempt, "residual markers must be cleared on sign-out")
}
