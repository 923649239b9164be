package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/anamartins/folio/pkg/broadcast"
	"github.com/anamartins/folio/pkg/session"
)

// Tracker receives product-analytics events. Delivery is best-effort and
// never on the critical path of the flow.
type Tracker interface {
	Track(ctx context.Context, event string, props map[string]any)
}

// Analytics event names emitted by the flow.
const (
	eventOAuthInitiated    = "LinkedIn OAuth Initiated"
	eventUserAuthenticated = "User Authenticated"
)

type noopTracker struct{}

func (noopTracker) Track(context.Context, string, map[string]any) {}

// Service owns the LinkedIn sign-in flow: strategy selection, flow
// initiation, callback handling, the lifecycle guard, and the session
// facade. All flow state lives in the session store and the transaction
// marker cookies; the Service itself holds no per-user state.
type Service struct {
	cfg      Config
	adapter  ProviderAdapter
	sessions *session.Manager
	tx       *TxStore
	users    UserRepository
	events   broadcast.Broadcaster[Event]
	tracker  Tracker
	log      *slog.Logger
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithUserRepository sets the profile persistence backend.
func WithUserRepository(repo UserRepository) ServiceOption {
	return func(s *Service) {
		if repo != nil {
			s.users = repo
		}
	}
}

// WithTracker sets the analytics tracker.
func WithTracker(t Tracker) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates the sign-in flow service.
func NewService(cfg Config, adapter ProviderAdapter, sessions *session.Manager, tx *TxStore, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:      cfg,
		adapter:  adapter,
		sessions: sessions,
		tx:       tx,
		users:    NewMemoryUserRepository(),
		events:   broadcast.NewMemoryBroadcaster[Event](16),
		tracker:  noopTracker{},
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close shuts down the outcome event stream.
func (s *Service) Close() error {
	return s.events.Close()
}

// BeginResult describes how an initiated flow should proceed.
type BeginResult struct {
	// Started is false when a non-expired attempt was already live and
	// the call was a no-op; Begin then reports ErrAttemptInProgress.
	Started  bool
	Strategy Strategy
	AuthURL  string
}

// Begin initiates the sign-in flow from currentPath. While a non-expired
// attempt marker exists the call is a no-op and returns
// ErrAttemptInProgress; a marker older than the attempt TTL is
// overwritten.
func (s *Service) Begin(w http.ResponseWriter, r *http.Request, currentPath string, strategy Strategy) (BeginResult, error) {
	now := time.Now()

	if attempt, ok := s.tx.CurrentAttempt(r); ok && !attempt.Expired(s.cfg.AttemptTTL, now) {
		s.log.InfoContext(r.Context(), "sign-in already in progress, ignoring",
			slog.Time("started_at", attempt.StartedAt),
			slog.String("strategy", string(attempt.Strategy)))
		return BeginResult{Started: false, Strategy: attempt.Strategy}, ErrAttemptInProgress
	}

	state, err := generateStateToken()
	if err != nil {
		return BeginResult{}, err
	}

	authURL, err := s.adapter.AuthURL(state)
	if err != nil {
		return BeginResult{}, err
	}

	// State token and in-progress marker are written in the same
	// response so the transaction either exists fully or not at all.
	if err := s.tx.SaveState(w, state); err != nil {
		return BeginResult{}, err
	}
	if err := s.tx.BeginAttempt(w, strategy, now); err != nil {
		return BeginResult{}, err
	}
	if err := s.tx.SaveReturnURL(w, currentPath); err != nil {
		return BeginResult{}, err
	}

	s.tracker.Track(r.Context(), eventOAuthInitiated, map[string]any{
		"strategy": string(strategy),
		"path":     currentPath,
	})
	s.log.InfoContext(r.Context(), "sign-in flow initiated", slog.String("strategy", string(strategy)))

	return BeginResult{Started: true, Strategy: strategy, AuthURL: authURL}, nil
}

// SessionState is the read model exposed to the UI.
type SessionState struct {
	IsAuthenticated bool        `json:"isAuthenticated"`
	User            *UserRecord `json:"user,omitempty"`
	Loading         bool        `json:"loading"`
}

// SessionMiddleware guarantees every page navigation carries a session,
// creating an anonymous one on first visit, and attaches it to the
// request context so the facade reads it without a second store lookup.
func (s *Service) SessionMiddleware(next http.Handler) http.Handler {
	return s.sessions.EnsureSession(next)
}

// CurrentUser reads the authenticated user from the request's session,
// preferring one already attached to the context by SessionMiddleware.
// A stored record that fails the shape check is purged and reported as
// absent.
func (s *Service) CurrentUser(ctx context.Context, r *http.Request) (UserRecord, bool) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		var err error
		sess, err = s.sessions.Get(ctx, r)
		if err != nil {
			return UserRecord{}, false
		}
	}
	if !sess.IsAuthenticated() {
		return UserRecord{}, false
	}

	user, ok := decodeUserRecord(sess.User)
	if !ok {
		// Corrupted or incomplete record: silently purge, stay signed out.
		if err := s.sessions.ClearUser(ctx, r); err != nil {
			s.log.WarnContext(ctx, "failed to purge invalid user record", slog.Any("error", err))
		}
		return UserRecord{}, false
	}

	return user, true
}

// State returns the facade read model for the request.
func (s *Service) State(ctx context.Context, r *http.Request) SessionState {
	user, ok := s.CurrentUser(ctx, r)
	if !ok {
		return SessionState{}
	}
	return SessionState{IsAuthenticated: true, User: &user}
}

// SignOut deletes the user record and all residual transaction markers.
func (s *Service) SignOut(w http.ResponseWriter, r *http.Request) error {
	s.tx.ClearAll(w)
	return s.sessions.SignOut(r.Context(), w, r)
}

func (s *Service) signIn(w http.ResponseWriter, r *http.Request, user UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.sessions.SignIn(r.Context(), w, r, data)
}

// generateStateToken creates the opaque CSRF state token.
func generateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
