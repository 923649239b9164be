package auth

import (
	"log/slog"
	"net/http"
	"time"
)

// Notice is the transient, self-dismissing status message the lifecycle
// guard surfaces when an attempt was abandoned mid-flight. It is not an
// error; the UI renders it once and lets it fade.
type Notice struct {
	Message      string        `json:"message"`
	DismissAfter time.Duration `json:"dismissAfter"`
}

const interruptedMessage = "Sign-in was interrupted. Please try again."

// MarkInterrupted is the unload-beacon target: if an attempt is in
// progress, the navigation-during-auth flag is set. Best-effort and
// fire-and-forget; the beacon sender never reads the response.
func (s *Service) MarkInterrupted(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.tx.CurrentAttempt(r); !ok {
		return
	}
	if err := s.tx.SetInterrupted(w); err != nil {
		s.log.WarnContext(r.Context(), "failed to set interrupted flag", slog.Any("error", err))
	}
}

// Reconcile runs on page loads. It reaps a stale in-progress marker
// silently, and converts a set navigation-during-auth flag into a
// one-shot transient notice.
func (s *Service) Reconcile(w http.ResponseWriter, r *http.Request) *Notice {
	now := time.Now()

	if attempt, ok := s.tx.CurrentAttempt(r); ok && attempt.Expired(s.cfg.AttemptTTL, now) {
		// Stale-attempt reap: allows a fresh attempt after a crash or
		// an abandoned tab. No user-visible output.
		s.tx.ClearAttempt(w)
		s.tx.ClearState(w)
		s.log.InfoContext(r.Context(), "reaped stale sign-in attempt",
			slog.Time("started_at", attempt.StartedAt))
	}

	if s.tx.TakeInterrupted(w, r) {
		s.tx.ClearAttempt(w)
		s.tx.ClearState(w)
		return &Notice{Message: interruptedMessage, DismissAfter: 5 * time.Second}
	}

	return nil
}

// GuardMiddleware applies Reconcile to page navigations. Asset and API
// requests are untouched; the notice, when present, is exposed to the
// downstream handler via a response header the page template picks up.
func (s *Service) GuardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if notice := s.Reconcile(w, r); notice != nil {
				r = r.WithContext(withNotice(r.Context(), notice))
			}
		}
		next.ServeHTTP(w, r)
	})
}
