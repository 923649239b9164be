package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router mounts the sign-in flow endpoints:
//
//	GET  /linkedin              initiate the flow (JSON for the page script, 302 for navigations)
//	GET  /linkedin/callback     provider callback, runs the state machine
//	POST /linkedin/interrupted  unload beacon, sets the navigation flag
//	GET  /session               session facade read model
//	POST /signout               clear user record and residual markers
//	GET  /events                flow outcome stream (SSE)
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/linkedin", s.handleBegin)
	r.Get("/linkedin/callback", s.handleCallback)
	r.Post("/linkedin/interrupted", s.handleInterrupted)
	r.Get("/session", s.handleSession)
	r.Post("/signout", s.handleSignOut)
	r.Get("/events", s.handleEvents)

	return r
}

func (s *Service) handleBegin(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	// An explicit retry clears residual markers first so the new attempt
	// starts from a clean slate, and announces itself on the event stream.
	if r.URL.Query().Get("retry") == "1" {
		s.tx.ClearAll(w)
		s.tx.StripMarkers(r)
		s.publish(r.Context(), retryEvent())
	}

	returnTo := r.URL.Query().Get("return_to")
	if returnTo == "" {
		returnTo = "/"
	}

	strategy := s.cfg.SelectStrategy(SnapshotFromRequest(r))

	// The page script initiates the flow with fetch and performs the
	// navigation itself from the returned URL. Answering a fetch with a
	// 302 would burn the transaction markers on a response the script
	// cannot follow, and the follow-up navigation would then find the
	// attempt already live and go nowhere.
	scripted := r.URL.Query().Get("xhr") == "1" || r.Header.Get("Sec-Fetch-Mode") == "cors"

	result, err := s.Begin(w, r, returnTo, strategy)
	switch {
	case errors.Is(err, ErrAttemptInProgress):
		// Not an error surface: the flow is already underway elsewhere.
		if scripted || result.Strategy == StrategyPopup {
			s.writeBeginResult(w, r, result)
			return
		}
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
		return

	case err != nil:
		s.renderBeginError(w, r, strategy, err)
		return
	}

	if result.Strategy == StrategyRedirect && !scripted {
		http.Redirect(w, r, result.AuthURL, http.StatusFound)
		return
	}

	// Script-initiated begin (either strategy): hand back the
	// authorization URL. For the popup strategy the script opens the
	// window itself so the browser attributes it to the user's click; a
	// blocked popup degrades to navigating the current tab to the same
	// URL, which the markers written here already cover.
	s.writeBeginResult(w, r, result)
}

func (s *Service) writeBeginResult(w http.ResponseWriter, r *http.Request, result BeginResult) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"started":  result.Started,
		"strategy": result.Strategy,
		"auth_url": result.AuthURL,
	}); err != nil {
		s.log.WarnContext(r.Context(), "begin response encode failed", slog.Any("error", err))
	}
}

func (s *Service) renderBeginError(w http.ResponseWriter, r *http.Request, strategy Strategy, err error) {
	var flowErr *FlowError
	if !errors.As(err, &flowErr) {
		flowErr = NewFlowError(KindOAuthError, "Could not start LinkedIn sign-in.", err.Error(), true)
	}
	s.publish(r.Context(), errorEvent(flowErr))
	s.log.ErrorContext(r.Context(), "sign-in initiation failed",
		slog.String("kind", string(flowErr.Kind)), slog.Any("error", err))

	if strategy == StrategyRedirect {
		s.renderErrorPage(w, flowErr)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": flowErr})
}

func (s *Service) handleCallback(w http.ResponseWriter, r *http.Request) {
	noStore(w)

	outcome := s.HandleCallback(w, r)

	switch {
	case outcome.Popup:
		s.renderPopupShim(w, outcome)
	case outcome.Succeeded():
		http.Redirect(w, r, outcome.RedirectTo, http.StatusSeeOther)
	default:
		s.renderErrorPage(w, outcome.Err)
	}
}

func (s *Service) handleInterrupted(w http.ResponseWriter, r *http.Request) {
	s.MarkInterrupted(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleSession(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(s.State(r.Context(), r)); err != nil {
		s.log.WarnContext(r.Context(), "session response encode failed", slog.Any("error", err))
	}
}

func (s *Service) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.SignOut(w, r); err != nil {
		s.log.WarnContext(r.Context(), "sign-out failed", slog.Any("error", err))
		http.Error(w, "sign-out failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams flow outcome events as server-sent events until the
// client disconnects or the broadcaster closes.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	sub := s.Events(r.Context())
	defer sub.Close()
	for msg := range sub.Receive(r.Context()) {
		data, err := json.Marshal(msg.Data)
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("event: " + string(msg.Data.Type) + "\ndata: " + string(data) + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}
