package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/anamartins/folio/pkg/statemachine"
)

// Callback state machine states. All states except start and exchange
// are terminal.
const (
	stateStart         = statemachine.StringState("start")
	stateExchange      = statemachine.StringState("exchange")
	stateSuccess       = statemachine.StringState("success")
	stateError         = statemachine.StringState("error_terminal")
	stateSecurityError = statemachine.StringState("security_error_terminal")
)

const (
	evProviderError  = statemachine.StringEvent("provider_error")
	evStateMismatch  = statemachine.StringEvent("state_mismatch")
	evMissingCode    = statemachine.StringEvent("missing_code")
	evProceed        = statemachine.StringEvent("proceed")
	evExchangeOK     = statemachine.StringEvent("exchange_ok")
	evExchangeFailed = statemachine.StringEvent("exchange_failed")
)

// callbackData travels through the state machine as transition data.
type callbackData struct {
	code        string
	state       string
	storedState string
	hasStored   bool
	flowErr     *FlowError
	user        UserRecord
}

// newCallbackMachine wires the callback state machine:
//
//	start -> error_terminal           (provider error, missing code)
//	start -> security_error_terminal  (state missing or mismatched)
//	start -> exchange                 (params valid)
//	exchange -> error_terminal        (exchange or profile fetch failed)
//	exchange -> success
func newCallbackMachine() *statemachine.Machine {
	m := statemachine.New(stateStart)

	_ = m.AddTransition(stateStart, stateError, evProviderError, nil, nil)
	_ = m.AddTransition(stateStart, stateSecurityError, evStateMismatch, nil, nil)
	_ = m.AddTransition(stateStart, stateError, evMissingCode, nil, nil)
	_ = m.AddTransition(stateStart, stateExchange, evProceed, []statemachine.Guard{
		func(ctx context.Context, from statemachine.State, event statemachine.Event, data any) bool {
			d, ok := data.(*callbackData)
			return ok && d.code != "" && d.hasStored && d.state == d.storedState
		},
	}, nil)
	_ = m.AddTransition(stateExchange, stateError, evExchangeFailed, nil, nil)
	_ = m.AddTransition(stateExchange, stateSuccess, evExchangeOK, nil, nil)

	return m
}

// CallbackOutcome is what the transport layer renders after the state
// machine reaches a terminal state.
type CallbackOutcome struct {
	// Popup is true when the flow was initiated with the popup strategy
	// and the result must be delivered to the opener window.
	Popup bool

	// Security is true for the security-violation terminal.
	Security bool

	Err  *FlowError
	User UserRecord

	// RedirectTo is the consumed return URL for a successful
	// redirect-strategy flow; empty otherwise.
	RedirectTo string
}

// Succeeded reports whether the flow reached the success terminal.
func (o CallbackOutcome) Succeeded() bool { return o.Err == nil }

// HandleCallback runs the callback state machine exactly once for the
// request. It reads only the query string and the transaction markers;
// the sole network interaction is the provider exchange. A reload of the
// same callback URL finds the state token already consumed and terminates
// as a security error, which is intentional.
func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) CallbackOutcome {
	ctx := r.Context()
	query := r.URL.Query()

	outcome := CallbackOutcome{}
	if attempt, ok := s.tx.CurrentAttempt(r); ok {
		outcome.Popup = attempt.Strategy == StrategyPopup
	}

	// Every path below is terminal: the attempt marker is done either way.
	s.tx.ClearAttempt(w)

	data := &callbackData{
		code:  query.Get("code"),
		state: query.Get("state"),
	}
	data.storedState, data.hasStored = s.tx.TakeState(w, r)

	m := newCallbackMachine()

	switch {
	case query.Get("error") != "":
		data.flowErr = providerError(query.Get("error"), query.Get("error_description"))
		_ = m.Fire(ctx, evProviderError, data)

	case !data.hasStored || data.state == "" || data.state != data.storedState:
		data.flowErr = securityMismatchError("state parameter does not match stored token")
		_ = m.Fire(ctx, evStateMismatch, data)

	case data.code == "":
		data.flowErr = NewFlowError(KindOAuthError, "LinkedIn sign-in returned invalid data.", "missing authorization code", true)
		_ = m.Fire(ctx, evMissingCode, data)

	default:
		_ = m.Fire(ctx, evProceed, data)

		user, err := s.adapter.ResolveProfile(ctx, data.code)
		if err != nil {
			data.flowErr = exchangeError(err)
			_ = m.Fire(ctx, evExchangeFailed, data)
		} else {
			data.user = user
			_ = m.Fire(ctx, evExchangeOK, data)
		}
	}

	switch m.Current() {
	case stateSuccess:
		return s.finishSuccess(w, r, data.user, outcome)
	case stateSecurityError:
		outcome.Security = true
		fallthrough
	default:
		outcome.Err = data.flowErr
		s.publish(ctx, errorEvent(data.flowErr))
		s.log.WarnContext(ctx, "sign-in flow failed",
			slog.String("kind", string(data.flowErr.Kind)),
			slog.String("detail", data.flowErr.Detail),
			slog.Bool("security", outcome.Security))
		return outcome
	}
}

func (s *Service) finishSuccess(w http.ResponseWriter, r *http.Request, user UserRecord, outcome CallbackOutcome) CallbackOutcome {
	ctx := r.Context()

	if err := s.signIn(w, r, user); err != nil {
		flowErr := NewFlowError(KindBrowserCompatibility, "Could not establish your session.", err.Error(), true)
		outcome.Err = flowErr
		s.publish(ctx, errorEvent(flowErr))
		return outcome
	}

	// A blocked-popup fallback navigates the tab mid-flow, which fires
	// the unload beacon and sets the interrupted flag. The flow finished
	// anyway, so the flag must not survive into the next page load.
	s.tx.ClearInterrupted(w)

	outcome.User = user
	if path, ok := s.tx.TakeReturnURL(w, r); ok {
		outcome.RedirectTo = path
	} else {
		outcome.RedirectTo = "/"
	}

	// Profile persistence is off the response's critical path; a failed
	// upsert loses nothing the session does not already hold.
	upsertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	go func() {
		defer cancel()
		if err := s.users.Upsert(upsertCtx, user); err != nil {
			s.log.WarnContext(upsertCtx, "profile upsert failed", slog.Any("error", err))
		}
	}()

	s.tracker.Track(ctx, eventUserAuthenticated, map[string]any{
		"provider": s.adapter.ProviderID(),
		"user_id":  user.ID,
	})
	s.publish(ctx, successEvent(user))
	s.log.InfoContext(ctx, "sign-in completed", slog.String("user_id", user.ID))

	return outcome
}

func exchangeError(err error) *FlowError {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return NewFlowError(KindOAuthError, "LinkedIn rejected the sign-in request.", "authorization code exchange failed", true)
	case errors.Is(err, ErrNoProfile):
		return NewFlowError(KindOAuthError, "LinkedIn returned an incomplete profile.", "profile missing required fields", true)
	default:
		return NewFlowError(KindNetworkError, "Could not reach LinkedIn. Check your connection and try again.", err.Error(), true)
	}
}
