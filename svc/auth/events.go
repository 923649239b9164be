package auth

import (
	"context"
	"time"

	"github.com/anamartins/folio/pkg/broadcast"
)

// EventType is the closed set of flow outcome notifications the
// surrounding UI can react to.
type EventType string

const (
	EventAuthSuccess  EventType = "linkedin-auth-success"
	EventAuthError    EventType = "auth-error"
	EventRetryAttempt EventType = "auth-retry-attempt"
)

// Event is a flow outcome notification. Exactly one of User or Err is
// set depending on the type.
type Event struct {
	Type EventType   `json:"type"`
	User *UserRecord `json:"user,omitempty"`
	Err  *FlowError  `json:"error,omitempty"`
	At   time.Time   `json:"at"`
}

func successEvent(user UserRecord) Event {
	return Event{Type: EventAuthSuccess, User: &user, At: time.Now()}
}

func errorEvent(err *FlowError) Event {
	return Event{Type: EventAuthError, Err: err, At: time.Now()}
}

func retryEvent() Event {
	return Event{Type: EventRetryAttempt, At: time.Now()}
}

// Events exposes the flow outcome stream for UI consumers.
func (s *Service) Events(ctx context.Context) broadcast.Subscriber[Event] {
	return s.events.Subscribe(ctx)
}

func (s *Service) publish(ctx context.Context, event Event) {
	_ = s.events.Broadcast(ctx, broadcast.Message[Event]{Data: event})
}
