package aclkit

// NotificationSink receives fire-and-forget events after successful
// mutations, e.g. a user registration or deletion. Implementations must be
// safe for concurrent use; delivery happens on a separate goroutine and
// never blocks or fails the triggering operation.
type NotificationSink interface {
	Notify(event string, payload map[string]any)
}

// NotifierFunc adapts a function to the NotificationSink interface.
type NotifierFunc func(event string, payload map[string]any)

// Notify implements NotificationSink.
func (f NotifierFunc) Notify(event string, payload map[string]any) { f(event, payload) }

// discardSink drops all events. Default when no sink is configured.
type discardSink struct{}

func (discardSink) Notify(string, map[string]any) {}

// Event names emitted by the service.
const (
	EventUserRegistered = "user.registered"
	EventUserActivated  = "user.activated"
	EventUserDeleted    = "user.deleted"
)

// notify dispatches an event without blocking the caller. A panicking sink
// is contained and logged.
func (s *Service) notify(event string, payload map[string]any) {
	sink := s.notifier
	if sink == nil {
		return
	}
	logger := s.log
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Info("notification sink panicked", "event", event, "panic", r)
			}
		}()
		sink.Notify(event, payload)
	}()
}
