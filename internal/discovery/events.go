package discovery

import (
	"fmt"
	"sync"

	"github.com/edgecli/lanping/internal/transport"
)

// Handler receives a decoded message together with the sender's address.
// It is used both for the discovery callback and for application events.
type Handler func(msg *Envelope, from transport.Addr)

// eventRegistry maps application message types to ordered handler lists.
// Lists are replaced, never mutated, so a snapshot taken for dispatch stays
// valid while registrations change.
type eventRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func newEventRegistry() *eventRegistry {
	return &eventRegistry{
		handlers: make(map[string][]Handler),
	}
}

func (r *eventRegistry) on(eventType string, h Handler) error {
	if eventType == "" {
		return fmt.Errorf("%w: empty event type", ErrInvalidArgument)
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler for %q", ErrInvalidArgument, eventType)
	}
	if IsBuiltin(eventType) {
		return fmt.Errorf("%w: %q is a built-in message type", ErrInvalidArgument, eventType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.handlers[eventType]
	next := make([]Handler, len(cur), len(cur)+1)
	copy(next, cur)
	r.handlers[eventType] = append(next, h)
	return nil
}

// off forgets eventType entirely; later messages of that type are unhandled.
func (r *eventRegistry) off(eventType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, eventType)
}

// offIndex removes a single handler but keeps the (possibly empty) list.
func (r *eventRegistry) offIndex(eventType string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.handlers[eventType]
	if !ok {
		return fmt.Errorf("%w: no handlers registered for %q", ErrInvalidArgument, eventType)
	}
	if index < 0 || index >= len(cur) {
		return fmt.Errorf("%w: handler index %d out of range for %q (%d registered)",
			ErrInvalidArgument, index, eventType, len(cur))
	}

	next := make([]Handler, 0, len(cur)-1)
	next = append(next, cur[:index]...)
	next = append(next, cur[index+1:]...)
	r.handlers[eventType] = next
	return nil
}

// snapshot returns the handlers to run for eventType and whether the type
// was registered at all.
func (r *eventRegistry) snapshot(eventType string) ([]Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs, ok := r.handlers[eventType]
	return hs, ok
}

func (r *eventRegistry) listeners(eventType string) (int, bool) {
	hs, ok := r.snapshot(eventType)
	return len(hs), ok
}
