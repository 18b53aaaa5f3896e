package channel

import (
	"encoding/json"
	"sync"
)

// Handler consumes the raw payload of a single inbound event.
type Handler func(data json.RawMessage)

// Channel abstracts the process-wide live update connection. Subscriptions
// are keyed: registering the same (event, key) pair again replaces the
// previous handler instead of double-delivering, and Off with the same key
// balances the registration on teardown.
type Channel interface {
	On(event, key string, h Handler)
	Off(event, key string)
	Emit(event string, payload any)
	Connected() bool
}

// registry is the subscriber table shared by channel implementations.
type registry struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]map[string]Handler)}
}

func (r *registry) on(event, key string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[string]Handler)
	}
	r.handlers[event][key] = h
}

func (r *registry) off(event, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers[event], key)
}

// dispatch delivers data to every handler registered for event. Handlers run
// synchronously on the caller's goroutine; delivery order between keys is
// unspecified.
func (r *registry) dispatch(event string, data json.RawMessage) {
	r.mu.RLock()
	hs := make([]Handler, 0, len(r.handlers[event]))
	for _, h := range r.handlers[event] {
		hs = append(hs, h)
	}
	r.mu.RUnlock()

	for _, h := range hs {
		h(data)
	}
}

func (r *registry) count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}
