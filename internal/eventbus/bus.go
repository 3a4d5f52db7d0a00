package eventbus

import "sync"

// EventUpdate is the event published by an output port whenever its value is
// recomputed.
const EventUpdate = "update"

// Listener is a subscribable callback. Its pointer identity is what
// Unsubscribe matches on.
type Listener struct {
	fn func(payload any) error
}

// NewListener wraps fn in a new Listener.
func NewListener(fn func(payload any) error) *Listener {
	return &Listener{fn: fn}
}

// Notify invokes the wrapped callback.
func (l *Listener) Notify(payload any) error {
	if l == nil || l.fn == nil {
		return nil
	}
	return l.fn(payload)
}

// Bus maps event names to ordered listener lists.
type Bus struct {
	mu     sync.RWMutex
	events map[string][]*Listener
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{events: make(map[string][]*Listener)}
}

// Subscribe appends l to the listener list of event. Duplicates are kept.
func (b *Bus) Subscribe(event string, l *Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.events == nil {
		b.events = make(map[string][]*Listener)
	}
	b.events[event] = append(b.events[event], l)
}

// Unsubscribe removes every registration of l for event. Unknown events and
// listeners are ignored.
func (b *Bus) Unsubscribe(event string, l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	listeners, ok := b.events[event]
	if !ok {
		return
	}

	kept := listeners[:0:0]
	for _, existing := range listeners {
		if existing != l {
			kept = append(kept, existing)
		}
	}

	if len(kept) == 0 {
		delete(b.events, event)
		return
	}
	b.events[event] = kept
}

// Publish calls every listener currently registered for event with payload.
// Listeners run outside the lock, on a snapshot taken at call time, so they
// may subscribe or unsubscribe freely.
func (b *Bus) Publish(event string, payload any) error {
	b.mu.RLock()
	snapshot := append([]*Listener(nil), b.events[event]...)
	b.mu.RUnlock()

	for _, l := range snapshot {
		if err := l.Notify(payload); err != nil {
			return err
		}
	}
	return nil
}

// Len reports how many registrations event currently has.
func (b *Bus) Len(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events[event])
}

// Has reports whether l is registered for event at least once.
func (b *Bus) Has(event string, l *Listener) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, existing := range b.events[event] {
		if existing == l {
			return true
		}
	}
	return false
}

// Clear drops every listener of every event.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]*Listener)
}
