package testutils

import (
	"sync"

	"github.com/evdnx/levelbot/events"
)

// RecordingSink keeps every emitted event.
type RecordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *RecordingSink) Emit(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *RecordingSink) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

// OfKind filters the recorded events.
func (s *RecordingSink) OfKind(k events.Kind) []events.Event {
	var out []events.Event
	for _, e := range s.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
