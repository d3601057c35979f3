// Package events is the in-process notification channel. The sync core emits
// named domain events here; the host app relays them to its platform push
// pipeline. The core never builds platform notification payloads itself.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType names a domain event.
type EventType string

const (
	// EventItemCompleted fires when an instructor marks a checklist item
	// complete or incomplete.
	EventItemCompleted EventType = "item_completed"
	// EventConflictDetected fires when a pull surfaces field conflicts.
	EventConflictDetected EventType = "conflict_detected"
	// EventIntegrityRepaired fires after an integrity pass repaired issues.
	EventIntegrityRepaired EventType = "integrity_repaired"
)

// Event is one domain event with its routing keys.
type Event struct {
	Type         EventType  `json:"type"`
	StudentID    uuid.UUID  `json:"studentId"`
	AssignmentID *uuid.UUID `json:"assignmentId,omitempty"`
	ItemID       *uuid.UUID `json:"itemId,omitempty"`
	Detail       string     `json:"detail,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Hub fans events out to registered listeners. Publishing never blocks the
// emitting service: a listener that falls behind drops events.
type Hub struct {
	mu        sync.RWMutex
	listeners []chan Event
	logger    zerolog.Logger
}

// NewHub creates a new Hub instance.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a listener and returns its channel plus an unsubscribe
// function.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, listener := range h.listeners {
			if listener == ch {
				h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// Publish delivers the event to every listener.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, listener := range h.listeners {
		select {
		case listener <- event:
		default:
			h.logger.Warn().
				Str("type", string(event.Type)).
				Msg("Dropping event for slow listener")
		}
	}
}
