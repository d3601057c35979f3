package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesEveryListener(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	first, stopFirst := hub.Subscribe(4)
	defer stopFirst()
	second, stopSecond := hub.Subscribe(4)
	defer stopSecond()

	studentID := uuid.New()
	hub.Publish(Event{Type: EventItemCompleted, StudentID: studentID})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case evt := <-ch:
			assert.Equal(t, EventItemCompleted, evt.Type)
			assert.Equal(t, studentID, evt.StudentID)
			assert.False(t, evt.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("listener did not receive the event")
		}
	}
}

func TestPublishDropsForFullListener(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	slow, stopSlow := hub.Subscribe(1)
	defer stopSlow()
	fast, stopFast := hub.Subscribe(4)
	defer stopFast()

	hub.Publish(Event{Type: EventConflictDetected, StudentID: uuid.New()})
	hub.Publish(Event{Type: EventIntegrityRepaired, StudentID: uuid.New()})

	// The slow listener keeps only the first event; the fast one has both.
	assert.Len(t, slow, 1)
	require.Len(t, fast, 2)
	assert.Equal(t, EventConflictDetected, (<-fast).Type)
	assert.Equal(t, EventIntegrityRepaired, (<-fast).Type)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	ch, unsubscribe := hub.Subscribe(4)
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	hub.Publish(Event{Type: EventItemCompleted, StudentID: uuid.New()})
}

func TestPublishKeepsExplicitTimestamp(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	ch, stop := hub.Subscribe(1)
	defer stop()

	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hub.Publish(Event{Type: EventItemCompleted, StudentID: uuid.New(), Timestamp: stamp})

	evt := <-ch
	assert.Equal(t, stamp, evt.Timestamp)
}
