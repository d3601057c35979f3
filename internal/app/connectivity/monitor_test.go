package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualMonitorDeliversOnlyEdges(t *testing.T) {
	monitor := NewManualMonitor(false)
	ch, unsubscribe := monitor.Subscribe()
	defer unsubscribe()

	monitor.SetOnline(false) // no transition
	monitor.SetOnline(true)
	monitor.SetOnline(true) // no transition
	monitor.SetOnline(false)

	require.Len(t, ch, 2)
	assert.Equal(t, Online, <-ch)
	assert.Equal(t, Offline, <-ch)
	assert.False(t, monitor.IsOnline())
}

func TestManualMonitorUnsubscribeStopsDelivery(t *testing.T) {
	monitor := NewManualMonitor(false)
	ch, unsubscribe := monitor.Subscribe()
	unsubscribe()

	monitor.SetOnline(true)

	_, open := <-ch
	assert.False(t, open)
}

func TestProbeMonitorTracksProbeResult(t *testing.T) {
	var failing atomic.Bool

	monitor := NewProbeMonitor(func(context.Context) error {
		if failing.Load() {
			return errors.New("remote unreachable")
		}
		return nil
	}, 10*time.Millisecond, zerolog.Nop())

	ch, unsubscribe := monitor.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitor.Start(ctx)

	select {
	case state := <-ch:
		assert.Equal(t, Online, state)
	case <-time.After(time.Second):
		t.Fatal("monitor never came online")
	}
	assert.True(t, monitor.IsOnline())

	failing.Store(true)
	select {
	case state := <-ch:
		assert.Equal(t, Offline, state)
	case <-time.After(time.Second):
		t.Fatal("monitor never observed the outage")
	}
	assert.False(t, monitor.IsOnline())
}

func TestProbeMonitorStartsOffline(t *testing.T) {
	monitor := NewProbeMonitor(func(context.Context) error { return nil }, time.Minute, zerolog.Nop())
	assert.False(t, monitor.IsOnline())
}
