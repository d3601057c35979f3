// Package connectivity watches remote reachability and notifies subscribers
// on state transitions. The offline queue replays its log on every
// offline→online edge.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the observed connectivity state.
type State bool

const (
	Online  State = true
	Offline State = false
)

// Monitor exposes the current state and transition notifications.
type Monitor interface {
	// IsOnline returns the last observed state.
	IsOnline() bool
	// Subscribe registers a channel receiving every state transition. Only
	// edges are delivered, never repeats of the current state.
	Subscribe() (<-chan State, func())
}

// ProbeFn checks reachability, typically the remote store's Ping.
type ProbeFn func(ctx context.Context) error

// ProbeMonitor polls a probe on an interval and emits transitions.
type ProbeMonitor struct {
	probe    ProbeFn
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.RWMutex
	online      bool
	subscribers []chan State
}

// NewProbeMonitor creates a monitor around the given probe. The initial state
// is offline until the first successful probe.
func NewProbeMonitor(probe ProbeFn, interval time.Duration, logger zerolog.Logger) *ProbeMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ProbeMonitor{
		probe:    probe,
		interval: interval,
		logger:   logger.With().Str("component", "connectivity").Logger(),
	}
}

// Start launches the polling loop until ctx is cancelled.
func (m *ProbeMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()
}

func (m *ProbeMonitor) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	online := m.probe(probeCtx) == nil
	m.setState(online)
}

func (m *ProbeMonitor) setState(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	subscribers := make([]chan State, len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info().Bool("online", online).Msg("Connectivity state changed")
	for _, ch := range subscribers {
		select {
		case ch <- State(online):
		default:
		}
	}
}

// IsOnline returns the last observed state
func (m *ProbeMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers a transition listener
func (m *ProbeMonitor) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 4)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subscribers {
			if sub == ch {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// ManualMonitor is a test monitor whose state is flipped explicitly.
type ManualMonitor struct {
	mu          sync.RWMutex
	online      bool
	subscribers []chan State
}

// NewManualMonitor creates a manual monitor in the given state.
func NewManualMonitor(online bool) *ManualMonitor {
	return &ManualMonitor{online: online}
}

// SetOnline flips the state, notifying subscribers on a transition.
func (m *ManualMonitor) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	subscribers := make([]chan State, len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, ch := range subscribers {
		select {
		case ch <- State(online):
		default:
		}
	}
}

// IsOnline returns the current state
func (m *ManualMonitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers a transition listener
func (m *ManualMonitor) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 4)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subscribers {
			if sub == ch {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}
