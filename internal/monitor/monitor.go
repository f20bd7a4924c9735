// Package monitor owns the long-lived connectivity subscription and fans
// its transitions out to storage and to live listeners.
package monitor

import (
	"log"
	"sort"
	"sync"
	"time"

	"connwatch/internal/connectivity"
	"connwatch/internal/models"
	"connwatch/internal/platform"
	"connwatch/internal/storage"
)

// Source exposes connectivity state to consumers such as the HTTP server.
type Source interface {
	Current() models.ConnectivityState
	Latest() (models.Transition, bool)
	History() []models.Transition
	HistorySince(time.Time) []models.Transition
	AddListener(buffer int) (<-chan models.Transition, func())
}

// Monitor subscribes to connectivity updates, keeps a capped in-memory
// transition history, persists transitions, and notifies listeners.
type Monitor struct {
	api        platform.API
	store      *storage.TransitionStorage
	maxHistory int

	mu        sync.RWMutex
	latest    *models.Transition
	history   []models.Transition
	listeners map[int]chan<- models.Transition
	nextID    int

	sub    *connectivity.Subscription
	doneCh chan struct{}
}

// New configures a monitor. store may be nil to disable persistence. Any
// previously persisted history is preloaded so the dashboard survives
// restarts.
func New(api platform.API, store *storage.TransitionStorage, maxHistory int) *Monitor {
	if maxHistory <= 0 {
		maxHistory = 2048
	}

	m := &Monitor{
		api:        api,
		store:      store,
		maxHistory: maxHistory,
		listeners:  make(map[int]chan<- models.Transition),
	}
	if store != nil {
		history := store.History()
		if len(history) > maxHistory {
			history = history[len(history)-maxHistory:]
		}
		m.history = history
		if len(history) > 0 {
			last := history[len(history)-1]
			m.latest = &last
		}
	}
	return m
}

// Start opens the connectivity subscription and launches the forwarding
// loop. The subscription's initial emission lands like any other
// transition, so the latest state is valid as soon as Start returns.
func (m *Monitor) Start() error {
	sub, err := connectivity.Subscribe(m.api)
	if err != nil {
		return err
	}
	m.sub = sub
	m.doneCh = make(chan struct{})
	go m.run()
	return nil
}

// Stop closes the subscription and waits for the forwarding loop to drain.
func (m *Monitor) Stop() {
	if m.sub == nil {
		return
	}
	m.sub.Close()
	<-m.doneCh
}

// Current probes the platform for the state right now.
func (m *Monitor) Current() models.ConnectivityState {
	return connectivity.Probe(m.api)
}

// Latest returns the most recent recorded transition.
func (m *Monitor) Latest() (models.Transition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest == nil {
		return models.Transition{}, false
	}
	return *m.latest, true
}

// History returns a copy of the recorded transitions.
func (m *Monitor) History() []models.Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return nil
	}
	out := make([]models.Transition, len(m.history))
	copy(out, m.history)
	return out
}

// HistorySince returns transitions whose timestamp is >= cutoff.
func (m *Monitor) HistorySince(cutoff time.Time) []models.Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return nil
	}
	if cutoff.IsZero() {
		out := make([]models.Transition, len(m.history))
		copy(out, m.history)
		return out
	}

	idx := sort.Search(len(m.history), func(i int) bool {
		return !m.history[i].At.Before(cutoff)
	})
	if idx >= len(m.history) {
		return nil
	}
	out := make([]models.Transition, len(m.history)-idx)
	copy(out, m.history[idx:])
	return out
}

// AddListener registers a channel that receives every transition recorded
// after the call. The returned function removes the listener. Delivery is
// non-blocking: a listener that stops draining misses updates rather than
// stalling the monitor.
func (m *Monitor) AddListener(buffer int) (<-chan models.Transition, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.Transition, buffer)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = ch
	m.mu.Unlock()

	remove := func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
	return ch, remove
}

func (m *Monitor) run() {
	defer close(m.doneCh)

	for t := range m.sub.Updates() {
		m.record(t)
	}
}

func (m *Monitor) record(t models.Transition) {
	m.mu.Lock()
	m.latest = &t
	m.history = append(m.history, t)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
	listeners := make([]chan<- models.Transition, 0, len(m.listeners))
	for _, ch := range m.listeners {
		listeners = append(listeners, ch)
	}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Append(t); err != nil {
			log.Printf("persist transition: %v", err)
		}
	}

	for _, ch := range listeners {
		select {
		case ch <- t:
		default:
		}
	}
}
