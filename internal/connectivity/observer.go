package connectivity

import (
	"sync"
	"time"

	"connwatch/internal/models"
	"connwatch/internal/platform"
)

// subscriptionBuffer bounds how far a consumer may fall behind before the
// oldest queued update is discarded in favor of a newer one.
const subscriptionBuffer = 64

// Subscription is a push stream of connectivity updates. The first update
// always reflects the probed state at subscription time; every later update
// mirrors one platform available/lost event, in arrival order, without
// re-probing. Consecutive duplicates are not suppressed.
type Subscription struct {
	reg platform.Registration
	out chan models.Transition

	mu     sync.Mutex
	closed bool
}

// Subscribe registers for platform availability events and seeds the stream
// with the current probed state. The seed is queued before any callback
// event can be, so the first received update is always ground truth at
// subscription time.
func Subscribe(api platform.API) (*Subscription, error) {
	s := &Subscription{out: make(chan models.Transition, subscriptionBuffer)}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := api.Register(platform.Callbacks{
		OnAvailable: func(n platform.Network) {
			s.emit(models.StateAvailable, "network available: "+n.Name)
		},
		OnLost: func(n platform.Network) {
			s.emit(models.StateUnavailable, "network lost: "+n.Name)
		},
	})
	if err != nil {
		return nil, err
	}
	s.reg = reg
	s.push(models.Transition{State: Probe(api), At: time.Now().UTC(), Cause: "initial"})
	return s, nil
}

// Updates returns the stream. The channel is closed by Close.
func (s *Subscription) Updates() <-chan models.Transition {
	return s.out
}

// Close deregisters the platform callback and closes the stream. Once Close
// returns, no further updates are delivered even if the platform fires more
// events. Close is idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	reg := s.reg
	s.mu.Unlock()

	if reg != nil {
		reg.Unregister()
	}
	close(s.out)
}

func (s *Subscription) emit(state models.ConnectivityState, cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.push(models.Transition{State: state, At: time.Now().UTC(), Cause: cause})
}

// push queues an update without ever blocking the platform's notification
// thread. Callers hold s.mu, which also serializes queue order with the
// subscription seed.
func (s *Subscription) push(t models.Transition) {
	select {
	case s.out <- t:
	default:
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- t:
		default:
		}
	}
}
