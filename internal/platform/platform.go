// Package platform adapts the operating system's network-status facilities
// to a small query/notification API: which network is currently active,
// whether it is internet-capable, and callbacks for availability changes.
package platform

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// Network identifies an active network by its default-route interface.
type Network struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Callbacks receive availability edges. OnAvailable fires when an
// internet-capable network becomes active, OnLost when it goes away.
// Either callback may be nil.
type Callbacks struct {
	OnAvailable func(Network)
	OnLost      func(Network)
}

// Registration is a live callback subscription. Unregister is synchronous:
// once it returns, no further callbacks are invoked. It is safe to call
// more than once.
type Registration interface {
	Unregister()
}

// API is the platform network-status boundary.
type API interface {
	// ActiveNetwork returns the currently active network, if any.
	ActiveNetwork() (Network, bool)
	// HasInternetCapability reports whether the given network advertises
	// general internet reachability. Absence of the network or of any of
	// its prerequisites is an ordinary false, never an error.
	HasInternetCapability(Network) bool
	// Register subscribes the callbacks to availability changes.
	Register(Callbacks) (Registration, error)
}

// Options tunes the OS-backed implementation.
type Options struct {
	// Debounce is how long raw OS events are allowed to settle before the
	// derived availability is recomputed.
	Debounce time.Duration
	// PollInterval is the check cadence on platforms without a native
	// change-notification source.
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 750 * time.Millisecond
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	return o
}

// rawEvent is an untyped "something in the network stack changed" signal
// from the OS watcher. The reason is only used for transition causes.
type rawEvent struct {
	reason string
}

type systemAPI struct {
	opts Options
}

// NewSystem returns the OS-backed platform API.
func NewSystem(opts Options) API {
	return &systemAPI{opts: opts.withDefaults()}
}

func (s *systemAPI) ActiveNetwork() (Network, bool) {
	return activeNetwork()
}

func (s *systemAPI) HasInternetCapability(n Network) bool {
	if n.Name == "" {
		return false
	}
	return hasInternetCapability(n)
}

// Register starts the OS event watcher and reduces its raw change signals
// to availability edges: each burst of events is debounced, the active
// network is recomputed, and a callback fires only when the derived
// availability actually flipped.
func (s *systemAPI) Register(cb Callbacks) (Registration, error) {
	ctx, cancel := context.WithCancel(context.Background())
	events, err := watchRaw(ctx, s.opts)
	if err != nil {
		cancel()
		return nil, err
	}

	reg := &systemRegistration{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go reg.run(ctx, s, cb, events)
	return reg, nil
}

type systemRegistration struct {
	cancel  context.CancelFunc
	done    chan struct{}
	stopped atomic.Bool
}

func (r *systemRegistration) Unregister() {
	if r.stopped.Swap(true) {
		return
	}
	r.cancel()
	<-r.done
}

func (r *systemRegistration) run(ctx context.Context, s *systemAPI, cb Callbacks, events <-chan rawEvent) {
	defer close(r.done)

	available, current := s.snapshot()

	var timer *time.Timer
	var settleC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(s.opts.Debounce)
			} else {
				timer.Stop()
				timer.Reset(s.opts.Debounce)
			}
			settleC = timer.C

		case <-settleC:
			settleC = nil
			nowAvailable, n := s.snapshot()
			if nowAvailable == available {
				continue
			}
			lost := current
			available = nowAvailable
			current = n
			if r.stopped.Load() {
				return
			}
			if nowAvailable {
				if cb.OnAvailable != nil {
					cb.OnAvailable(n)
				}
			} else if cb.OnLost != nil {
				cb.OnLost(lost)
			}
		}
	}
}

func (s *systemAPI) snapshot() (bool, Network) {
	n, ok := s.ActiveNetwork()
	if !ok {
		return false, Network{}
	}
	return s.HasInternetCapability(n), n
}

// interfaceHasUsableAddr reports whether the named interface carries at
// least one non-loopback, non-link-local address.
func interfaceHasUsableAddr(name string) bool {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return false
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return true
		}
		if ip.IsLinkLocalUnicast() {
			continue
		}
		return true
	}
	return false
}

func interfaceUp(name string) bool {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return false
	}
	return ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagLoopback == 0
}

func interfaceNameByIndex(idx int) string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, it := range ifaces {
		if it.Index == idx {
			return it.Name
		}
	}
	return ""
}

func networkByName(name string) Network {
	n := Network{Name: name}
	if ifi, err := net.InterfaceByName(name); err == nil {
		n.Index = ifi.Index
	}
	return n
}
