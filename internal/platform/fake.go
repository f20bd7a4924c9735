package platform

import "sync"

// Fake is a manually driven platform implementation for tests. Tests set
// the current network state and fire availability events; the fake tracks
// registrations so deregistration can be asserted.
type Fake struct {
	mu      sync.Mutex
	active  *Network
	capable bool
	regs    map[*fakeRegistration]Callbacks
}

// NewFake starts with no active network.
func NewFake() *Fake {
	return &Fake{regs: make(map[*fakeRegistration]Callbacks)}
}

// SetActive installs the given network as the active one.
func (f *Fake) SetActive(n Network, capable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = &n
	f.capable = capable
}

// ClearActive removes the active network.
func (f *Fake) ClearActive() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = nil
	f.capable = false
}

func (f *Fake) ActiveNetwork() (Network, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return Network{}, false
	}
	return *f.active, true
}

func (f *Fake) HasInternetCapability(n Network) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active != nil && f.active.Name == n.Name && f.capable
}

func (f *Fake) Register(cb Callbacks) (Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg := &fakeRegistration{fake: f}
	f.regs[reg] = cb
	return reg, nil
}

// FireAvailable marks the network active and capable, then invokes every
// registered OnAvailable callback.
func (f *Fake) FireAvailable(n Network) {
	f.mu.Lock()
	f.active = &n
	f.capable = true
	cbs := f.callbacksLocked()
	f.mu.Unlock()

	for _, cb := range cbs {
		if cb.OnAvailable != nil {
			cb.OnAvailable(n)
		}
	}
}

// FireLost clears the active network, then invokes every registered OnLost
// callback.
func (f *Fake) FireLost(n Network) {
	f.mu.Lock()
	f.active = nil
	f.capable = false
	cbs := f.callbacksLocked()
	f.mu.Unlock()

	for _, cb := range cbs {
		if cb.OnLost != nil {
			cb.OnLost(n)
		}
	}
}

// Registrations returns the number of live callback registrations.
func (f *Fake) Registrations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regs)
}

func (f *Fake) callbacksLocked() []Callbacks {
	cbs := make([]Callbacks, 0, len(f.regs))
	for _, cb := range f.regs {
		cbs = append(cbs, cb)
	}
	return cbs
}

type fakeRegistration struct {
	fake *Fake
	once sync.Once
}

func (r *fakeRegistration) Unregister() {
	r.once.Do(func() {
		r.fake.mu.Lock()
		defer r.fake.mu.Unlock()
		delete(r.fake.regs, r)
	})
}
