// Package session exposes the signed-in identity and notifies observers when it changes.
package session

import (
	"sync"
	"time"
)

// Identity is the authenticated user whose collection is being addressed.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Provider exposes the current identity and its change notifications.
type Provider interface {
	// Current returns the signed-in identity, or false when signed out.
	Current() (Identity, bool)

	// Subscribe registers fn to be called after every sign-in or sign-out.
	Subscribe(fn func(id Identity, ok bool)) (unsubscribe func())
}

// Record is the persisted form of a sign-in.
type Record struct {
	// Provider is "google" or "local".
	Provider   string    `json:"provider"`
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Token      string    `json:"token,omitempty"`
	SignedInAt time.Time `json:"signedInAt"`
}

// Identity returns the identity stored in the record.
func (r Record) Identity() Identity {
	return Identity{UserID: r.UserID, Email: r.Email, Name: r.Name}
}

// Verifier validates a session token and returns the identity it was issued for.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// observers is the subscriber list shared by the providers.
type observers struct {
	mu     sync.Mutex
	subs   map[int]func(Identity, bool)
	nextID int
}

func (o *observers) add(fn func(Identity, bool)) func() {
	o.mu.Lock()
	if o.subs == nil {
		o.subs = make(map[int]func(Identity, bool))
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers) notify(id Identity, ok bool) {
	o.mu.Lock()
	subs := make([]func(Identity, bool), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(id, ok)
	}
}

// Memory is an in-process Provider.
type Memory struct {
	mu  sync.RWMutex
	id  Identity
	ok  bool
	obs observers
}

// NewMemory creates a signed-out provider.
func NewMemory() *Memory {
	return &Memory{}
}

// Current implements Provider.
func (m *Memory) Current() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, m.ok
}

// Subscribe implements Provider.
func (m *Memory) Subscribe(fn func(Identity, bool)) func() {
	return m.obs.add(fn)
}

// SignIn sets the identity and notifies observers.
func (m *Memory) SignIn(id Identity) {
	m.mu.Lock()
	m.id, m.ok = id, true
	m.mu.Unlock()
	m.obs.notify(id, true)
}

// SignOut clears the identity and notifies observers.
func (m *Memory) SignOut() {
	m.mu.Lock()
	wasSignedIn := m.ok
	m.id, m.ok = Identity{}, false
	m.mu.Unlock()
	if wasSignedIn {
		m.obs.notify(Identity{}, false)
	}
}
