package realm

import "sync"

// Realm is a named routing namespace: a set of connected sessions sharing
// one subscription manager and one registration manager. Peers joined to
// different realms are invisible to each other.
type Realm struct {
	Name string
	Subs *SubscriptionManager
	Regs *RegistrationManager

	mu       sync.RWMutex
	sessions map[uint64]struct{}
}

func New(name string) *Realm {
	return &Realm{
		Name:     name,
		Subs:     NewSubscriptionManager(),
		Regs:     NewRegistrationManager(),
		sessions: map[uint64]struct{}{},
	}
}

func (r *Realm) Join(session uint64) {
	r.mu.Lock()
	r.sessions[session] = struct{}{}
	r.mu.Unlock()
}

// Leave removes session from the realm and releases every subscription and
// registration it owned.
func (r *Realm) Leave(session uint64) {
	r.mu.Lock()
	delete(r.sessions, session)
	r.mu.Unlock()
	r.Subs.ReleaseSession(session)
	r.Regs.ReleaseSession(session)
}

func (r *Realm) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Table is the router's name -> realm mapping. Realms are created up front,
// before the listener starts serving; AddRealm after Seal returns an error.
type Table struct {
	mu     sync.RWMutex
	realms map[string]*Realm
	sealed bool
}

func NewTable() *Table {
	return &Table{realms: map[string]*Realm{}}
}

// AddRealm registers a new realm by name. Returns ErrRouterAlreadyServing
// once Seal has been called, and ErrRealmAlreadyExists on a duplicate name.
func (t *Table) AddRealm(name string) (*Realm, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return nil, ErrRouterAlreadyServing
	}
	if _, ok := t.realms[name]; ok {
		return nil, ErrRealmAlreadyExists
	}
	r := New(name)
	t.realms[name] = r
	return r, nil
}

// Seal prevents further realm registration; called once the router starts
// listening.
func (t *Table) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// Get looks up a realm by name.
func (t *Table) Get(name string) (*Realm, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.realms[name]
	if !ok {
		return nil, ErrNoSuchRealm
	}
	return r, nil
}
