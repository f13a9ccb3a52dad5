package realm

import (
	"sync"

	"github.com/wampd/wampd/internal/idgen"
	"github.com/wampd/wampd/pkg/wampcore/trie"
)

// InvocationPolicy controls how the dealer picks among multiple registrants
// of the same pattern.
type InvocationPolicy int

const (
	Single InvocationPolicy = iota
	RoundRobin
	Random
	First
	Last
)

// PendingInvocation correlates an in-flight INVOCATION back to the CALL
// that spawned it.
type PendingInvocation struct {
	CallRequest uint64
	Caller      uint64
}

// RegistrationManager is the dealer-side counterpart of SubscriptionManager:
// the same trie-backed bookkeeping, plus the table of in-flight calls keyed
// by invocation ID.
type RegistrationManager struct {
	mu           sync.RWMutex
	trie         *trie.Trie
	byOwner      map[uint64]map[uint64]regRecord
	bucketPolicy map[uint64]InvocationPolicy // bucket id -> invocation policy shared by its registrants
	rrIndex      map[uint64]int              // bucket id -> next round-robin offset

	callsMu sync.Mutex
	calls   map[uint64]PendingInvocation
}

type regRecord struct {
	pattern  string
	isPrefix bool
	policy   InvocationPolicy
}

func NewRegistrationManager() *RegistrationManager {
	return &RegistrationManager{
		trie:         trie.New(),
		byOwner:      map[uint64]map[uint64]regRecord{},
		bucketPolicy: map[uint64]InvocationPolicy{},
		rrIndex:      map[uint64]int{},
		calls:        map[uint64]PendingInvocation{},
	}
}

// Register offers session as a callee for pattern under policy. A Single
// policy registration conflicts with any existing registration in the same
// exact-match bucket — the trie only ever stores one bucket per node per
// bucket kind, so "same bucket" already means "identical normalized
// pattern".
func (m *RegistrationManager) Register(pattern string, matching trie.MatchingPolicy, invocation InvocationPolicy, session uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.bucketPolicies(pattern, matching)
	if invocation == Single && len(existing) > 0 {
		return 0, ErrProcedureAlreadyExists
	}
	for _, p := range existing {
		if p == Single {
			return 0, ErrProcedureAlreadyExists
		}
	}

	id, err := m.trie.Insert(pattern, session, matching)
	if err != nil {
		return 0, ErrInvalidURI
	}

	owned, ok := m.byOwner[session]
	if !ok {
		owned = map[uint64]regRecord{}
		m.byOwner[session] = owned
	}
	owned[id] = regRecord{pattern: pattern, isPrefix: matching == trie.Prefix, policy: invocation}
	m.bucketPolicy[id] = invocation
	return id, nil
}

// bucketPolicies reports the invocation policy of every existing registrant
// in the bucket pattern would land in, without mutating the trie.
func (m *RegistrationManager) bucketPolicies(pattern string, matching trie.MatchingPolicy) []InvocationPolicy {
	var policies []InvocationPolicy
	for _, owned := range m.byOwner {
		for _, rec := range owned {
			if rec.pattern == pattern && rec.isPrefix == (matching == trie.Prefix) {
				policies = append(policies, rec.policy)
			}
		}
	}
	return policies
}

// Unregister withdraws session's ownership of registration id.
func (m *RegistrationManager) Unregister(id uint64, session uint64) error {
	m.mu.Lock()
	owned, ok := m.byOwner[session]
	if !ok {
		m.mu.Unlock()
		return ErrNoSuchRegistration
	}
	rec, ok := owned[id]
	if !ok {
		m.mu.Unlock()
		return ErrNoSuchRegistration
	}
	delete(owned, id)
	if len(owned) == 0 {
		delete(m.byOwner, session)
	}
	if !m.bucketStillOwned(id) {
		delete(m.bucketPolicy, id)
		delete(m.rrIndex, id)
	}
	m.mu.Unlock()

	if _, err := m.trie.Remove(rec.pattern, session, rec.isPrefix); err != nil {
		return ErrNoSuchRegistration
	}
	return nil
}

// bucketStillOwned reports whether any session still owns bucket id. Caller
// holds m.mu.
func (m *RegistrationManager) bucketStillOwned(id uint64) bool {
	for _, owned := range m.byOwner {
		if _, ok := owned[id]; ok {
			return true
		}
	}
	return false
}

// Lookup returns every registrant matching procedure.
func (m *RegistrationManager) Lookup(procedure string) []trie.Entry {
	return m.trie.Filter(procedure)
}

// Pick selects one callee session from matches per the bucket's invocation
// policy. All matches sharing a bucket ID are assumed to share a policy,
// since Register rejects mixing Single with anything else in a bucket.
func (m *RegistrationManager) Pick(matches []trie.Entry) (trie.Entry, bool) {
	if len(matches) == 0 {
		return trie.Entry{}, false
	}
	if len(matches) == 1 {
		return matches[0], true
	}

	bucket := matches[0].ID
	m.mu.RLock()
	policy := m.bucketPolicy[bucket]
	m.mu.RUnlock()

	switch policy {
	case First:
		return matches[0], true
	case Last:
		return matches[len(matches)-1], true
	case Random:
		return matches[int(idgen.New())%len(matches)], true
	default: // RoundRobin
		m.mu.Lock()
		defer m.mu.Unlock()
		i := m.rrIndex[bucket] % len(matches)
		m.rrIndex[bucket] = i + 1
		return matches[i], true
	}
}

// NewInvocation records a dispatched CALL and returns a fresh invocation ID.
func (m *RegistrationManager) NewInvocation(callRequest, caller uint64) uint64 {
	id := idgen.New()
	m.callsMu.Lock()
	m.calls[id] = PendingInvocation{CallRequest: callRequest, Caller: caller}
	m.callsMu.Unlock()
	return id
}

// ResolveInvocation consumes the pending entry for invocation id, returning
// false if none exists (already resolved, or unknown).
func (m *RegistrationManager) ResolveInvocation(invocation uint64) (PendingInvocation, bool) {
	m.callsMu.Lock()
	defer m.callsMu.Unlock()
	p, ok := m.calls[invocation]
	if ok {
		delete(m.calls, invocation)
	}
	return p, ok
}

// ReleaseSession withdraws every registration owned by session and drops
// any pending invocation entries it authored as caller.
func (m *RegistrationManager) ReleaseSession(session uint64) {
	m.mu.Lock()
	owned := m.byOwner[session]
	delete(m.byOwner, session)
	for id := range owned {
		if !m.bucketStillOwned(id) {
			delete(m.bucketPolicy, id)
			delete(m.rrIndex, id)
		}
	}
	m.mu.Unlock()

	for _, rec := range owned {
		_, _ = m.trie.Remove(rec.pattern, session, rec.isPrefix)
	}

	m.callsMu.Lock()
	for invID, p := range m.calls {
		if p.Caller == session {
			delete(m.calls, invID)
		}
	}
	m.callsMu.Unlock()
}
