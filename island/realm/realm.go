// island/realm/realm.go
package realm

import (
	"fmt"
	"sync"
)

// Errors returned by realm-level operations.
var (
	ErrIslandNotFound    = fmt.Errorf("island not found")
	ErrInsufficientFunds = fmt.Errorf("insufficient bank funds")
	ErrSameIsland        = fmt.Errorf("cannot transfer to the same island")
)

// Realm is the in-memory registry of live island aggregates this instance is
// serving. Lookups take the registry lock only; island state is guarded by each
// island's own lock.
type Realm struct {
	mu      sync.RWMutex
	islands map[string]*Island
}

// NewRealm creates an empty registry.
func NewRealm() *Realm {
	return &Realm{
		islands: make(map[string]*Island),
	}
}

// Add registers a live island aggregate.
func (r *Realm) Add(il *Island) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.islands[il.ID()] = il
}

// Get returns the live aggregate for the given island id.
func (r *Realm) Get(islandID string) (*Island, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	il, ok := r.islands[islandID]
	return il, ok
}

// Remove unregisters and returns the island aggregate.
func (r *Realm) Remove(islandID string) (*Island, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	il, ok := r.islands[islandID]
	if ok {
		delete(r.islands, islandID)
	}
	return il, ok
}

// Len returns how many islands are currently live.
func (r *Realm) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.islands)
}

// ForEach calls fn for every live island. fn must not call back into the
// registry; island locks are taken inside fn's island operations as usual.
func (r *Realm) ForEach(fn func(*Island)) {
	r.mu.RLock()
	snapshot := make([]*Island, 0, len(r.islands))
	for _, il := range r.islands {
		snapshot = append(snapshot, il)
	}
	r.mu.RUnlock()

	for _, il := range snapshot {
		fn(il)
	}
}

// Transfer moves funds between two island banks atomically. Both island locks
// are acquired in island-id order, the only place two island locks are ever
// held at once, so concurrent transfers in opposite directions cannot deadlock.
// Nothing is debited when the source cannot cover the amount.
func (r *Realm) Transfer(fromID, toID string, amount float64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	if fromID == toID {
		return ErrSameIsland
	}

	r.mu.RLock()
	from, okFrom := r.islands[fromID]
	to, okTo := r.islands[toID]
	r.mu.RUnlock()

	if !okFrom {
		return fmt.Errorf("%w: %s", ErrIslandNotFound, fromID)
	}
	if !okTo {
		return fmt.Errorf("%w: %s", ErrIslandNotFound, toID)
	}

	first, second := from, to
	if second.ID() < first.ID() {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if amount > from.data.Bank {
		return fmt.Errorf("%w: island %s holds %.2f, needs %.2f", ErrInsufficientFunds, fromID, from.data.Bank, amount)
	}
	from.data.Bank -= amount
	to.data.Bank += amount
	from.dirty = true
	to.dirty = true
	return nil
}
