package locks

import "sync"

// AccountLocks serializes mutations per account. Ticks, payments and operator
// commands for the same account never interleave; unrelated accounts proceed
// in parallel.
type AccountLocks struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewAccountLocks builds an empty lock table.
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{entries: make(map[string]*entry)}
}

// Lock acquires the per-account lock and returns the release function.
func (l *AccountLocks) Lock(accountID string) func() {
	l.mu.Lock()
	e, ok := l.entries[accountID]
	if !ok {
		e = &entry{}
		l.entries[accountID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, accountID)
			}
			l.mu.Unlock()
		})
	}
}
