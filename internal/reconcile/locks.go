package reconcile

import "sync"

// lockTable hands out one mutex per template id so two passes over the same
// template cannot interleave between the duplicate check and the write.
// Keeping the guarantee in-process makes it independent of the storage
// backend. Entries are never evicted; the table is bounded by the number of
// distinct templates this process has seen.
type lockTable struct {
	mu   sync.Mutex
	held map[int64]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[int64]*sync.Mutex)}
}

// lock acquires the mutex for id and returns its release func.
func (t *lockTable) lock(id int64) func() {
	t.mu.Lock()
	l := t.held[id]
	if l == nil {
		l = &sync.Mutex{}
		t.held[id] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
