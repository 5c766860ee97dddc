package core

import (
	"sync"
	"time"
)

// PingItem records a single in-flight probe, per §3. At most one of the
// receiver handler or the timeout scanner may "claim" an item; claim uses
// the item's own mutex, which the receiver path takes without holding the
// table lock and the timeout scanner takes while holding it.
type PingItem struct {
	id       uint16
	sequence uint16

	sampleNumber uint64

	target *PingTarget

	transmitTime  time.Time
	transmitEpoch time.Time

	mu       sync.Mutex
	serviced bool
}

// claim marks the item serviced if it has not been already, returning
// whether this call won the race. It is the sole race resolver between a
// reply arriving and the timeout scanner firing for the same item, per
// §4.4's state machine.
func (item *PingItem) claim() bool {
	item.mu.Lock()
	defer item.mu.Unlock()

	if item.serviced {
		return false
	}

	item.serviced = true

	return true
}

// requestTable is the engine's mapping from pack32(id, sequence) to the
// in-flight PingItem, per §3's "Request table". The mutex guards only map
// access — held for lookup/insert/remove and, in sweepExpired, across each
// item's claim (table lock before item lock), but never across I/O, per
// §5's shared-resource policy.
type requestTable struct {
	mu    sync.Mutex
	items map[uint32]*PingItem
}

func newRequestTable() *requestTable {
	return &requestTable{items: make(map[uint32]*PingItem)}
}

func (t *requestTable) insert(key uint32, item *PingItem) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items[key] = item
}

func (t *requestTable) lookup(key uint32) (*PingItem, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[key]
	return item, ok
}

func (t *requestTable) remove(key uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.items, key)
}

// sweepExpired claims and removes every item whose age exceeds timeout,
// calling onExpired for each one it claims. The table lock is held for the
// whole walk, matching §4.4's timeout-scanner description; since claim only
// ever takes the item's own lock and the table lock is never re-acquired
// from inside claim, this cannot deadlock against the receiver path, which
// takes the two locks one at a time rather than nested. onExpired runs
// after the walk, once the table lock has been released.
func (t *requestTable) sweepExpired(now time.Time, timeout time.Duration, onExpired func(key uint32, item *PingItem)) {
	t.mu.Lock()

	expired := make(map[uint32]*PingItem)

	for key, item := range t.items {
		if now.Sub(item.transmitTime) <= timeout {
			continue
		}

		if !item.claim() {
			continue
		}

		delete(t.items, key)

		expired[key] = item
	}

	t.mu.Unlock()

	for key, item := range expired {
		onExpired(key, item)
	}
}

// drain removes and returns every outstanding item, used on shutdown to
// discard in-flight probes without emitting results, per §5.
func (t *requestTable) drain() []*PingItem {
	t.mu.Lock()
	defer t.mu.Unlock()

	items := make([]*PingItem, 0, len(t.items))
	for key, item := range t.items {
		items = append(items, item)
		delete(t.items, key)
	}

	return items
}
