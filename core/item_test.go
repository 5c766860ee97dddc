package core

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClaimOnlyWinsOnce(t *testing.T) {
	item := &PingItem{}

	assert.True(t, item.claim())
	assert.False(t, item.claim())
}

func TestClaimIsRaceSafe(t *testing.T) {
	item := &PingItem{}

	var wins int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if item.claim() {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}

	wg.Wait()

	assert.EqualValues(t, 1, wins)
}

func TestRequestTableInsertLookupRemove(t *testing.T) {
	table := newRequestTable()
	item := &PingItem{id: 1, sequence: 2}
	key := pack32(1, 2)

	table.insert(key, item)

	got, ok := table.lookup(key)
	assert.True(t, ok)
	assert.Same(t, item, got)

	table.remove(key)

	_, ok = table.lookup(key)
	assert.False(t, ok)
}

func TestRequestTableSweepExpiredClaimsOnlyStaleItems(t *testing.T) {
	table := newRequestTable()

	fresh := &PingItem{transmitTime: time.Now()}
	stale := &PingItem{transmitTime: time.Now().Add(-10 * time.Second)}

	table.insert(pack32(1, 1), fresh)
	table.insert(pack32(2, 2), stale)

	var expired []*PingItem
	table.sweepExpired(time.Now(), time.Second, func(key uint32, item *PingItem) {
		expired = append(expired, item)
	})

	assert.Equal(t, []*PingItem{stale}, expired)
	assert.True(t, stale.serviced)
	assert.False(t, fresh.serviced)

	_, ok := table.lookup(pack32(1, 1))
	assert.True(t, ok)

	_, ok = table.lookup(pack32(2, 2))
	assert.False(t, ok)
}

func TestRequestTableDrain(t *testing.T) {
	table := newRequestTable()
	table.insert(pack32(1, 1), &PingItem{})
	table.insert(pack32(2, 2), &PingItem{})

	items := table.drain()

	assert.Len(t, items, 2)
	assert.Empty(t, table.items)
}
