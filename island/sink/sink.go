// island/sink/sink.go
package sink

import (
	"sync"
)

// ItemBatch is one deposit box production batch awaiting collection.
type ItemBatch struct {
	OwnerUUID string
	Items     int
}

// BufferedSink holds deposit box output in a bounded per-island queue until a
// player collects it. Deliver refuses batches once an island's queue is full;
// the scheduler then drops the batch, which keeps one inactive island from
// growing an unbounded backlog.
type BufferedSink struct {
	mu       sync.Mutex
	capacity int
	queues   map[string][]ItemBatch
}

// NewBufferedSink creates a sink whose per-island queues hold at most capacity
// batches each.
func NewBufferedSink(capacity int) *BufferedSink {
	if capacity < 1 {
		capacity = 1
	}
	return &BufferedSink{
		capacity: capacity,
		queues:   make(map[string][]ItemBatch),
	}
}

// Deliver enqueues a production batch for the island. Returns false when the
// island's queue is at capacity or the batch is empty.
func (s *BufferedSink) Deliver(islandID, ownerUUID string, items int) bool {
	if items <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[islandID]
	if len(q) >= s.capacity {
		return false
	}
	s.queues[islandID] = append(q, ItemBatch{OwnerUUID: ownerUUID, Items: items})
	return true
}

// Drain removes and returns every queued batch for the island. Called when a
// player collects their island's output.
func (s *BufferedSink) Drain(islandID string) []ItemBatch {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[islandID]
	if len(q) == 0 {
		return nil
	}
	delete(s.queues, islandID)
	return q
}

// Pending returns how many batches are queued for the island.
func (s *BufferedSink) Pending(islandID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[islandID])
}

// Discard drops any queued batches for the island, used on island deletion.
func (s *BufferedSink) Discard(islandID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queues, islandID)
}
