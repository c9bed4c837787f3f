package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverRespectsCapacity(t *testing.T) {
	s := NewBufferedSink(2)

	assert.True(t, s.Deliver("island-1", "owner-1", 4))
	assert.True(t, s.Deliver("island-1", "owner-1", 6))
	assert.False(t, s.Deliver("island-1", "owner-1", 2), "queue full, batch refused")

	// Queues are per island; a full island never blocks another.
	assert.True(t, s.Deliver("island-2", "owner-2", 3))

	assert.Equal(t, 2, s.Pending("island-1"))
	assert.Equal(t, 1, s.Pending("island-2"))
}

func TestDrainEmptiesQueue(t *testing.T) {
	s := NewBufferedSink(8)
	require.True(t, s.Deliver("island-1", "owner-1", 4))
	require.True(t, s.Deliver("island-1", "owner-2", 6))

	batches := s.Drain("island-1")
	require.Len(t, batches, 2)

	total := 0
	for _, b := range batches {
		total += b.Items
	}
	assert.Equal(t, 10, total)
	assert.Zero(t, s.Pending("island-1"))
	assert.Nil(t, s.Drain("island-1"))

	// Room again after draining.
	assert.True(t, s.Deliver("island-1", "owner-1", 1))
}

func TestDeliverRejectsEmptyBatches(t *testing.T) {
	s := NewBufferedSink(4)
	assert.False(t, s.Deliver("island-1", "owner-1", 0))
	assert.False(t, s.Deliver("island-1", "owner-1", -3))
	assert.Zero(t, s.Pending("island-1"))
}

func TestDiscardDropsBacklog(t *testing.T) {
	s := NewBufferedSink(4)
	require.True(t, s.Deliver("island-1", "owner-1", 4))
	s.Discard("island-1")
	assert.Zero(t, s.Pending("island-1"))
	assert.Nil(t, s.Drain("island-1"))
}
