package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-mc/skyblock-services/island/realm"
	"github.com/skyward-mc/skyblock-services/island/sink"
	"github.com/skyward-mc/skyblock-services/shared/models"
)

// fakeAssigner scopes the tick to an explicit set of island ids.
type fakeAssigner struct {
	owned map[string]bool
	err   error
}

func (f *fakeAssigner) IsResponsible(entityID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.owned == nil {
		return true, nil
	}
	return f.owned[entityID], nil
}

func newSchedulerFixture(t *testing.T, assigner Assigner) (*GenerationScheduler, *realm.Realm, *sink.BufferedSink, *time.Time) {
	t.Helper()
	rlm := realm.NewRealm()
	itemSink := sink.NewBufferedSink(16)
	gs := NewGenerationScheduler(time.Second, rlm, itemSink, assigner)

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gs.SetClock(func() time.Time { return clock })
	return gs, rlm, itemSink, &clock
}

func addIslandWithPrinter(t *testing.T, rlm *realm.Realm, islandID string, stamp time.Time) *realm.Island {
	t.Helper()
	il := realm.NewIsland(models.NewIsland(islandID, "owner-"+islandID, "Island "+islandID))
	printer := &models.Device{ID: islandID + "-p1", Kind: models.DeviceKindPrinter, OwnerUUID: il.OwnerUUID(), X: 0, Y: 64, Z: 0, Tier: 1}
	printer.MarkProcessed(stamp)
	require.NoError(t, il.AddDevice(printer))
	rlm.Add(il)
	return il
}

func TestTickCreditsDuePrinters(t *testing.T) {
	gs, rlm, _, clock := newSchedulerFixture(t, &fakeAssigner{})
	il := addIslandWithPrinter(t, rlm, "a", *clock)

	tier1 := &models.Device{Kind: models.DeviceKindPrinter, Tier: 1}

	gs.Tick()
	assert.Zero(t, il.Bank(), "nothing due yet")

	*clock = clock.Add(tier1.ProcessingInterval())
	gs.Tick()
	assert.Equal(t, tier1.Payout(), il.Bank())

	// Next tick at the same instant credits nothing more.
	gs.Tick()
	assert.Equal(t, tier1.Payout(), il.Bank())
}

func TestTickSkipsIslandsAssignedElsewhere(t *testing.T) {
	assigner := &fakeAssigner{owned: map[string]bool{"a": true, "b": false}}
	gs, rlm, _, clock := newSchedulerFixture(t, assigner)
	ilA := addIslandWithPrinter(t, rlm, "a", *clock)
	ilB := addIslandWithPrinter(t, rlm, "b", *clock)

	*clock = clock.Add(2 * time.Minute)
	gs.Tick()

	assert.Positive(t, ilA.Bank())
	assert.Zero(t, ilB.Bank(), "island assigned to another instance is untouched")
}

func TestTickDeliversDepositBoxOutput(t *testing.T) {
	gs, rlm, itemSink, clock := newSchedulerFixture(t, &fakeAssigner{})

	il := realm.NewIsland(models.NewIsland("a", "owner-a", "Island A"))
	box := &models.Device{ID: "b1", Kind: models.DeviceKindDepositBox, OwnerUUID: "owner-a", X: 0, Y: 64, Z: 0, Tier: 2}
	box.MarkProcessed(*clock)
	require.NoError(t, il.AddDevice(box))
	rlm.Add(il)

	*clock = clock.Add(box.ProcessingInterval())
	gs.Tick()

	batches := itemSink.Drain("a")
	require.Len(t, batches, 1)
	assert.Equal(t, 4, batches[0].Items, "tier 2 produces min(10, 2*2) items")
	assert.Equal(t, "owner-a", batches[0].OwnerUUID)
}

func TestTickSweepsExpiredPromotions(t *testing.T) {
	gs, rlm, _, clock := newSchedulerFixture(t, &fakeAssigner{})

	il := realm.NewIsland(models.NewIsland("a", "owner-a", "Island A"))
	require.NoError(t, il.StartPromotion(*clock, clock.Add(time.Hour)))
	rlm.Add(il)

	gs.Tick()
	assert.True(t, il.IsPromoted(*clock), "window still running")

	*clock = clock.Add(2 * time.Hour)
	gs.Tick()
	assert.False(t, il.IsPromoted(*clock))

	snap := il.Snapshot()
	assert.Nil(t, snap.PromotedUntil, "sweep cleared the lapsed window")
	assert.True(t, snap.WarpsOpen, "island reverts to plain open")
}

func TestAssignerFailureSkipsIslandNotTick(t *testing.T) {
	// First island errors on the responsibility check, second still processes.
	assigner := &fakeAssigner{err: fmt.Errorf("ring is empty")}
	gs, rlm, _, clock := newSchedulerFixture(t, assigner)
	ilA := addIslandWithPrinter(t, rlm, "a", *clock)

	*clock = clock.Add(2 * time.Minute)
	gs.Tick()
	assert.Zero(t, ilA.Bank())

	assigner.err = nil
	gs.Tick()
	assert.Positive(t, ilA.Bank(), "self-corrects once the assigner recovers")
}
