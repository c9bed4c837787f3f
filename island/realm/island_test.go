package realm

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-mc/skyblock-services/shared/models"
)

func newTestIsland(t *testing.T) *Island {
	t.Helper()
	return NewIsland(models.NewIsland("island-1", "owner-1", "Test Island"))
}

func TestBankNeverGoesNegative(t *testing.T) {
	il := newTestIsland(t)
	require.NoError(t, il.AddToBank(100.0))

	// Over-withdrawal fails with no mutation.
	assert.False(t, il.RemoveFromBank(150.0))
	assert.Equal(t, 100.0, il.Bank())

	// In-range withdrawal debits exactly the requested amount.
	assert.True(t, il.RemoveFromBank(40.0))
	assert.Equal(t, 60.0, il.Bank())

	assert.False(t, il.RemoveFromBank(-1.0))
	assert.Equal(t, 60.0, il.Bank())

	assert.Error(t, il.AddToBank(-5.0))
	assert.Equal(t, 60.0, il.Bank())
}

func TestConcurrentBankOperationsConserveFunds(t *testing.T) {
	il := newTestIsland(t)
	require.NoError(t, il.AddToBank(1000.0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = il.AddToBank(1.0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				il.RemoveFromBank(1.0)
			}
		}()
	}
	wg.Wait()

	// Every successful withdrawal paired with a deposit, so the balance is back
	// where it started and never dipped below zero along the way.
	assert.Equal(t, 1000.0, il.Bank())
}

func TestMembersAndVisitorsStayDisjoint(t *testing.T) {
	il := newTestIsland(t)

	require.NoError(t, il.AddVisitor("p1"))
	require.NoError(t, il.AddMember("p1"))

	snap := il.Snapshot()
	assert.Contains(t, snap.Members, "p1")
	assert.NotContains(t, snap.Visitors, "p1", "promotion to member removes visitor status")

	// Visitor add is a no-op for an existing member.
	require.NoError(t, il.AddVisitor("p1"))
	snap = il.Snapshot()
	assert.NotContains(t, snap.Visitors, "p1")

	// The owner is implicit and never enters either set.
	assert.ErrorIs(t, il.AddMember("owner-1"), ErrOwnerImplicit)
	assert.ErrorIs(t, il.AddVisitor("owner-1"), ErrOwnerImplicit)

	assert.True(t, il.RemoveMember("p1"))
	assert.False(t, il.RemoveMember("p1"))
}

func TestDeviceCapacityEnforced(t *testing.T) {
	il := newTestIsland(t)
	il.SetMaxPrinters(10)

	for i := 0; i < 10; i++ {
		d := &models.Device{
			ID:        fmt.Sprintf("printer-%d", i),
			Kind:      models.DeviceKindPrinter,
			OwnerUUID: "owner-1",
			X:         i, Y: 64, Z: 0,
			Tier: 1,
		}
		require.NoError(t, il.AddDevice(d))
	}
	assert.False(t, il.CanPlaceDevice(models.DeviceKindPrinter))

	eleventh := &models.Device{
		ID:        "printer-11",
		Kind:      models.DeviceKindPrinter,
		OwnerUUID: "owner-1",
		X:         11, Y: 64, Z: 0,
		Tier: 1,
	}
	assert.ErrorIs(t, il.AddDevice(eleventh), ErrDeviceCapacity)
	assert.Equal(t, 10, il.DeviceCount(models.DeviceKindPrinter))
}

func TestDeviceCoordinateUniqueness(t *testing.T) {
	il := newTestIsland(t)

	first := &models.Device{ID: "d1", Kind: models.DeviceKindPrinter, OwnerUUID: "owner-1", X: 1, Y: 64, Z: 1, Tier: 1}
	require.NoError(t, il.AddDevice(first))

	// Same coordinates collide across kinds too.
	second := &models.Device{ID: "d2", Kind: models.DeviceKindDepositBox, OwnerUUID: "owner-1", X: 1, Y: 64, Z: 1, Tier: 1}
	assert.ErrorIs(t, il.AddDevice(second), ErrCoordinateOccupied)

	removed, ok := il.RemoveDevice("d1")
	require.True(t, ok)
	assert.Equal(t, "d1", removed.ID)

	// Freed coordinates are placeable again.
	assert.NoError(t, il.AddDevice(second))
}

func TestCapacitySettersClampToFloors(t *testing.T) {
	il := newTestIsland(t)

	il.SetMaxHoppers(1)
	il.SetMaxDepositBoxes(0)
	il.SetMaxPrinters(-3)
	il.SetGenerationSpeed(0.5)
	il.SetTransferSpeed(0)

	snap := il.Snapshot()
	assert.Equal(t, models.MinMaxHoppers, snap.MaxHoppers)
	assert.Equal(t, models.MinMaxDepositBoxes, snap.MaxDepositBoxes)
	assert.Equal(t, models.MinMaxPrinters, snap.MaxPrinters)
	assert.Equal(t, models.MinSpeedMultiplier, snap.GenerationSpeed)
	assert.Equal(t, models.MinSpeedMultiplier, snap.TransferSpeed)
}

type recordingSink struct {
	mu        sync.Mutex
	accept    bool
	delivered int
	batches   int
}

func (s *recordingSink) Deliver(islandID, ownerUUID string, items int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if !s.accept {
		return false
	}
	s.delivered += items
	return true
}

func TestProcessDueDevicesCreditsExactlyOncePerInterval(t *testing.T) {
	il := newTestIsland(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	printer := &models.Device{ID: "p1", Kind: models.DeviceKindPrinter, OwnerUUID: "owner-1", X: 0, Y: 64, Z: 0, Tier: 1}
	printer.MarkProcessed(base)
	require.NoError(t, il.AddDevice(printer))

	interval := printer.ProcessingInterval()

	// Not yet due: half an interval later nothing is credited.
	res := il.ProcessDueDevices(base.Add(interval/2), nil)
	assert.Zero(t, res.BankCredited)
	assert.Equal(t, 0.0, il.Bank())

	// Due: exactly one payout.
	due := base.Add(interval)
	res = il.ProcessDueDevices(due, nil)
	assert.Equal(t, printer.Payout(), res.BankCredited)
	assert.Equal(t, printer.Payout(), il.Bank())

	// A second pass at the same instant sees the fresh stamp and credits nothing.
	res = il.ProcessDueDevices(due, nil)
	assert.Zero(t, res.BankCredited)
	assert.Equal(t, printer.Payout(), il.Bank())

	// Not eligible again until a full interval after the processing time.
	res = il.ProcessDueDevices(due.Add(interval-time.Millisecond), nil)
	assert.Zero(t, res.BankCredited)
	res = il.ProcessDueDevices(due.Add(interval), nil)
	assert.Equal(t, printer.Payout(), res.BankCredited)
}

func TestProcessDueDevicesDropsItemsWhenSinkFull(t *testing.T) {
	il := newTestIsland(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	box := &models.Device{ID: "b1", Kind: models.DeviceKindDepositBox, OwnerUUID: "owner-1", X: 0, Y: 64, Z: 0, Tier: 3}
	box.MarkProcessed(base)
	require.NoError(t, il.AddDevice(box))

	sink := &recordingSink{accept: false}
	due := base.Add(box.ProcessingInterval())

	res := il.ProcessDueDevices(due, sink)
	assert.Zero(t, res.ItemsDelivered)
	assert.Equal(t, 6, res.ItemsDropped, "tier 3 produces min(10, 3*2) items")
	assert.Equal(t, 1, sink.batches)

	// The due-time advanced even though the batch was dropped: no catch-up.
	res = il.ProcessDueDevices(due, sink)
	assert.Zero(t, res.ItemsDropped)
	assert.Equal(t, 1, sink.batches)

	// Once the sink accepts again, production resumes on the next interval.
	sink.accept = true
	res = il.ProcessDueDevices(due.Add(box.ProcessingInterval()), sink)
	assert.Equal(t, 6, res.ItemsDelivered)
	assert.Equal(t, 6, sink.delivered)
}

func TestGenerationSpeedShortensEffectiveInterval(t *testing.T) {
	il := newTestIsland(t)
	il.SetGenerationSpeed(2.0)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	printer := &models.Device{ID: "p1", Kind: models.DeviceKindPrinter, OwnerUUID: "owner-1", X: 0, Y: 64, Z: 0, Tier: 1}
	printer.MarkProcessed(base)
	require.NoError(t, il.AddDevice(printer))

	// At 2x generation speed the tier-1 printer is due after half its interval.
	res := il.ProcessDueDevices(base.Add(printer.ProcessingInterval()/2), nil)
	assert.Equal(t, printer.Payout(), res.BankCredited)
}

func TestPromotionLifecycle(t *testing.T) {
	il := newTestIsland(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(5 * 24 * time.Hour)

	assert.False(t, il.IsPromoted(now))
	require.NoError(t, il.StartPromotion(now, until))
	assert.True(t, il.IsPromoted(now))
	assert.True(t, il.WarpsOpen(), "promotion implicitly opens warps")

	// Promoting again before expiry fails without touching the window.
	assert.ErrorIs(t, il.StartPromotion(now.Add(time.Hour), until.Add(time.Hour)), ErrAlreadyPromoted)

	// Window lapses: cleared on sweep, island reverts to plain open.
	after := until.Add(time.Second)
	assert.False(t, il.IsPromoted(after))
	assert.True(t, il.ClearExpiredPromotion(after))
	assert.False(t, il.ClearExpiredPromotion(after))
	assert.True(t, il.WarpsOpen())

	// Promotable again after expiry.
	assert.NoError(t, il.StartPromotion(after, after.Add(24*time.Hour)))
}

func TestWarpNamesUniqueCaseInsensitively(t *testing.T) {
	il := newTestIsland(t)

	w := &models.Warp{ID: "w1", IslandID: il.ID(), Name: "Spawn", Target: models.Location{World: "skyworld", X: 1, Y: 65, Z: 1}}
	require.NoError(t, il.AddWarp(w))

	dup := &models.Warp{ID: "w2", IslandID: il.ID(), Name: "SPAWN"}
	assert.ErrorIs(t, il.AddWarp(dup), ErrWarpNameTaken)

	loc, ok := il.VisitWarp("sPaWn")
	require.True(t, ok)
	assert.Equal(t, 1.0, loc.X)

	got, ok := il.WarpByName("spawn")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Visits)

	assert.True(t, il.RemoveWarpByName("SpAwN"))
	assert.False(t, il.RemoveWarpByName("spawn"))
}

func TestSnapshotIfDirtyTracksChanges(t *testing.T) {
	il := newTestIsland(t)

	// A fresh aggregate has nothing to persist.
	_, dirty := il.SnapshotIfDirty()
	assert.False(t, dirty)

	require.NoError(t, il.AddToBank(10))
	snap, dirty := il.SnapshotIfDirty()
	require.True(t, dirty)
	assert.Equal(t, 10.0, snap.Bank)

	// Flag cleared until the next mutation.
	_, dirty = il.SnapshotIfDirty()
	assert.False(t, dirty)

	il.MarkDirty()
	_, dirty = il.SnapshotIfDirty()
	assert.True(t, dirty)

	// Snapshots are deep copies; mutating one never leaks into the aggregate.
	snap.Bank = 9999
	assert.Equal(t, 10.0, il.Bank())
}
