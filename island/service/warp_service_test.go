package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-mc/skyblock-services/shared/models"
)

func TestWarpQuotaScalesWithLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	il, _ := f.realm.Get(id)
	target := models.Location{World: "skyworld", X: 10, Y: 70, Z: 10}

	// Level 5, no bonus permission: quota 0.
	il.SetLevel(5)
	_, err := f.svc.CreateWarp(ctx, id, "owner", "spawn", "", target, true)
	assert.ErrorIs(t, err, ErrWarpQuotaReached)

	// Level 10: one slot.
	il.SetLevel(10)
	_, err = f.svc.CreateWarp(ctx, id, "owner", "spawn", "", target, true)
	require.NoError(t, err)
	_, err = f.svc.CreateWarp(ctx, id, "owner", "shop", "", target, true)
	assert.ErrorIs(t, err, ErrWarpQuotaReached)

	// Extra-warp permission grants one bonus slot.
	f.perms.grant("owner", models.PermissionExtraWarp)
	_, err = f.svc.CreateWarp(ctx, id, "owner", "shop", "", target, true)
	require.NoError(t, err)

	// Name collisions are case-insensitive.
	_, err = f.svc.CreateWarp(ctx, id, "owner", "SPAWN", "", target, true)
	assert.Error(t, err)

	// Only the owner manages warps.
	_, err = f.svc.CreateWarp(ctx, id, "stranger", "hideout", "", target, true)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestUseWarpRespectsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	il, _ := f.realm.Get(id)
	il.SetLevel(10)
	target := models.Location{World: "skyworld", X: 10, Y: 70, Z: 10}
	_, err := f.svc.CreateWarp(ctx, id, "owner", "spawn", "", target, true)
	require.NoError(t, err)

	// Closed by default: visitors are refused, the owner passes.
	_, err = f.svc.UseWarp(ctx, id, "visitor", "spawn")
	assert.ErrorIs(t, err, ErrWarpsClosed)

	loc, err := f.svc.UseWarp(ctx, id, "owner", "spawn")
	require.NoError(t, err)
	assert.Equal(t, target, loc)

	// Opened: visitors pass and are recorded.
	require.NoError(t, f.svc.SetWarpsOpen(ctx, id, "owner", true))
	_, err = f.svc.UseWarp(ctx, id, "visitor", "spawn")
	require.NoError(t, err)
	snap := il.Snapshot()
	assert.Contains(t, snap.Visitors, "visitor")

	// Visit counter counts every teleport.
	warp, ok := il.WarpByName("spawn")
	require.True(t, ok)
	assert.Equal(t, int64(2), warp.Visits)

	_, err = f.svc.UseWarp(ctx, id, "owner", "nowhere")
	assert.ErrorIs(t, err, ErrWarpNotFound)

	assert.ErrorIs(t, f.svc.SetWarpsOpen(ctx, id, "visitor", false), ErrNotOwner)
}

func TestPromoteChargesOnceAndRefusesWhileActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	il, _ := f.realm.Get(id)
	f.economy.balances["owner"] = 100000

	cost, err := f.svc.Promote(ctx, id, "owner", 5)
	require.NoError(t, err)
	assert.Equal(t, PromotionCost(5), cost)
	assert.Equal(t, 100000-cost, f.economy.balances["owner"])
	assert.True(t, il.IsPromoted(f.clock))
	assert.True(t, il.WarpsOpen(), "promotion implicitly opens warps")

	snap := il.Snapshot()
	require.NotNil(t, snap.PromotedUntil)
	assert.Equal(t, f.clock.Add(5*24*time.Hour), *snap.PromotedUntil)

	// Promoting an already-promoted island fails and charges nothing.
	before := f.economy.balances["owner"]
	_, err = f.svc.Promote(ctx, id, "owner", 3)
	assert.ErrorIs(t, err, ErrAlreadyPromoted)
	assert.Equal(t, before, f.economy.balances["owner"])

	// After expiry the island is promotable again.
	f.clock = f.clock.Add(6 * 24 * time.Hour)
	_, err = f.svc.Promote(ctx, id, "owner", 1)
	require.NoError(t, err)
}

func TestPromoteValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")

	_, err := f.svc.Promote(ctx, id, "owner", 0)
	assert.ErrorIs(t, err, ErrInvalidPromotion)

	_, err = f.svc.Promote(ctx, id, "stranger", 5)
	assert.ErrorIs(t, err, ErrNotOwner)

	// Broke owner: refused, no state change.
	_, err = f.svc.Promote(ctx, id, "owner", 5)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	il, _ := f.realm.Get(id)
	assert.False(t, il.IsPromoted(f.clock))

	// Day counts above the cap are clamped, not rejected.
	f.economy.balances["owner"] = 10 * PromotionCost(30)
	cost, err := f.svc.Promote(ctx, id, "owner", 90)
	require.NoError(t, err)
	assert.Equal(t, PromotionCost(30), cost)
}

func TestPromotionCostMonotonicallyIncreasing(t *testing.T) {
	prev := 0.0
	for days := 1; days <= 30; days++ {
		cost := PromotionCost(days)
		assert.Greater(t, cost, prev, "cost must grow with days")
		prev = cost
	}
	assert.Equal(t, PromotionCost(30), PromotionCost(45), "capped at 30 days")
}
