package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward-mc/skyblock-services/island/realm"
	"github.com/skyward-mc/skyblock-services/island/sink"
	"github.com/skyward-mc/skyblock-services/island/store"
	"github.com/skyward-mc/skyblock-services/shared/models"
)

// --- fakes ---

type fakeIslandStore struct {
	created map[string]*models.Island
	deleted []string
	failAll bool
}

func newFakeIslandStore() *fakeIslandStore {
	return &fakeIslandStore{created: map[string]*models.Island{}}
}

func (f *fakeIslandStore) CreateIsland(ctx context.Context, island *models.Island) error {
	if f.failAll {
		return fmt.Errorf("mongo down")
	}
	f.created[island.UUID] = island
	return nil
}

func (f *fakeIslandStore) GetIslandByID(ctx context.Context, islandID string) (*models.Island, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeIslandStore) SaveIsland(ctx context.Context, island *models.Island) error {
	return nil
}

func (f *fakeIslandStore) DeleteIsland(ctx context.Context, islandID string) error {
	if f.failAll {
		return fmt.Errorf("mongo down")
	}
	f.deleted = append(f.deleted, islandID)
	delete(f.created, islandID)
	return nil
}

func (f *fakeIslandStore) GetAllIslands(ctx context.Context) ([]*models.Island, error) {
	var out []*models.Island
	for _, island := range f.created {
		out = append(out, island)
	}
	return out, nil
}

func (f *fakeIslandStore) GetTopIslandsByLevel(ctx context.Context, n int) ([]*models.Island, error) {
	return nil, nil
}

type fakeLeaderboard struct {
	levels  map[string]int64
	removed []string
}

func newFakeLeaderboard() *fakeLeaderboard {
	return &fakeLeaderboard{levels: map[string]int64{}}
}

func (f *fakeLeaderboard) SetIslandLevel(ctx context.Context, islandID string, level int64) error {
	f.levels[islandID] = level
	return nil
}

func (f *fakeLeaderboard) RemoveIsland(ctx context.Context, islandID string) error {
	f.removed = append(f.removed, islandID)
	delete(f.levels, islandID)
	return nil
}

func (f *fakeLeaderboard) GetTopIslands(ctx context.Context, n int) ([]store.LeaderboardEntry, error) {
	var out []store.LeaderboardEntry
	for id, level := range f.levels {
		out = append(out, store.LeaderboardEntry{IslandID: id, Level: level})
	}
	return out, nil
}

// fakeEconomy tracks wallet balances in memory.
type fakeEconomy struct {
	balances    map[string]float64
	failCredits bool
}

func newFakeEconomy() *fakeEconomy {
	return &fakeEconomy{balances: map[string]float64{}}
}

func (f *fakeEconomy) HasBalance(ctx context.Context, playerUUID string, amount float64) (bool, error) {
	return f.balances[playerUUID] >= amount, nil
}

func (f *fakeEconomy) RemoveBalance(ctx context.Context, playerUUID string, amount float64) error {
	if f.balances[playerUUID] < amount {
		return fmt.Errorf("insufficient wallet funds")
	}
	f.balances[playerUUID] -= amount
	return nil
}

func (f *fakeEconomy) AddBalance(ctx context.Context, playerUUID string, amount float64) error {
	if f.failCredits {
		return fmt.Errorf("economy service unavailable")
	}
	f.balances[playerUUID] += amount
	return nil
}

func (f *fakeEconomy) FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

type fakePermissions struct {
	granted map[string]bool // key: uuid + "|" + permission
}

func newFakePermissions() *fakePermissions {
	return &fakePermissions{granted: map[string]bool{}}
}

func (f *fakePermissions) grant(playerUUID string, perm models.PermissionKind) {
	f.granted[playerUUID+"|"+string(perm)] = true
}

func (f *fakePermissions) HasPermission(ctx context.Context, playerUUID, permission string) (bool, error) {
	return f.granted[playerUUID+"|"+permission], nil
}

type fakePlayers struct {
	profiles map[string]*models.SkyblockPlayer
}

func newFakePlayers() *fakePlayers {
	return &fakePlayers{profiles: map[string]*models.SkyblockPlayer{}}
}

func (f *fakePlayers) profile(playerUUID string) *models.SkyblockPlayer {
	if p, ok := f.profiles[playerUUID]; ok {
		return p
	}
	p := models.NewSkyblockPlayer(playerUUID)
	f.profiles[playerUUID] = p
	return p
}

func (f *fakePlayers) GetProfile(ctx context.Context, playerUUID string) (*models.SkyblockPlayer, error) {
	return f.profile(playerUUID), nil
}

func (f *fakePlayers) SetIsland(ctx context.Context, playerUUID, islandUUID string) error {
	f.profile(playerUUID).IslandUUID = islandUUID
	return nil
}

func (f *fakePlayers) ClearIsland(ctx context.Context, playerUUID string) error {
	p := f.profile(playerUUID)
	p.IslandUUID = ""
	p.ResetCount++
	return nil
}

func (f *fakePlayers) AddMembership(ctx context.Context, playerUUID, islandUUID string) error {
	p := f.profile(playerUUID)
	p.Memberships = append(p.Memberships, islandUUID)
	return nil
}

func (f *fakePlayers) RemoveMembership(ctx context.Context, playerUUID, islandUUID string) error {
	p := f.profile(playerUUID)
	out := p.Memberships[:0]
	for _, id := range p.Memberships {
		if id != islandUUID {
			out = append(out, id)
		}
	}
	p.Memberships = out
	return nil
}

type fakeNotifier struct {
	messages map[string][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{messages: map[string][]string{}}
}

func (f *fakeNotifier) Notify(playerUUID, message string) {
	f.messages[playerUUID] = append(f.messages[playerUUID], message)
}

// --- fixture ---

type fixture struct {
	svc     *IslandService
	realm   *realm.Realm
	store   *fakeIslandStore
	lb      *fakeLeaderboard
	economy *fakeEconomy
	perms   *fakePermissions
	players *fakePlayers
	notify  *fakeNotifier
	items   *sink.BufferedSink
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		realm:   realm.NewRealm(),
		store:   newFakeIslandStore(),
		lb:      newFakeLeaderboard(),
		economy: newFakeEconomy(),
		perms:   newFakePermissions(),
		players: newFakePlayers(),
		notify:  newFakeNotifier(),
		items:   sink.NewBufferedSink(16),
		clock:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewIslandService(f.realm, f.store, f.lb, f.economy, f.perms, f.players, f.notify, f.items)
	f.svc.SetClock(func() time.Time { return f.clock })
	return f
}

// addIsland seeds a live island owned by ownerUUID and returns its id.
func (f *fixture) addIsland(t *testing.T, ownerUUID string) string {
	t.Helper()
	island := models.NewIsland("island-"+ownerUUID, ownerUUID, ownerUUID+"'s island")
	f.realm.Add(realm.NewIsland(island))
	return island.UUID
}

// --- lifecycle ---

func TestCreateIslandGatedOnPermissionAndSingleOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateIsland(ctx, "p1", "Home")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	f.perms.grant("p1", models.PermissionCreateIsland)
	island, err := f.svc.CreateIsland(ctx, "p1", "Home")
	require.NoError(t, err)
	assert.Equal(t, "p1", island.OwnerUUID)
	assert.Equal(t, models.DefaultIslandSize, island.Size)
	assert.Equal(t, int64(models.DefaultIslandLevel), island.Level)
	assert.Zero(t, island.Bank)
	assert.Contains(t, f.store.created, island.UUID)
	assert.Equal(t, island.UUID, f.players.profile("p1").IslandUUID)

	// Second creation is refused while the first island stands.
	_, err = f.svc.CreateIsland(ctx, "p1", "Second Home")
	assert.ErrorIs(t, err, ErrAlreadyOwnsIsland)

	_, err = f.svc.CreateIsland(ctx, "p1", "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestDeleteIslandRefundsBankAndUnlinksProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	il, _ := f.realm.Get(id)
	require.NoError(t, il.AddToBank(500))
	require.NoError(t, f.svc.AddMember(ctx, id, "owner", "m1"))

	assert.ErrorIs(t, f.svc.DeleteIsland(ctx, id, "m1"), ErrNotOwner)

	require.NoError(t, f.svc.DeleteIsland(ctx, id, "owner"))
	assert.Equal(t, 500.0, f.economy.balances["owner"], "bank funds refunded to the owner's wallet")
	assert.Contains(t, f.store.deleted, id)
	assert.Contains(t, f.lb.removed, id)
	assert.Empty(t, f.players.profile("owner").IslandUUID)
	assert.Equal(t, 1, f.players.profile("owner").ResetCount)
	assert.Empty(t, f.players.profile("m1").Memberships)

	_, ok := f.realm.Get(id)
	assert.False(t, ok)

	assert.ErrorIs(t, f.svc.DeleteIsland(ctx, id, "owner"), ErrIslandNotFound)
}

// --- bank ledger ---

func TestDepositMovesWalletFundsIntoBank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	f.economy.balances["owner"] = 200

	require.NoError(t, f.svc.Deposit(ctx, id, "owner", 150))
	assert.Equal(t, 50.0, f.economy.balances["owner"])
	il, _ := f.realm.Get(id)
	assert.Equal(t, 150.0, il.Bank())

	// Wallet cannot cover it: nothing moves.
	assert.ErrorIs(t, f.svc.Deposit(ctx, id, "owner", 100), ErrInsufficientFunds)
	assert.Equal(t, 50.0, f.economy.balances["owner"])
	assert.Equal(t, 150.0, il.Bank())

	assert.ErrorIs(t, f.svc.Deposit(ctx, id, "owner", 0), ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.Deposit(ctx, id, "stranger", 10), ErrNotAuthorized)
}

func TestWithdrawRollsBackWhenWalletCreditFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	il, _ := f.realm.Get(id)
	require.NoError(t, il.AddToBank(100))

	// Scenario: over-withdrawal refused without mutation.
	assert.ErrorIs(t, f.svc.Withdraw(ctx, id, "owner", 150), ErrInsufficientFunds)
	assert.Equal(t, 100.0, il.Bank())

	// Wallet credit fails after the bank debit: bank is restored.
	f.economy.failCredits = true
	err := f.svc.Withdraw(ctx, id, "owner", 40)
	require.Error(t, err)
	assert.Equal(t, 100.0, il.Bank(), "failed wallet credit rolls the bank back")

	f.economy.failCredits = false
	require.NoError(t, f.svc.Withdraw(ctx, id, "owner", 40))
	assert.Equal(t, 60.0, il.Bank())
	assert.Equal(t, 40.0, f.economy.balances["owner"])

	// Members cannot withdraw.
	require.NoError(t, f.svc.AddMember(ctx, id, "owner", "m1"))
	assert.ErrorIs(t, f.svc.Withdraw(ctx, id, "m1", 10), ErrNotOwner)
}

func TestTransferBankBetweenIslands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fromID := f.addIsland(t, "alice")
	toID := f.addIsland(t, "bob")
	from, _ := f.realm.Get(fromID)
	to, _ := f.realm.Get(toID)
	require.NoError(t, from.AddToBank(100))

	assert.ErrorIs(t, f.svc.TransferBank(ctx, fromID, toID, "bob", 50), ErrNotOwner)

	require.NoError(t, f.svc.TransferBank(ctx, fromID, toID, "alice", 60))
	assert.Equal(t, 40.0, from.Bank())
	assert.Equal(t, 60.0, to.Bank())

	assert.ErrorIs(t, f.svc.TransferBank(ctx, fromID, toID, "alice", 100), ErrInsufficientFunds)
	assert.Equal(t, 40.0, from.Bank())
	assert.Equal(t, 60.0, to.Bank())
}

// --- devices ---

func TestPlaceUpgradeAndBreakDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	f.economy.balances["owner"] = 10000

	device, err := f.svc.PlaceDevice(ctx, id, "owner", models.DeviceKindPrinter, 1, 64, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, device.Tier)

	// Same coordinates refused.
	_, err = f.svc.PlaceDevice(ctx, id, "owner", models.DeviceKindDepositBox, 1, 64, 1)
	assert.ErrorIs(t, err, realm.ErrCoordinateOccupied)

	// Upgrade to tier 2 costs 5000.
	require.NoError(t, f.svc.UpgradeDevice(ctx, id, "owner", device.ID, 2))
	assert.Equal(t, 5000.0, f.economy.balances["owner"])

	// Downgrades and over-cap tiers are invalid, and charge nothing.
	assert.ErrorIs(t, f.svc.UpgradeDevice(ctx, id, "owner", device.ID, 2), ErrInvalidAmount)
	assert.ErrorIs(t, f.svc.UpgradeDevice(ctx, id, "owner", device.ID, models.MaxDeviceTier+1), ErrInvalidAmount)
	assert.Equal(t, 5000.0, f.economy.balances["owner"])

	// Tier 3 costs 15000, wallet holds 5000: refused without charging.
	assert.ErrorIs(t, f.svc.UpgradeDevice(ctx, id, "owner", device.ID, 3), ErrInsufficientFunds)
	assert.Equal(t, 5000.0, f.economy.balances["owner"])

	require.NoError(t, f.svc.BreakDevice(ctx, id, "owner", device.ID))
	assert.ErrorIs(t, f.svc.BreakDevice(ctx, id, "owner", device.ID), realm.ErrDeviceNotFound)

	_, err = f.svc.PlaceDevice(ctx, id, "stranger", models.DeviceKindPrinter, 2, 64, 2)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestCollectItemsDrainsQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")
	require.True(t, f.items.Deliver(id, "owner", 6))
	require.True(t, f.items.Deliver(id, "owner", 4))

	total, err := f.svc.CollectItems(ctx, id, "owner")
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	total, err = f.svc.CollectItems(ctx, id, "owner")
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = f.svc.CollectItems(ctx, id, "stranger")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestSetLevelFeedsLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.addIsland(t, "owner")

	require.NoError(t, f.svc.SetLevel(ctx, id, 42))
	assert.Equal(t, int64(42), f.lb.levels[id])

	il, _ := f.realm.Get(id)
	assert.Equal(t, int64(42), il.Level())
}
