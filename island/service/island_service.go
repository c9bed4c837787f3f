// island/service/island_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skyward-mc/skyblock-services/island/realm"
	"github.com/skyward-mc/skyblock-services/island/sink"
	"github.com/skyward-mc/skyblock-services/island/store"
	"github.com/skyward-mc/skyblock-services/shared/models"
)

// Custom Errors for clear communication to API layer
var (
	ErrIslandNotFound    = fmt.Errorf("island not found")
	ErrAlreadyOwnsIsland = fmt.Errorf("player already owns an island")
	ErrNotOwner          = fmt.Errorf("only the island owner may do this")
	ErrNotAuthorized     = fmt.Errorf("player is not a member of this island")
	ErrPermissionDenied  = fmt.Errorf("player lacks the required permission")
	ErrInvalidAmount     = fmt.Errorf("amount must be positive")
	ErrInsufficientFunds = fmt.Errorf("insufficient funds")
	ErrInvalidName       = fmt.Errorf("name must not be empty")
)

// deviceUpgradeCosts maps target tier to the wallet cost of upgrading a device
// to it. Tier 1 is the placement tier and free.
var deviceUpgradeCosts = [models.MaxDeviceTier + 1]float64{0, 0, 5000, 15000, 40000, 100000}

// IslandStore is the persistence contract the service needs. Satisfied by
// store.IslandStore; tests substitute fakes.
type IslandStore interface {
	CreateIsland(ctx context.Context, island *models.Island) error
	GetIslandByID(ctx context.Context, islandID string) (*models.Island, error)
	SaveIsland(ctx context.Context, island *models.Island) error
	DeleteIsland(ctx context.Context, islandID string) error
	GetAllIslands(ctx context.Context) ([]*models.Island, error)
	GetTopIslandsByLevel(ctx context.Context, n int) ([]*models.Island, error)
}

// LeaderboardStore maintains the ranked island levels.
type LeaderboardStore interface {
	SetIslandLevel(ctx context.Context, islandID string, level int64) error
	RemoveIsland(ctx context.Context, islandID string) error
	GetTopIslands(ctx context.Context, n int) ([]store.LeaderboardEntry, error)
}

// EconomyClient is the external wallet authority. Every call is fallible; the
// service never assumes funds moved without checking.
type EconomyClient interface {
	HasBalance(ctx context.Context, playerUUID string, amount float64) (bool, error)
	RemoveBalance(ctx context.Context, playerUUID string, amount float64) error
	AddBalance(ctx context.Context, playerUUID string, amount float64) error
	FormatMoney(amount float64) string
}

// PermissionClient gates privileged actions against the external authority.
type PermissionClient interface {
	HasPermission(ctx context.Context, playerUUID, permission string) (bool, error)
}

// PlayerClient keeps player profiles in step with island ownership changes.
type PlayerClient interface {
	GetProfile(ctx context.Context, playerUUID string) (*models.SkyblockPlayer, error)
	SetIsland(ctx context.Context, playerUUID, islandUUID string) error
	ClearIsland(ctx context.Context, playerUUID string) error
	AddMembership(ctx context.Context, playerUUID, islandUUID string) error
	RemoveMembership(ctx context.Context, playerUUID, islandUUID string) error
}

// Notifier delivers fire-and-forget messages to online players.
type Notifier interface {
	Notify(playerUUID, message string)
}

// ItemCollector hands out accumulated deposit box output.
type ItemCollector interface {
	Drain(islandID string) []sink.ItemBatch
	Discard(islandID string)
}

// IslandService encapsulates the business logic for islands: lifecycle, bank
// ledger operations, membership, devices and capacities. Warp and promotion
// logic lives in warp_service.go on the same type.
type IslandService struct {
	realm       *realm.Realm
	islandStore IslandStore
	leaderboard LeaderboardStore
	economy     EconomyClient
	permissions PermissionClient
	players     PlayerClient
	notifier    Notifier
	items       ItemCollector
	now         func() time.Time
}

// NewIslandService creates a new IslandService instance.
func NewIslandService(
	rlm *realm.Realm,
	islandStore IslandStore,
	leaderboard LeaderboardStore,
	economy EconomyClient,
	permissions PermissionClient,
	players PlayerClient,
	notifier Notifier,
	items ItemCollector,
) *IslandService {
	return &IslandService{
		realm:       rlm,
		islandStore: islandStore,
		leaderboard: leaderboard,
		economy:     economy,
		permissions: permissions,
		players:     players,
		notifier:    notifier,
		items:       items,
		now:         time.Now,
	}
}

// SetClock overrides the service's time source for tests.
func (s *IslandService) SetClock(now func() time.Time) {
	s.now = now
}

// LoadAll warms the live realm from MongoDB. Called once at startup before the
// scheduler begins ticking.
func (s *IslandService) LoadAll(ctx context.Context) error {
	islands, err := s.islandStore.GetAllIslands(ctx)
	if err != nil {
		return fmt.Errorf("failed to load islands: %w", err)
	}
	for _, island := range islands {
		s.realm.Add(realm.NewIsland(island))
	}
	log.Printf("INFO: IslandService: Loaded %d islands into the realm.", len(islands))
	return nil
}

// liveIsland resolves an island id to its live aggregate.
func (s *IslandService) liveIsland(islandID string) (*realm.Island, error) {
	il, ok := s.realm.Get(islandID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIslandNotFound, islandID)
	}
	return il, nil
}

// requireOwner resolves the island and checks the requester owns it.
func (s *IslandService) requireOwner(islandID, requesterUUID string) (*realm.Island, error) {
	il, err := s.liveIsland(islandID)
	if err != nil {
		return nil, err
	}
	if !il.IsOwner(requesterUUID) {
		return nil, ErrNotOwner
	}
	return il, nil
}

// requireMemberOrOwner resolves the island and checks the requester belongs to it.
func (s *IslandService) requireMemberOrOwner(islandID, requesterUUID string) (*realm.Island, error) {
	il, err := s.liveIsland(islandID)
	if err != nil {
		return nil, err
	}
	if !il.IsMemberOrOwner(requesterUUID) {
		return nil, ErrNotAuthorized
	}
	return il, nil
}

// --- lifecycle ---

// CreateIsland creates a fresh island for the player. One island per owner, and
// creation is gated on the external permission authority.
func (s *IslandService) CreateIsland(ctx context.Context, ownerUUID, name string) (*models.Island, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	allowed, err := s.permissions.HasPermission(ctx, ownerUUID, string(models.PermissionCreateIsland))
	if err != nil {
		return nil, fmt.Errorf("failed to check island creation permission for %s: %w", ownerUUID, err)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	profile, err := s.players.GetProfile(ctx, ownerUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", ownerUUID, err)
	}
	if profile.OwnsIsland() {
		return nil, ErrAlreadyOwnsIsland
	}

	island := models.NewIsland(uuid.New().String(), ownerUUID, name)
	if err := s.islandStore.CreateIsland(ctx, island); err != nil {
		return nil, fmt.Errorf("failed to persist new island: %w", err)
	}

	il := realm.NewIsland(island)
	s.realm.Add(il)

	if err := s.players.SetIsland(ctx, ownerUUID, island.UUID); err != nil {
		// Island exists; the profile link heals on the next create/delete cycle.
		log.Printf("ERROR: IslandService: Failed to link island %s to profile %s: %v", island.UUID, ownerUUID, err)
	}

	s.notifier.Notify(ownerUUID, fmt.Sprintf("Your island '%s' is ready!", name))
	return il.Snapshot(), nil
}

// GetIsland returns a snapshot of the island's current state.
func (s *IslandService) GetIsland(ctx context.Context, islandID string) (*models.Island, error) {
	il, ok := s.realm.Get(islandID)
	if ok {
		return il.Snapshot(), nil
	}
	// A dangling reference to a deleted island is an empty result, not a fault.
	island, err := s.islandStore.GetIslandByID(ctx, islandID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrIslandNotFound, islandID)
		}
		return nil, fmt.Errorf("failed to load island %s: %w", islandID, err)
	}
	return island, nil
}

// DeleteIsland tears an island down: remaining bank funds are refunded to the
// owner's wallet, member profiles are unlinked, queued items are discarded and
// the record leaves both MongoDB and the leaderboard.
func (s *IslandService) DeleteIsland(ctx context.Context, islandID, requesterUUID string) error {
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}

	snapshot := il.Snapshot()
	s.realm.Remove(islandID)
	s.items.Discard(islandID)

	if err := s.islandStore.DeleteIsland(ctx, islandID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		// Re-register so the island is not lost in memory while still persisted.
		s.realm.Add(il)
		return fmt.Errorf("failed to delete island %s: %w", islandID, err)
	}

	if err := s.leaderboard.RemoveIsland(ctx, islandID); err != nil {
		log.Printf("WARN: IslandService: Failed to remove island %s from leaderboard: %v", islandID, err)
	}

	if snapshot.Bank > 0 {
		if err := s.economy.AddBalance(ctx, snapshot.OwnerUUID, snapshot.Bank); err != nil {
			log.Printf("ERROR: IslandService: Failed to refund %.2f bank funds to %s for deleted island %s: %v",
				snapshot.Bank, snapshot.OwnerUUID, islandID, err)
		}
	}

	if err := s.players.ClearIsland(ctx, snapshot.OwnerUUID); err != nil {
		log.Printf("ERROR: IslandService: Failed to clear island link for owner %s: %v", snapshot.OwnerUUID, err)
	}
	for _, member := range snapshot.Members {
		if err := s.players.RemoveMembership(ctx, member, islandID); err != nil {
			log.Printf("WARN: IslandService: Failed to remove membership of %s on deleted island %s: %v", member, islandID, err)
		}
		s.notifier.Notify(member, fmt.Sprintf("Island '%s' was deleted by its owner.", snapshot.Name))
	}

	s.notifier.Notify(snapshot.OwnerUUID, fmt.Sprintf("Your island '%s' was deleted. %s in bank funds were refunded.",
		snapshot.Name, s.economy.FormatMoney(snapshot.Bank)))
	return nil
}

// TopIslands returns the highest-level islands. The Redis leaderboard serves
// the read; MongoDB backs it up when the leaderboard is unavailable.
func (s *IslandService) TopIslands(ctx context.Context, n int) ([]store.LeaderboardEntry, error) {
	entries, err := s.leaderboard.GetTopIslands(ctx, n)
	if err == nil {
		return entries, nil
	}
	log.Printf("WARN: IslandService: Leaderboard read failed, falling back to MongoDB: %v", err)

	islands, err := s.islandStore.GetTopIslandsByLevel(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top islands: %w", err)
	}
	entries = make([]store.LeaderboardEntry, 0, len(islands))
	for _, island := range islands {
		entries = append(entries, store.LeaderboardEntry{IslandID: island.UUID, Level: island.Level})
	}
	return entries, nil
}

// --- bank ledger ---

// Deposit moves funds from the player's wallet into the island bank. The wallet
// debit happens first; if crediting the bank fails the wallet is restored, so
// funds are never created or destroyed.
func (s *IslandService) Deposit(ctx context.Context, islandID, playerUUID string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	il, err := s.requireMemberOrOwner(islandID, playerUUID)
	if err != nil {
		return err
	}

	if err := s.economy.RemoveBalance(ctx, playerUUID, amount); err != nil {
		return fmt.Errorf("%w: wallet debit failed: %v", ErrInsufficientFunds, err)
	}
	if err := il.AddToBank(amount); err != nil {
		if refundErr := s.economy.AddBalance(ctx, playerUUID, amount); refundErr != nil {
			log.Printf("ERROR: IslandService: Failed to refund %.2f to %s after bank credit failure: %v", amount, playerUUID, refundErr)
		}
		return fmt.Errorf("failed to credit island bank: %w", err)
	}
	return nil
}

// Withdraw moves funds from the island bank into the owner's wallet.
// Owner-only. The bank debit happens first; a failed wallet credit rolls the
// bank back.
func (s *IslandService) Withdraw(ctx context.Context, islandID, playerUUID string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	il, err := s.requireOwner(islandID, playerUUID)
	if err != nil {
		return err
	}

	if !il.RemoveFromBank(amount) {
		return fmt.Errorf("%w: island bank holds %s", ErrInsufficientFunds, s.economy.FormatMoney(il.Bank()))
	}
	if err := s.economy.AddBalance(ctx, playerUUID, amount); err != nil {
		if restoreErr := il.AddToBank(amount); restoreErr != nil {
			log.Printf("ERROR: IslandService: Failed to restore %.2f to island %s bank after wallet credit failure: %v", amount, islandID, restoreErr)
		}
		return fmt.Errorf("failed to credit wallet for %s: %w", playerUUID, err)
	}
	return nil
}

// TransferBank moves funds between two island banks. The requester must own
// the source island. Atomic: nothing is debited when the source cannot cover it.
func (s *IslandService) TransferBank(ctx context.Context, fromID, toID, requesterUUID string, amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := s.requireOwner(fromID, requesterUUID); err != nil {
		return err
	}

	err := s.realm.Transfer(fromID, toID, amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, realm.ErrInsufficientFunds):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case errors.Is(err, realm.ErrIslandNotFound):
		return fmt.Errorf("%w: %v", ErrIslandNotFound, err)
	default:
		return err
	}
}

// --- membership ---

// AddMember invites a player onto the island. Owner-only.
func (s *IslandService) AddMember(ctx context.Context, islandID, requesterUUID, targetUUID string) error {
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}
	if err := il.AddMember(targetUUID); err != nil {
		return err
	}
	if err := s.players.AddMembership(ctx, targetUUID, islandID); err != nil {
		log.Printf("WARN: IslandService: Failed to record membership of %s on island %s: %v", targetUUID, islandID, err)
	}
	s.notifier.Notify(targetUUID, "You are now an island member!")
	return nil
}

// RemoveMember kicks a member. Owner-only, or a member removing themselves.
func (s *IslandService) RemoveMember(ctx context.Context, islandID, requesterUUID, targetUUID string) error {
	il, err := s.liveIsland(islandID)
	if err != nil {
		return err
	}
	if !il.IsOwner(requesterUUID) && requesterUUID != targetUUID {
		return ErrNotOwner
	}
	if !il.RemoveMember(targetUUID) {
		return fmt.Errorf("%w: %s is not a member", ErrNotAuthorized, targetUUID)
	}
	if err := s.players.RemoveMembership(ctx, targetUUID, islandID); err != nil {
		log.Printf("WARN: IslandService: Failed to remove membership record of %s on island %s: %v", targetUUID, islandID, err)
	}
	return nil
}

// RecordVisitor tracks a visiting player. A no-op for members and the owner.
func (s *IslandService) RecordVisitor(ctx context.Context, islandID, visitorUUID string) error {
	il, err := s.liveIsland(islandID)
	if err != nil {
		return err
	}
	if il.IsOwner(visitorUUID) {
		return nil
	}
	return il.AddVisitor(visitorUUID)
}

// RemoveVisitor drops a player from the visitor set when they leave.
func (s *IslandService) RemoveVisitor(ctx context.Context, islandID, visitorUUID string) error {
	il, err := s.liveIsland(islandID)
	if err != nil {
		return err
	}
	il.RemoveVisitor(visitorUUID)
	return nil
}

// SetFlag toggles an island behavior flag. Owner-only.
func (s *IslandService) SetFlag(ctx context.Context, islandID, requesterUUID string, flag models.IslandFlag, value bool) error {
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}
	return il.SetFlag(flag, value)
}

// --- devices ---

// PlaceDevice places a new tier-1 device for a member. Capacity and coordinate
// checks run atomically inside the aggregate.
func (s *IslandService) PlaceDevice(ctx context.Context, islandID, requesterUUID string, kind models.DeviceKind, x, y, z int) (*models.Device, error) {
	if kind != models.DeviceKindPrinter && kind != models.DeviceKindDepositBox {
		return nil, fmt.Errorf("unknown device kind %q", kind)
	}
	il, err := s.requireMemberOrOwner(islandID, requesterUUID)
	if err != nil {
		return nil, err
	}

	device := &models.Device{
		ID:        uuid.New().String(),
		Kind:      kind,
		OwnerUUID: requesterUUID,
		X:         x,
		Y:         y,
		Z:         z,
		Tier:      1,
	}
	device.MarkProcessed(s.now())

	if err := il.AddDevice(device); err != nil {
		return nil, err
	}
	return device, nil
}

// BreakDevice removes a placed device.
func (s *IslandService) BreakDevice(ctx context.Context, islandID, requesterUUID, deviceID string) error {
	il, err := s.requireMemberOrOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}
	if _, ok := il.RemoveDevice(deviceID); !ok {
		return realm.ErrDeviceNotFound
	}
	return nil
}

// UpgradeDevice raises a device to the given tier, charging the requester's
// wallet the upgrade cost. Nothing is charged when the upgrade is invalid.
func (s *IslandService) UpgradeDevice(ctx context.Context, islandID, requesterUUID, deviceID string, tier int) error {
	il, err := s.requireMemberOrOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}

	device, ok := il.Device(deviceID)
	if !ok {
		return realm.ErrDeviceNotFound
	}
	if tier <= device.Tier || tier > models.MaxDeviceTier {
		return fmt.Errorf("%w: tier must be between %d and %d", ErrInvalidAmount, device.Tier+1, models.MaxDeviceTier)
	}

	cost := deviceUpgradeCosts[tier]
	if cost > 0 {
		if err := s.economy.RemoveBalance(ctx, requesterUUID, cost); err != nil {
			return fmt.Errorf("%w: upgrade costs %s", ErrInsufficientFunds, s.economy.FormatMoney(cost))
		}
	}

	if err := il.SetDeviceTier(deviceID, tier); err != nil {
		if cost > 0 {
			if refundErr := s.economy.AddBalance(ctx, requesterUUID, cost); refundErr != nil {
				log.Printf("ERROR: IslandService: Failed to refund upgrade cost %.2f to %s: %v", cost, requesterUUID, refundErr)
			}
		}
		return err
	}

	s.notifier.Notify(requesterUUID, fmt.Sprintf("Device upgraded to tier %d for %s.", tier, s.economy.FormatMoney(cost)))
	return nil
}

// CollectItems drains the island's accumulated deposit box output and returns
// the total item count handed to the player.
func (s *IslandService) CollectItems(ctx context.Context, islandID, requesterUUID string) (int, error) {
	if _, err := s.requireMemberOrOwner(islandID, requesterUUID); err != nil {
		return 0, err
	}
	total := 0
	for _, batch := range s.items.Drain(islandID) {
		total += batch.Items
	}
	return total, nil
}

// --- upgrades applied by the world plugin ---

// CapacityUpdate carries upgraded capacity ceilings and speed multipliers.
// Nil fields are left untouched; values below the system floors are clamped,
// not rejected.
type CapacityUpdate struct {
	MaxDepositBoxes *int
	MaxPrinters     *int
	MaxHoppers      *int
	TransferSpeed   *float64
	GenerationSpeed *float64
}

// SetCapacities applies a capacity update to the island. Owner-only.
func (s *IslandService) SetCapacities(ctx context.Context, islandID, requesterUUID string, update CapacityUpdate) error {
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}
	if update.MaxDepositBoxes != nil {
		il.SetMaxDepositBoxes(*update.MaxDepositBoxes)
	}
	if update.MaxPrinters != nil {
		il.SetMaxPrinters(*update.MaxPrinters)
	}
	if update.MaxHoppers != nil {
		il.SetMaxHoppers(*update.MaxHoppers)
	}
	if update.TransferSpeed != nil {
		il.SetTransferSpeed(*update.TransferSpeed)
	}
	if update.GenerationSpeed != nil {
		il.SetGenerationSpeed(*update.GenerationSpeed)
	}
	return nil
}

// SetLevel records a recomputed island level and pushes it to the leaderboard.
// The world plugin owns level calculation; this endpoint just stores the result.
func (s *IslandService) SetLevel(ctx context.Context, islandID string, level int64) error {
	il, err := s.liveIsland(islandID)
	if err != nil {
		return err
	}
	il.SetLevel(level)
	if err := s.leaderboard.SetIslandLevel(ctx, islandID, il.Level()); err != nil {
		log.Printf("WARN: IslandService: Failed to push level of island %s to leaderboard: %v", islandID, err)
	}
	return nil
}
