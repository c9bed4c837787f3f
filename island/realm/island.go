// island/realm/island.go
package realm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/skyward-mc/skyblock-services/shared/models"
)

// Errors returned by aggregate mutations. Handlers map these onto HTTP statuses.
var (
	ErrOwnerImplicit      = fmt.Errorf("island owner cannot be added as member or visitor")
	ErrNegativeAmount     = fmt.Errorf("amount must be non-negative")
	ErrDeviceCapacity     = fmt.Errorf("device capacity reached")
	ErrCoordinateOccupied = fmt.Errorf("coordinates already occupied by another device")
	ErrDeviceNotFound     = fmt.Errorf("device not found")
	ErrWarpNameTaken      = fmt.Errorf("warp name already taken")
	ErrWarpNotFound       = fmt.Errorf("warp not found")
	ErrUnknownFlag        = fmt.Errorf("unknown island flag")
	ErrAlreadyPromoted    = fmt.Errorf("island is already promoted")
)

// ItemSink receives the physical output of deposit boxes. Deliver returns false
// when the destination is at capacity; the caller drops the batch and still
// advances the device's due-time.
type ItemSink interface {
	Deliver(islandID, ownerUUID string, items int) bool
}

// Island is the live, lock-guarded aggregate built around a persisted island
// record. Every mutation and the per-device processing hold the island's own
// lock for their full duration, so a scheduler tick and a player action on the
// same island always serialize. No I/O happens inside the lock; persistence
// works off snapshots taken with SnapshotIfDirty.
type Island struct {
	mu    sync.Mutex
	data  *models.Island
	dirty bool
}

// NewIsland wraps a persisted record into a live aggregate. The record is
// normalized first so the aggregate never observes partial state.
func NewIsland(data *models.Island) *Island {
	data.Normalize()
	return &Island{data: data}
}

// ID returns the island's UUID. Immutable, safe without the lock.
func (il *Island) ID() string {
	return il.data.UUID
}

// OwnerUUID returns the owning player's UUID. Immutable, safe without the lock.
func (il *Island) OwnerUUID() string {
	return il.data.OwnerUUID
}

// touch must be called with the lock held.
func (il *Island) touch() {
	now := time.Now()
	il.data.LastActivityAt = &now
	il.dirty = true
}

// --- membership ---

// AddMember adds a player to the member set, removing them from the visitor set
// first since membership supersedes visitor status. The owner is never a member.
func (il *Island) AddMember(playerUUID string) error {
	il.mu.Lock()
	defer il.mu.Unlock()

	if playerUUID == il.data.OwnerUUID {
		return ErrOwnerImplicit
	}
	il.data.Visitors = removeString(il.data.Visitors, playerUUID)
	if !containsString(il.data.Members, playerUUID) {
		il.data.Members = append(il.data.Members, playerUUID)
	}
	il.touch()
	return nil
}

// RemoveMember removes a player from the member set. Returns false if the player
// was not a member.
func (il *Island) RemoveMember(playerUUID string) bool {
	il.mu.Lock()
	defer il.mu.Unlock()

	if !containsString(il.data.Members, playerUUID) {
		return false
	}
	il.data.Members = removeString(il.data.Members, playerUUID)
	il.touch()
	return true
}

// AddVisitor adds a player to the visitor set. A no-op when the player is
// already a member; the owner is never a visitor.
func (il *Island) AddVisitor(playerUUID string) error {
	il.mu.Lock()
	defer il.mu.Unlock()

	if playerUUID == il.data.OwnerUUID {
		return ErrOwnerImplicit
	}
	if containsString(il.data.Members, playerUUID) {
		return nil
	}
	if !containsString(il.data.Visitors, playerUUID) {
		il.data.Visitors = append(il.data.Visitors, playerUUID)
	}
	il.touch()
	return nil
}

// RemoveVisitor removes a player from the visitor set. Returns false if the
// player was not a visitor.
func (il *Island) RemoveVisitor(playerUUID string) bool {
	il.mu.Lock()
	defer il.mu.Unlock()

	if !containsString(il.data.Visitors, playerUUID) {
		return false
	}
	il.data.Visitors = removeString(il.data.Visitors, playerUUID)
	il.touch()
	return true
}

// IsOwner reports whether the player owns this island.
func (il *Island) IsOwner(playerUUID string) bool {
	return il.data.OwnerUUID == playerUUID
}

// IsMember reports whether the player is in the member set.
func (il *Island) IsMember(playerUUID string) bool {
	il.mu.Lock()
	defer il.mu.Unlock()
	return containsString(il.data.Members, playerUUID)
}

// IsMemberOrOwner reports whether the player is the owner or a member.
func (il *Island) IsMemberOrOwner(playerUUID string) bool {
	if il.data.OwnerUUID == playerUUID {
		return true
	}
	return il.IsMember(playerUUID)
}

// --- flags ---

// GetFlag returns the value of a flag. Unknown flags read as false.
func (il *Island) GetFlag(flag models.IslandFlag) bool {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.data.Flags[flag]
}

// SetFlag sets a flag to the given value. Only defined flags are accepted.
func (il *Island) SetFlag(flag models.IslandFlag, value bool) error {
	if !models.IsValidFlag(flag) {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, flag)
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.Flags[flag] = value
	il.touch()
	return nil
}

// --- bank ---

// Bank returns the current bank balance.
func (il *Island) Bank() float64 {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.data.Bank
}

// AddToBank credits the bank. Amounts must be non-negative; crediting never
// fails. All payouts route through here, never through the balance field.
func (il *Island) AddToBank(amount float64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.Bank += amount
	il.touch()
	return nil
}

// RemoveFromBank debits the bank. Returns false with no mutation when the
// balance cannot cover the amount or the amount is negative. This is the single
// funds-conservation choke point for all withdrawals.
func (il *Island) RemoveFromBank(amount float64) bool {
	if amount < 0 {
		return false
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	if amount > il.data.Bank {
		return false
	}
	il.data.Bank -= amount
	il.touch()
	return true
}

// --- devices ---

func (il *Island) deviceCollection(kind models.DeviceKind) map[string]*models.Device {
	if kind == models.DeviceKindDepositBox {
		return il.data.DepositBoxes
	}
	return il.data.Printers
}

func (il *Island) deviceCapacity(kind models.DeviceKind) int {
	if kind == models.DeviceKindDepositBox {
		return il.data.MaxDepositBoxes
	}
	return il.data.MaxPrinters
}

// CanPlaceDevice reports whether the island has room for another device of the
// given kind.
func (il *Island) CanPlaceDevice(kind models.DeviceKind) bool {
	il.mu.Lock()
	defer il.mu.Unlock()
	return len(il.deviceCollection(kind)) < il.deviceCapacity(kind)
}

// DeviceCount returns the current count of devices of the given kind.
func (il *Island) DeviceCount(kind models.DeviceKind) int {
	il.mu.Lock()
	defer il.mu.Unlock()
	return len(il.deviceCollection(kind))
}

// AddDevice places a device, checking capacity and coordinate uniqueness under
// the same lock so a concurrent placement cannot slip past either check.
func (il *Island) AddDevice(d *models.Device) error {
	d.ClampTier()

	il.mu.Lock()
	defer il.mu.Unlock()

	coll := il.deviceCollection(d.Kind)
	if len(coll) >= il.deviceCapacity(d.Kind) {
		return fmt.Errorf("%w: %s limit is %d", ErrDeviceCapacity, d.Kind, il.deviceCapacity(d.Kind))
	}
	for _, existing := range il.data.DepositBoxes {
		if existing.X == d.X && existing.Y == d.Y && existing.Z == d.Z {
			return ErrCoordinateOccupied
		}
	}
	for _, existing := range il.data.Printers {
		if existing.X == d.X && existing.Y == d.Y && existing.Z == d.Z {
			return ErrCoordinateOccupied
		}
	}
	coll[d.ID] = d
	il.touch()
	return nil
}

// RemoveDevice removes a device by id, searching both collections. Returns the
// removed device so the caller can settle refunds or drops.
func (il *Island) RemoveDevice(deviceID string) (*models.Device, bool) {
	il.mu.Lock()
	defer il.mu.Unlock()

	if d, ok := il.data.DepositBoxes[deviceID]; ok {
		delete(il.data.DepositBoxes, deviceID)
		il.touch()
		return d, true
	}
	if d, ok := il.data.Printers[deviceID]; ok {
		delete(il.data.Printers, deviceID)
		il.touch()
		return d, true
	}
	return nil, false
}

// Device returns a copy of the device with the given id.
func (il *Island) Device(deviceID string) (models.Device, bool) {
	il.mu.Lock()
	defer il.mu.Unlock()

	if d, ok := il.data.DepositBoxes[deviceID]; ok {
		return *d, true
	}
	if d, ok := il.data.Printers[deviceID]; ok {
		return *d, true
	}
	return models.Device{}, false
}

// SetDeviceTier upgrades a device to the given tier, clamped to the valid range.
func (il *Island) SetDeviceTier(deviceID string, tier int) error {
	il.mu.Lock()
	defer il.mu.Unlock()

	d, ok := il.data.DepositBoxes[deviceID]
	if !ok {
		d, ok = il.data.Printers[deviceID]
	}
	if !ok {
		return ErrDeviceNotFound
	}
	d.Tier = tier
	d.ClampTier()
	il.touch()
	return nil
}

// --- capacity setters, clamped to system floors ---

// SetMaxDepositBoxes raises or lowers the deposit box ceiling, never below the
// system floor. Under-range requests are raised to the floor, not rejected.
func (il *Island) SetMaxDepositBoxes(n int) {
	if n < models.MinMaxDepositBoxes {
		n = models.MinMaxDepositBoxes
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.MaxDepositBoxes = n
	il.touch()
}

// SetMaxPrinters raises or lowers the printer ceiling, never below the floor.
func (il *Island) SetMaxPrinters(n int) {
	if n < models.MinMaxPrinters {
		n = models.MinMaxPrinters
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.MaxPrinters = n
	il.touch()
}

// SetMaxHoppers raises or lowers the hopper ceiling, never below the floor.
func (il *Island) SetMaxHoppers(n int) {
	if n < models.MinMaxHoppers {
		n = models.MinMaxHoppers
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.MaxHoppers = n
	il.touch()
}

// SetTransferSpeed sets the transfer-speed multiplier, never below 1.0.
func (il *Island) SetTransferSpeed(multiplier float64) {
	if multiplier < models.MinSpeedMultiplier {
		multiplier = models.MinSpeedMultiplier
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.TransferSpeed = multiplier
	il.touch()
}

// SetGenerationSpeed sets the generation-speed multiplier, never below 1.0. The
// multiplier divides every device's effective processing interval.
func (il *Island) SetGenerationSpeed(multiplier float64) {
	if multiplier < models.MinSpeedMultiplier {
		multiplier = models.MinSpeedMultiplier
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.GenerationSpeed = multiplier
	il.touch()
}

// Level returns the island's level.
func (il *Island) Level() int64 {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.data.Level
}

// SetLevel sets the island's level, never below the starting level.
func (il *Island) SetLevel(level int64) {
	if level < models.DefaultIslandLevel {
		level = models.DefaultIslandLevel
	}
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.Level = level
	il.touch()
}

// --- warps ---

// WarpCount returns how many warps the island currently hosts.
func (il *Island) WarpCount() int {
	il.mu.Lock()
	defer il.mu.Unlock()
	return len(il.data.Warps)
}

// AddWarp adds a warp. Names are unique case-insensitively within the island;
// quota enforcement happens in the service, which also consults the permission
// authority for bonus slots.
func (il *Island) AddWarp(w *models.Warp) error {
	il.mu.Lock()
	defer il.mu.Unlock()

	for _, existing := range il.data.Warps {
		if strings.EqualFold(existing.Name, w.Name) {
			return fmt.Errorf("%w: %s", ErrWarpNameTaken, w.Name)
		}
	}
	il.data.Warps[w.ID] = w
	il.touch()
	return nil
}

// RemoveWarpByName removes the warp with the given name (case-insensitive).
func (il *Island) RemoveWarpByName(name string) bool {
	il.mu.Lock()
	defer il.mu.Unlock()

	for id, w := range il.data.Warps {
		if strings.EqualFold(w.Name, name) {
			delete(il.data.Warps, id)
			il.touch()
			return true
		}
	}
	return false
}

// WarpByName returns a copy of the warp with the given name (case-insensitive).
func (il *Island) WarpByName(name string) (models.Warp, bool) {
	il.mu.Lock()
	defer il.mu.Unlock()

	for _, w := range il.data.Warps {
		if strings.EqualFold(w.Name, name) {
			return *w, true
		}
	}
	return models.Warp{}, false
}

// VisitWarp increments the warp's visit counter and returns its target location.
func (il *Island) VisitWarp(name string) (models.Location, bool) {
	il.mu.Lock()
	defer il.mu.Unlock()

	for _, w := range il.data.Warps {
		if strings.EqualFold(w.Name, name) {
			w.Visits++
			il.touch()
			return w.Target, true
		}
	}
	return models.Location{}, false
}

// WarpsOpen reports whether visitors may use the island's warps.
func (il *Island) WarpsOpen() bool {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.data.WarpsOpen
}

// SetWarpsOpen toggles warp visibility. Owner-only; the service checks.
func (il *Island) SetWarpsOpen(open bool) {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.data.WarpsOpen = open
	il.touch()
}

// --- promotion ---

// IsPromoted reports whether the island's promotion window covers now.
func (il *Island) IsPromoted(now time.Time) bool {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.data.PromotedUntil != nil && now.Before(*il.data.PromotedUntil)
}

// StartPromotion opens the island's warps and schedules the promotion expiry.
// Fails without mutation when a promotion is already running, so the caller can
// refuse before charging anything.
func (il *Island) StartPromotion(now, until time.Time) error {
	il.mu.Lock()
	defer il.mu.Unlock()

	if il.data.PromotedUntil != nil && now.Before(*il.data.PromotedUntil) {
		return ErrAlreadyPromoted
	}
	il.data.WarpsOpen = true
	il.data.PromotedUntil = &until
	il.touch()
	return nil
}

// ClearExpiredPromotion drops an elapsed promotion window, reverting the island
// to plain open. Returns true when a window was cleared.
func (il *Island) ClearExpiredPromotion(now time.Time) bool {
	il.mu.Lock()
	defer il.mu.Unlock()

	if il.data.PromotedUntil == nil || now.Before(*il.data.PromotedUntil) {
		return false
	}
	il.data.PromotedUntil = nil
	il.touch()
	return true
}

// --- generation ---

// TickResult summarizes one island's pass of the generation scheduler.
type TickResult struct {
	BankCredited   float64
	ItemsDelivered int
	ItemsDropped   int
}

// ProcessDueDevices runs one generation pass over the island's devices. The
// whole read-check-then-write runs under the island lock, so a device observed
// as due is stamped before any other pass can see it, giving exactly one credit
// per interval. Deposit box output goes to the sink; when the sink refuses a
// batch the items are dropped and the due-time still advances, trading lossless
// accumulation for steady-state throughput.
func (il *Island) ProcessDueDevices(now time.Time, sink ItemSink) TickResult {
	il.mu.Lock()
	defer il.mu.Unlock()

	var res TickResult
	speed := il.data.GenerationSpeed

	for _, d := range il.data.Printers {
		if !d.DueForProcessing(now, speed) {
			continue
		}
		il.data.Bank += d.Payout()
		res.BankCredited += d.Payout()
		d.MarkProcessed(now)
		il.dirty = true
	}

	for _, d := range il.data.DepositBoxes {
		if !d.DueForProcessing(now, speed) {
			continue
		}
		items := d.ItemsPerInterval()
		if sink != nil && sink.Deliver(il.data.UUID, d.OwnerUUID, items) {
			res.ItemsDelivered += items
		} else {
			res.ItemsDropped += items
		}
		d.MarkProcessed(now)
		il.dirty = true
	}

	return res
}

// --- persistence snapshots ---

// Snapshot returns a deep copy of the island record for read paths and saves.
func (il *Island) Snapshot() *models.Island {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.data.Clone()
}

// SnapshotIfDirty returns a deep copy and clears the dirty flag when unsaved
// changes exist. The syncer persists off this snapshot without holding the lock.
func (il *Island) SnapshotIfDirty() (*models.Island, bool) {
	il.mu.Lock()
	defer il.mu.Unlock()
	if !il.dirty {
		return nil, false
	}
	il.dirty = false
	return il.data.Clone(), true
}

// MarkDirty flags the island as needing persistence, used when a save fails and
// the snapshot must be retaken on the next pass.
func (il *Island) MarkDirty() {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.dirty = true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
