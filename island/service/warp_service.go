// island/service/warp_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/skyward-mc/skyblock-services/island/realm"
	"github.com/skyward-mc/skyblock-services/shared/models"
)

// Warp and promotion errors.
var (
	ErrWarpQuotaReached = fmt.Errorf("warp quota reached for this island level")
	ErrWarpsClosed      = fmt.Errorf("this island's warps are closed to visitors")
	ErrInvalidPromotion = fmt.Errorf("promotion length must be between 1 and 30 days")
	ErrAlreadyPromoted  = fmt.Errorf("island is already promoted")
	ErrWarpNotFound     = realm.ErrWarpNotFound
)

const maxPromotionDays = 30

// PromotionCost returns the wallet cost of promoting an island for the given
// number of days. Monotonically increasing: each additional day costs 10% more
// than base, so long promotions are progressively more expensive.
func PromotionCost(days int) float64 {
	if days > maxPromotionDays {
		days = maxPromotionDays
	}
	d := float64(days)
	return 2500 * d * (1 + 0.1*(d-1))
}

// CreateWarp adds a named warp. Owner-only, subject to the level-based quota
// (plus one slot granted by the extra-warp permission). The quota binds at
// creation time only, never retroactively when a level drops.
func (s *IslandService) CreateWarp(ctx context.Context, islandID, requesterUUID, name, description string, target models.Location, public bool) (*models.Warp, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return nil, err
	}

	extraSlot, err := s.permissions.HasPermission(ctx, requesterUUID, string(models.PermissionExtraWarp))
	if err != nil {
		log.Printf("WARN: IslandService: Failed to check extra warp permission for %s, assuming none: %v", requesterUUID, err)
		extraSlot = false
	}

	quota := models.WarpQuota(il.Level(), extraSlot)
	if il.WarpCount() >= quota {
		return nil, fmt.Errorf("%w: quota is %d at level %d", ErrWarpQuotaReached, quota, il.Level())
	}

	now := s.now()
	warp := &models.Warp{
		ID:          uuid.New().String(),
		IslandID:    islandID,
		Name:        name,
		Description: description,
		Target:      target,
		Public:      public,
		CreatedAt:   &now,
	}
	if err := il.AddWarp(warp); err != nil {
		return nil, err
	}
	return warp, nil
}

// DeleteWarp removes a warp by name. Owner-only.
func (s *IslandService) DeleteWarp(ctx context.Context, islandID, requesterUUID, name string) error {
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}
	if !il.RemoveWarpByName(name) {
		return fmt.Errorf("%w: %s", ErrWarpNotFound, name)
	}
	return nil
}

// UseWarp resolves a warp to its target location, bumping the visit counter and
// recording the player as a visitor. Visitors are refused while the island's
// warps are closed; members and the owner always pass.
func (s *IslandService) UseWarp(ctx context.Context, islandID, playerUUID, name string) (models.Location, error) {
	il, err := s.liveIsland(islandID)
	if err != nil {
		return models.Location{}, err
	}

	if !il.IsMemberOrOwner(playerUUID) {
		if !il.WarpsOpen() {
			return models.Location{}, ErrWarpsClosed
		}
		if err := il.AddVisitor(playerUUID); err != nil {
			log.Printf("WARN: IslandService: Failed to record visitor %s on island %s: %v", playerUUID, islandID, err)
		}
	}

	target, ok := il.VisitWarp(name)
	if !ok {
		return models.Location{}, fmt.Errorf("%w: %s", ErrWarpNotFound, name)
	}
	return target, nil
}

// SetWarpsOpen toggles the island's warps between open and closed. Owner-only.
func (s *IslandService) SetWarpsOpen(ctx context.Context, islandID, requesterUUID string, open bool) error {
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return err
	}
	il.SetWarpsOpen(open)
	return nil
}

// Promote buys a time-boxed visibility boost for the island's warps,
// implicitly opening them. Fails before charging when a promotion is already
// running; the cost is a monotonically increasing function of days, capped at
// 30. Returns the charged amount.
func (s *IslandService) Promote(ctx context.Context, islandID, requesterUUID string, days int) (float64, error) {
	if days < 1 {
		return 0, ErrInvalidPromotion
	}
	if days > maxPromotionDays {
		days = maxPromotionDays
	}
	il, err := s.requireOwner(islandID, requesterUUID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	if il.IsPromoted(now) {
		// Refuse before touching the wallet: an already-promoted island never
		// charges anything.
		return 0, ErrAlreadyPromoted
	}

	cost := PromotionCost(days)
	if err := s.economy.RemoveBalance(ctx, requesterUUID, cost); err != nil {
		return 0, fmt.Errorf("%w: promotion costs %s", ErrInsufficientFunds, s.economy.FormatMoney(cost))
	}

	until := now.Add(time.Duration(days) * 24 * time.Hour)
	if err := il.StartPromotion(now, until); err != nil {
		// Lost a race with a concurrent promotion; give the money back.
		if refundErr := s.economy.AddBalance(ctx, requesterUUID, cost); refundErr != nil {
			log.Printf("ERROR: IslandService: Failed to refund promotion cost %.2f to %s: %v", cost, requesterUUID, refundErr)
		}
		return 0, ErrAlreadyPromoted
	}

	s.notifier.Notify(requesterUUID, fmt.Sprintf("Island promoted for %d days (%s).", days, s.economy.FormatMoney(cost)))
	return cost, nil
}
