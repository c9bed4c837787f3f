// player/service/player_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/skyward-mc/skyblock-services/player/mojang"
	"github.com/skyward-mc/skyblock-services/player/store"
	"github.com/skyward-mc/skyblock-services/shared/models"
)

// Custom Errors for clear communication to API layer
var (
	ErrProfileNotFound   = fmt.Errorf("player profile not found")
	ErrAlreadyOwnsIsland = fmt.Errorf("player already owns an island")
	ErrInvalidIslandUUID = fmt.Errorf("island uuid must not be empty")
)

// PlayerService encapsulates the business logic for skyblock player profiles.
type PlayerService struct {
	playerStore   *store.PlayerStore
	mojangService *mojang.MojangService
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(ps *store.PlayerStore, ms *mojang.MojangService) *PlayerService {
	return &PlayerService{
		playerStore:   ps,
		mojangService: ms,
	}
}

// GetOrCreateProfile returns a player's profile, creating a fully-defaulted one
// on first sight. Profile creation is implicit: the first lookup for an unknown
// UUID is the moment the player enters the system.
func (ps *PlayerService) GetOrCreateProfile(ctx context.Context, uuid string) (*models.SkyblockPlayer, error) {
	profile, err := ps.playerStore.GetPlayerByUUID(ctx, uuid)
	if err == nil {
		// Refresh last seen off the request path.
		go func() {
			updateCtx, updateCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer updateCancel()
			if err := ps.playerStore.UpdateLastSeen(updateCtx, uuid); err != nil {
				log.Printf("WARN: Failed to update last seen for player profile %s: %v", uuid, err)
			}
		}()
		return profile, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("service failed to get player profile: %w", err)
	}

	newProfile := models.NewSkyblockPlayer(uuid)
	if err := ps.playerStore.CreatePlayer(ctx, newProfile); err != nil {
		// A concurrent first lookup may have won the insert race.
		if strings.Contains(err.Error(), "already exists") {
			return ps.playerStore.GetPlayerByUUID(ctx, uuid)
		}
		return nil, fmt.Errorf("service failed to create player profile: %w", err)
	}
	log.Printf("INFO: Created profile for player %s on first lookup.", uuid)

	// Asynchronously fetch username for the newly created profile. The filler
	// job will retry if this attempt fails.
	go func(uuid string) {
		mojangCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		username, mojangErr := ps.mojangService.GetUsernameByUUID(mojangCtx, uuid)
		if mojangErr != nil {
			log.Printf("WARN: Failed to fetch username from Mojang for UUID %s: %v", uuid, mojangErr)
			return
		}

		updateCtx, updateCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer updateCancel()

		if updateErr := ps.playerStore.UpdateUsername(updateCtx, uuid, username); updateErr != nil {
			log.Printf("WARN: Failed to update username for player profile %s in DB: %v", uuid, updateErr)
		} else {
			log.Printf("INFO: Successfully updated username for player profile %s to %s.", uuid, username)
		}
	}(uuid)

	return newProfile, nil
}

// SetIsland links a player to the island they now own. A player owns at most
// one island at a time.
func (ps *PlayerService) SetIsland(ctx context.Context, uuid, islandUUID string) error {
	if islandUUID == "" {
		return ErrInvalidIslandUUID
	}

	profile, err := ps.GetOrCreateProfile(ctx, uuid)
	if err != nil {
		return err
	}
	if profile.OwnsIsland() && profile.IslandUUID != islandUUID {
		return ErrAlreadyOwnsIsland
	}

	if err := ps.playerStore.UpdateIsland(ctx, uuid, islandUUID); err != nil {
		if isNotFoundStoreError(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("service failed to set island: %w", err)
	}
	return nil
}

// ClearIsland unlinks a player from their island and bumps their reset counter.
func (ps *PlayerService) ClearIsland(ctx context.Context, uuid string) error {
	if err := ps.playerStore.ClearIsland(ctx, uuid); err != nil {
		if isNotFoundStoreError(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("service failed to clear island: %w", err)
	}
	return nil
}

// AddMembership records that the player is a member of the given island.
func (ps *PlayerService) AddMembership(ctx context.Context, uuid, islandUUID string) error {
	if islandUUID == "" {
		return ErrInvalidIslandUUID
	}

	// Membership may be granted to a player who never touched this service.
	if _, err := ps.GetOrCreateProfile(ctx, uuid); err != nil {
		return err
	}

	if err := ps.playerStore.AddMembership(ctx, uuid, islandUUID); err != nil {
		if isNotFoundStoreError(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("service failed to add membership: %w", err)
	}
	return nil
}

// RemoveMembership drops the island from the player's membership list.
func (ps *PlayerService) RemoveMembership(ctx context.Context, uuid, islandUUID string) error {
	if err := ps.playerStore.RemoveMembership(ctx, uuid, islandUUID); err != nil {
		if isNotFoundStoreError(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("service failed to remove membership: %w", err)
	}
	return nil
}

// UpdateLastSeen refreshes a player's last seen timestamp.
func (ps *PlayerService) UpdateLastSeen(ctx context.Context, uuid string) error {
	if err := ps.playerStore.UpdateLastSeen(ctx, uuid); err != nil {
		if isNotFoundStoreError(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("service failed to update last seen: %w", err)
	}
	return nil
}

// SetSideData writes one key in the player's free-form side data map.
func (ps *PlayerService) SetSideData(ctx context.Context, uuid, key, value string) error {
	if key == "" {
		return fmt.Errorf("side data key must not be empty")
	}
	if err := ps.playerStore.SetSideData(ctx, uuid, key, value); err != nil {
		if isNotFoundStoreError(err) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("service failed to set side data: %w", err)
	}
	return nil
}

// isNotFoundStoreError matches the store's "player %s not found for ..." errors.
func isNotFoundStoreError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found for")
}
