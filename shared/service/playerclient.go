// shared/service/playerclient.go
package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/skyward-mc/skyblock-services/shared/api"
	"github.com/skyward-mc/skyblock-services/shared/models"
)

// PlayerServiceClient is a client for the Player Data Service.
// It uses an internal apiClient to make HTTP requests to the Player Service.
type PlayerServiceClient struct {
	apiClient *api.Client
}

// NewPlayerClient creates a new Player Data Service client.
// It takes the base URL of the Player Service as an argument.
func NewPlayerClient(baseURL string) *PlayerServiceClient {
	return &PlayerServiceClient{
		apiClient: api.NewClient(baseURL, api.NewDefaultHTTPClient()),
	}
}

// --- Request/Response DTOs for Player Service Communication ---
// These mirror the DTOs defined in player/api/handler.go for consistency.

// SetIslandRequest is the structure for assigning an owned island to a profile.
type SetIslandRequest struct {
	IslandUUID string `json:"islandUuid"`
}

// MembershipRequest is the structure for adding an island membership to a profile.
type MembershipRequest struct {
	IslandUUID string `json:"islandUuid"`
}

// --- Client Methods for Player Service API Endpoints ---

// GetProfile fetches a player's profile by UUID. The player service creates the
// profile on first lookup, so this only fails on transport or validation errors.
func (c *PlayerServiceClient) GetProfile(ctx context.Context, playerUUID string) (*models.SkyblockPlayer, error) {
	parsedUUID, err := uuid.Parse(playerUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid player UUID format: %w", err)
	}

	profile := &models.SkyblockPlayer{}
	err = c.apiClient.Get(ctx, fmt.Sprintf("/profiles/%s", parsedUUID.String()), profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get player profile %s from Player Service: %w", playerUUID, err)
	}
	return profile, nil
}

// SetIsland records the given island as the player's owned island.
// It calls the Player Service's PUT /profiles/{uuid}/island endpoint.
func (c *PlayerServiceClient) SetIsland(ctx context.Context, playerUUID, islandUUID string) error {
	parsedUUID, err := uuid.Parse(playerUUID)
	if err != nil {
		return fmt.Errorf("invalid player UUID format: %w", err)
	}

	reqData := SetIslandRequest{IslandUUID: islandUUID}
	err = c.apiClient.Put(ctx, fmt.Sprintf("/profiles/%s/island", parsedUUID.String()), reqData, nil)
	if err != nil {
		if apiErr, ok := err.(*api.HTTPError); ok && apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: player profile %s", api.ErrNotFound, playerUUID)
		}
		return fmt.Errorf("failed to set island for player %s in Player Service: %w", playerUUID, err)
	}
	return nil
}

// ClearIsland removes the player's owned-island reference. The player service
// bumps the profile's reset counter as part of this call.
func (c *PlayerServiceClient) ClearIsland(ctx context.Context, playerUUID string) error {
	parsedUUID, err := uuid.Parse(playerUUID)
	if err != nil {
		return fmt.Errorf("invalid player UUID format: %w", err)
	}

	err = c.apiClient.Delete(ctx, fmt.Sprintf("/profiles/%s/island", parsedUUID.String()))
	if err != nil {
		if apiErr, ok := err.(*api.HTTPError); ok && apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: player profile %s", api.ErrNotFound, playerUUID)
		}
		return fmt.Errorf("failed to clear island for player %s in Player Service: %w", playerUUID, err)
	}
	return nil
}

// AddMembership records that the player joined the given island as a member.
func (c *PlayerServiceClient) AddMembership(ctx context.Context, playerUUID, islandUUID string) error {
	parsedUUID, err := uuid.Parse(playerUUID)
	if err != nil {
		return fmt.Errorf("invalid player UUID format: %w", err)
	}

	reqData := MembershipRequest{IslandUUID: islandUUID}
	err = c.apiClient.Post(ctx, fmt.Sprintf("/profiles/%s/memberships", parsedUUID.String()), reqData, nil)
	if err != nil {
		return fmt.Errorf("failed to add membership for player %s in Player Service: %w", playerUUID, err)
	}
	return nil
}

// RemoveMembership records that the player left (or was removed from) the given island.
func (c *PlayerServiceClient) RemoveMembership(ctx context.Context, playerUUID, islandUUID string) error {
	parsedUUID, err := uuid.Parse(playerUUID)
	if err != nil {
		return fmt.Errorf("invalid player UUID format: %w", err)
	}

	err = c.apiClient.Delete(ctx, fmt.Sprintf("/profiles/%s/memberships/%s", parsedUUID.String(), islandUUID))
	if err != nil {
		return fmt.Errorf("failed to remove membership for player %s in Player Service: %w", playerUUID, err)
	}
	return nil
}
