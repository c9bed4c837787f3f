// player/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/skyward-mc/skyblock-services/player/service"
	"github.com/skyward-mc/skyblock-services/shared/api"
)

// PlayerAPIHandlers holds references to the services that handle business logic.
type PlayerAPIHandlers struct {
	PlayerService *service.PlayerService
}

// NewPlayerAPIHandlers is the constructor for the API handlers.
func NewPlayerAPIHandlers(ps *service.PlayerService) *PlayerAPIHandlers {
	return &PlayerAPIHandlers{
		PlayerService: ps,
	}
}

// --- Request/Response DTOs (Data Transfer Objects) ---

type SetIslandRequest struct {
	IslandUUID string `json:"islandUuid"`
}

type MembershipRequest struct {
	IslandUUID string `json:"islandUuid"`
}

type SideDataRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// --- Handler Methods ---

// GetProfileHandler returns a player's profile, creating it on first lookup.
// GET /profiles/{uuid}
func (pah *PlayerAPIHandlers) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	playerUUID := mux.Vars(r)["uuid"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	profile, err := pah.PlayerService.GetOrCreateProfile(ctx, playerUUID)
	if err != nil {
		log.Printf("ERROR: Failed to get or create profile %s: %v", playerUUID, err)
		api.WriteInternalServerError(w, "Failed to retrieve profile")
		return
	}
	api.WriteJSON(w, http.StatusOK, profile)
}

// SetIslandHandler links a profile to the island it now owns.
// PUT /profiles/{uuid}/island
func (pah *PlayerAPIHandlers) SetIslandHandler(w http.ResponseWriter, r *http.Request) {
	playerUUID := mux.Vars(r)["uuid"]

	var req SetIslandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := pah.PlayerService.SetIsland(ctx, playerUUID, req.IslandUUID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvalidIslandUUID):
		api.WriteBadRequest(w, err.Error())
	case errors.Is(err, service.ErrAlreadyOwnsIsland):
		api.WriteConflict(w, err.Error())
	case errors.Is(err, service.ErrProfileNotFound):
		api.WriteNotFound(w, err.Error())
	default:
		log.Printf("ERROR: Failed to set island for profile %s: %v", playerUUID, err)
		api.WriteInternalServerError(w, "Failed to set island")
	}
}

// ClearIslandHandler unlinks a profile from its island.
// DELETE /profiles/{uuid}/island
func (pah *PlayerAPIHandlers) ClearIslandHandler(w http.ResponseWriter, r *http.Request) {
	playerUUID := mux.Vars(r)["uuid"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := pah.PlayerService.ClearIsland(ctx, playerUUID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrProfileNotFound):
		api.WriteNotFound(w, err.Error())
	default:
		log.Printf("ERROR: Failed to clear island for profile %s: %v", playerUUID, err)
		api.WriteInternalServerError(w, "Failed to clear island")
	}
}

// AddMembershipHandler records an island membership on a profile.
// POST /profiles/{uuid}/memberships
func (pah *PlayerAPIHandlers) AddMembershipHandler(w http.ResponseWriter, r *http.Request) {
	playerUUID := mux.Vars(r)["uuid"]

	var req MembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := pah.PlayerService.AddMembership(ctx, playerUUID, req.IslandUUID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvalidIslandUUID):
		api.WriteBadRequest(w, err.Error())
	case errors.Is(err, service.ErrProfileNotFound):
		api.WriteNotFound(w, err.Error())
	default:
		log.Printf("ERROR: Failed to add membership for profile %s: %v", playerUUID, err)
		api.WriteInternalServerError(w, "Failed to add membership")
	}
}

// RemoveMembershipHandler drops an island membership from a profile.
// DELETE /profiles/{uuid}/memberships/{islandUuid}
func (pah *PlayerAPIHandlers) RemoveMembershipHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	playerUUID := vars["uuid"]
	islandUUID := vars["islandUuid"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := pah.PlayerService.RemoveMembership(ctx, playerUUID, islandUUID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrProfileNotFound):
		api.WriteNotFound(w, err.Error())
	default:
		log.Printf("ERROR: Failed to remove membership for profile %s: %v", playerUUID, err)
		api.WriteInternalServerError(w, "Failed to remove membership")
	}
}

// UpdateLastSeenHandler refreshes the profile's last seen timestamp.
// POST /profiles/{uuid}/lastseen
func (pah *PlayerAPIHandlers) UpdateLastSeenHandler(w http.ResponseWriter, r *http.Request) {
	playerUUID := mux.Vars(r)["uuid"]

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := pah.PlayerService.UpdateLastSeen(ctx, playerUUID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrProfileNotFound):
		api.WriteNotFound(w, err.Error())
	default:
		log.Printf("ERROR: Failed to update last seen for profile %s: %v", playerUUID, err)
		api.WriteInternalServerError(w, "Failed to update last seen")
	}
}

// SetSideDataHandler writes one key in the profile's side data map.
// PUT /profiles/{uuid}/sidedata
func (pah *PlayerAPIHandlers) SetSideDataHandler(w http.ResponseWriter, r *http.Request) {
	playerUUID := mux.Vars(r)["uuid"]

	var req SideDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Key == "" {
		api.WriteBadRequest(w, "Side data key is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := pah.PlayerService.SetSideData(ctx, playerUUID, req.Key, req.Value)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrProfileNotFound):
		api.WriteNotFound(w, err.Error())
	default:
		log.Printf("ERROR: Failed to set side data for profile %s: %v", playerUUID, err)
		api.WriteInternalServerError(w, "Failed to set side data")
	}
}

// RegisterRoutes registers all API endpoints for the Player Service.
// This method is called from main.go to set up the HTTP routes.
func (pah *PlayerAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/profiles/{uuid}", pah.GetProfileHandler).Methods("GET")
	router.HandleFunc("/profiles/{uuid}/island", pah.SetIslandHandler).Methods("PUT")
	router.HandleFunc("/profiles/{uuid}/island", pah.ClearIslandHandler).Methods("DELETE")
	router.HandleFunc("/profiles/{uuid}/memberships", pah.AddMembershipHandler).Methods("POST")
	router.HandleFunc("/profiles/{uuid}/memberships/{islandUuid}", pah.RemoveMembershipHandler).Methods("DELETE")
	router.HandleFunc("/profiles/{uuid}/lastseen", pah.UpdateLastSeenHandler).Methods("POST")
	router.HandleFunc("/profiles/{uuid}/sidedata", pah.SetSideDataHandler).Methods("PUT")
}
