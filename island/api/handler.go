// island/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/skyward-mc/skyblock-services/island/realm"
	"github.com/skyward-mc/skyblock-services/island/service"
	"github.com/skyward-mc/skyblock-services/shared/api"
	"github.com/skyward-mc/skyblock-services/shared/models"
)

// IslandAPIHandlers holds references to the services that handle business logic.
type IslandAPIHandlers struct {
	IslandService *service.IslandService
}

// NewIslandAPIHandlers is the constructor for the API handlers.
func NewIslandAPIHandlers(is *service.IslandService) *IslandAPIHandlers {
	return &IslandAPIHandlers{
		IslandService: is,
	}
}

// --- Request/Response DTOs (Data Transfer Objects) ---

type CreateIslandRequest struct {
	OwnerUUID string `json:"ownerUuid"`
	Name      string `json:"name"`
}

type BankRequest struct {
	PlayerUUID string  `json:"playerUuid"`
	Amount     float64 `json:"amount"`
}

type TransferRequest struct {
	RequesterUUID string  `json:"requesterUuid"`
	ToIslandUUID  string  `json:"toIslandUuid"`
	Amount        float64 `json:"amount"`
}

type MemberRequest struct {
	RequesterUUID string `json:"requesterUuid"`
	PlayerUUID    string `json:"playerUuid"`
}

type VisitorRequest struct {
	PlayerUUID string `json:"playerUuid"`
}

type SetFlagRequest struct {
	RequesterUUID string `json:"requesterUuid"`
	Flag          string `json:"flag"`
	Value         bool   `json:"value"`
}

type PlaceDeviceRequest struct {
	RequesterUUID string `json:"requesterUuid"`
	Kind          string `json:"kind"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Z             int    `json:"z"`
}

type UpgradeDeviceRequest struct {
	RequesterUUID string `json:"requesterUuid"`
	Tier          int    `json:"tier"`
}

type CapacityRequest struct {
	RequesterUUID   string   `json:"requesterUuid"`
	MaxDepositBoxes *int     `json:"maxDepositBoxes,omitempty"`
	MaxPrinters     *int     `json:"maxPrinters,omitempty"`
	MaxHoppers      *int     `json:"maxHoppers,omitempty"`
	TransferSpeed   *float64 `json:"transferSpeed,omitempty"`
	GenerationSpeed *float64 `json:"generationSpeed,omitempty"`
}

type SetLevelRequest struct {
	Level int64 `json:"level"`
}

type CreateWarpRequest struct {
	RequesterUUID string          `json:"requesterUuid"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Target        models.Location `json:"target"`
	Public        bool            `json:"public"`
}

type UseWarpRequest struct {
	PlayerUUID string `json:"playerUuid"`
}

type WarpsOpenRequest struct {
	RequesterUUID string `json:"requesterUuid"`
	Open          bool   `json:"open"`
}

type PromoteRequest struct {
	RequesterUUID string `json:"requesterUuid"`
	Days          int    `json:"days"`
}

type PromoteResponse struct {
	Cost float64 `json:"cost"`
}

type CollectResponse struct {
	Items int `json:"items"`
}

// writeServiceError maps service and aggregate errors onto the API's error
// taxonomy: validation 400, authorization 403, not-found 404, conflicts and
// capacity 409, funds 402. Everything else is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPromotion),
		errors.Is(err, realm.ErrUnknownFlag):
		api.WriteBadRequest(w, err.Error())
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrPermissionDenied),
		errors.Is(err, service.ErrWarpsClosed):
		api.WriteForbidden(w, err.Error())
	case errors.Is(err, service.ErrIslandNotFound),
		errors.Is(err, realm.ErrDeviceNotFound),
		errors.Is(err, service.ErrWarpNotFound):
		api.WriteNotFound(w, err.Error())
	case errors.Is(err, realm.ErrDeviceCapacity):
		api.WriteErrorWithDetails(w, http.StatusConflict, err.Error(),
			"Raise the island's capacity ceiling with an island upgrade to place more devices.")
	case errors.Is(err, service.ErrWarpQuotaReached):
		api.WriteErrorWithDetails(w, http.StatusConflict, err.Error(),
			"Warp slots unlock at island levels 10, 100 and 1000; an extra slot is available via the warp permission.")
	case errors.Is(err, service.ErrAlreadyOwnsIsland),
		errors.Is(err, realm.ErrCoordinateOccupied),
		errors.Is(err, realm.ErrWarpNameTaken),
		errors.Is(err, service.ErrAlreadyPromoted):
		api.WriteConflict(w, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		api.WritePaymentRequired(w, err.Error())
	default:
		log.Printf("ERROR: Island API: %v", err)
		api.WriteInternalServerError(w, "Internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

// --- Handler Methods ---

// CreateIslandHandler handles island creation.
// POST /islands
func (iah *IslandAPIHandlers) CreateIslandHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateIslandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OwnerUUID == "" {
		api.WriteBadRequest(w, "Owner UUID is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	island, err := iah.IslandService.CreateIsland(ctx, req.OwnerUUID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, island)
	log.Printf("Island %s created for %s.", island.UUID, island.OwnerUUID)
}

// GetIslandHandler returns an island snapshot.
// GET /islands/{id}
func (iah *IslandAPIHandlers) GetIslandHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]

	ctx, cancel := requestContext(r)
	defer cancel()

	island, err := iah.IslandService.GetIsland(ctx, islandID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, island)
}

// DeleteIslandHandler tears an island down.
// DELETE /islands/{id}?requester={uuid}
func (iah *IslandAPIHandlers) DeleteIslandHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	requester := r.URL.Query().Get("requester")
	if requester == "" {
		api.WriteBadRequest(w, "Requester UUID is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.DeleteIsland(ctx, islandID, requester); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	log.Printf("Island %s deleted by %s.", islandID, requester)
}

// TopIslandsHandler returns the level leaderboard.
// GET /islands/top?n={count}
func (iah *IslandAPIHandlers) TopIslandsHandler(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.WriteBadRequest(w, "Query parameter n must be a positive integer")
			return
		}
		n = parsed
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	entries, err := iah.IslandService.TopIslands(ctx, n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, entries)
}

// DepositHandler moves wallet funds into the island bank.
// POST /islands/{id}/bank/deposit
func (iah *IslandAPIHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req BankRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.Deposit(ctx, islandID, req.PlayerUUID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WithdrawHandler moves island bank funds into the owner's wallet.
// POST /islands/{id}/bank/withdraw
func (iah *IslandAPIHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req BankRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.Withdraw(ctx, islandID, req.PlayerUUID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransferHandler moves funds between two island banks.
// POST /islands/{id}/bank/transfer
func (iah *IslandAPIHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ToIslandUUID == "" {
		api.WriteBadRequest(w, "Target island UUID is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.TransferBank(ctx, islandID, req.ToIslandUUID, req.RequesterUUID, req.Amount); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMemberHandler invites a player onto the island.
// POST /islands/{id}/members
func (iah *IslandAPIHandlers) AddMemberHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req MemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PlayerUUID == "" {
		api.WriteBadRequest(w, "Player UUID is required")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.AddMember(ctx, islandID, req.RequesterUUID, req.PlayerUUID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMemberHandler kicks a member (or lets one leave).
// DELETE /islands/{id}/members/{player}?requester={uuid}
func (iah *IslandAPIHandlers) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	islandID := vars["id"]
	player := vars["player"]
	requester := r.URL.Query().Get("requester")

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.RemoveMember(ctx, islandID, requester, player); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddVisitorHandler records a visiting player.
// POST /islands/{id}/visitors
func (iah *IslandAPIHandlers) AddVisitorHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req VisitorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.RecordVisitor(ctx, islandID, req.PlayerUUID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveVisitorHandler drops a player from the visitor set.
// DELETE /islands/{id}/visitors/{player}
func (iah *IslandAPIHandlers) RemoveVisitorHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.RemoveVisitor(ctx, vars["id"], vars["player"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFlagHandler toggles an island behavior flag.
// PUT /islands/{id}/flags
func (iah *IslandAPIHandlers) SetFlagHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req SetFlagRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.SetFlag(ctx, islandID, req.RequesterUUID, models.IslandFlag(req.Flag), req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlaceDeviceHandler places a new generation device.
// POST /islands/{id}/devices
func (iah *IslandAPIHandlers) PlaceDeviceHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req PlaceDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	device, err := iah.IslandService.PlaceDevice(ctx, islandID, req.RequesterUUID, models.DeviceKind(req.Kind), req.X, req.Y, req.Z)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) || errors.Is(err, service.ErrIslandNotFound) ||
			errors.Is(err, realm.ErrDeviceCapacity) || errors.Is(err, realm.ErrCoordinateOccupied) {
			writeServiceError(w, err)
			return
		}
		api.WriteBadRequest(w, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusCreated, device)
}

// BreakDeviceHandler removes a placed device.
// DELETE /islands/{id}/devices/{deviceId}?requester={uuid}
func (iah *IslandAPIHandlers) BreakDeviceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requester := r.URL.Query().Get("requester")

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.BreakDevice(ctx, vars["id"], requester, vars["deviceId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpgradeDeviceHandler raises a device's tier.
// PUT /islands/{id}/devices/{deviceId}/tier
func (iah *IslandAPIHandlers) UpgradeDeviceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req UpgradeDeviceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.UpgradeDevice(ctx, vars["id"], req.RequesterUUID, vars["deviceId"], req.Tier); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CollectItemsHandler drains the island's accumulated deposit box output.
// POST /islands/{id}/collect
func (iah *IslandAPIHandlers) CollectItemsHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req VisitorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	items, err := iah.IslandService.CollectItems(ctx, islandID, req.PlayerUUID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, CollectResponse{Items: items})
}

// SetCapacitiesHandler applies upgraded capacity ceilings.
// PUT /islands/{id}/capacities
func (iah *IslandAPIHandlers) SetCapacitiesHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req CapacityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	update := service.CapacityUpdate{
		MaxDepositBoxes: req.MaxDepositBoxes,
		MaxPrinters:     req.MaxPrinters,
		MaxHoppers:      req.MaxHoppers,
		TransferSpeed:   req.TransferSpeed,
		GenerationSpeed: req.GenerationSpeed,
	}
	if err := iah.IslandService.SetCapacities(ctx, islandID, req.RequesterUUID, update); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetLevelHandler records a recomputed island level.
// PUT /islands/{id}/level
func (iah *IslandAPIHandlers) SetLevelHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req SetLevelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.SetLevel(ctx, islandID, req.Level); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateWarpHandler adds a named warp.
// POST /islands/{id}/warps
func (iah *IslandAPIHandlers) CreateWarpHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req CreateWarpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	warp, err := iah.IslandService.CreateWarp(ctx, islandID, req.RequesterUUID, req.Name, req.Description, req.Target, req.Public)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, warp)
}

// DeleteWarpHandler removes a warp by name.
// DELETE /islands/{id}/warps/{name}?requester={uuid}
func (iah *IslandAPIHandlers) DeleteWarpHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requester := r.URL.Query().Get("requester")

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.DeleteWarp(ctx, vars["id"], requester, vars["name"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UseWarpHandler resolves a warp to its teleport target.
// POST /islands/{id}/warps/{name}/visit
func (iah *IslandAPIHandlers) UseWarpHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var req UseWarpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	location, err := iah.IslandService.UseWarp(ctx, vars["id"], req.PlayerUUID, vars["name"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, location)
}

// SetWarpsOpenHandler toggles warp visibility.
// PUT /islands/{id}/warps-open
func (iah *IslandAPIHandlers) SetWarpsOpenHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req WarpsOpenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := iah.IslandService.SetWarpsOpen(ctx, islandID, req.RequesterUUID, req.Open); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PromoteHandler buys a time-boxed visibility boost.
// POST /islands/{id}/promote
func (iah *IslandAPIHandlers) PromoteHandler(w http.ResponseWriter, r *http.Request) {
	islandID := mux.Vars(r)["id"]
	var req PromoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	cost, err := iah.IslandService.Promote(ctx, islandID, req.RequesterUUID, req.Days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, PromoteResponse{Cost: cost})
	log.Printf("Island %s promoted for %d days by %s (cost %.2f).", islandID, req.Days, req.RequesterUUID, cost)
}

// RegisterRoutes registers all API endpoints for the Island Service.
// This method is called from main.go to set up the HTTP routes.
func (iah *IslandAPIHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/islands", iah.CreateIslandHandler).Methods("POST")
	router.HandleFunc("/islands/top", iah.TopIslandsHandler).Methods("GET")
	router.HandleFunc("/islands/{id}", iah.GetIslandHandler).Methods("GET")
	router.HandleFunc("/islands/{id}", iah.DeleteIslandHandler).Methods("DELETE")

	router.HandleFunc("/islands/{id}/bank/deposit", iah.DepositHandler).Methods("POST")
	router.HandleFunc("/islands/{id}/bank/withdraw", iah.WithdrawHandler).Methods("POST")
	router.HandleFunc("/islands/{id}/bank/transfer", iah.TransferHandler).Methods("POST")

	router.HandleFunc("/islands/{id}/members", iah.AddMemberHandler).Methods("POST")
	router.HandleFunc("/islands/{id}/members/{player}", iah.RemoveMemberHandler).Methods("DELETE")
	router.HandleFunc("/islands/{id}/visitors", iah.AddVisitorHandler).Methods("POST")
	router.HandleFunc("/islands/{id}/visitors/{player}", iah.RemoveVisitorHandler).Methods("DELETE")
	router.HandleFunc("/islands/{id}/flags", iah.SetFlagHandler).Methods("PUT")

	router.HandleFunc("/islands/{id}/devices", iah.PlaceDeviceHandler).Methods("POST")
	router.HandleFunc("/islands/{id}/devices/{deviceId}", iah.BreakDeviceHandler).Methods("DELETE")
	router.HandleFunc("/islands/{id}/devices/{deviceId}/tier", iah.UpgradeDeviceHandler).Methods("PUT")
	router.HandleFunc("/islands/{id}/collect", iah.CollectItemsHandler).Methods("POST")

	router.HandleFunc("/islands/{id}/capacities", iah.SetCapacitiesHandler).Methods("PUT")
	router.HandleFunc("/islands/{id}/level", iah.SetLevelHandler).Methods("PUT")

	router.HandleFunc("/islands/{id}/warps", iah.CreateWarpHandler).Methods("POST")
	router.HandleFunc("/islands/{id}/warps/{name}", iah.DeleteWarpHandler).Methods("DELETE")
	router.HandleFunc("/islands/{id}/warps/{name}/visit", iah.UseWarpHandler).Methods("POST")
	router.HandleFunc("/islands/{id}/warps-open", iah.SetWarpsOpenHandler).Methods("PUT")
	router.HandleFunc("/islands/{id}/promote", iah.PromoteHandler).Methods("POST")
}
