package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	playerapi "github.com/skyward-mc/skyblock-services/player/api"
	"github.com/skyward-mc/skyblock-services/player/mojang"
	"github.com/skyward-mc/skyblock-services/player/service"
	"github.com/skyward-mc/skyblock-services/player/store"
	"github.com/skyward-mc/skyblock-services/shared/api"
	"github.com/skyward-mc/skyblock-services/shared/config"
	"github.com/skyward-mc/skyblock-services/shared/mongodb"
	redisu "github.com/skyward-mc/skyblock-services/shared/redis"
	"github.com/skyward-mc/skyblock-services/shared/registry"
)

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadPlayerServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded for Player Service. Listening on: %s", cfg.ListenAddr)

	// --- 2. Connect to MongoDB ---
	mongoClient, err := mongodb.NewClient(cfg.MongoDBConnStr, cfg.MongoDBDatabase)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Printf("ERROR: Error disconnecting MongoDB client: %v", err)
		}
		log.Println("MongoDB Client disconnected.")
	}()
	log.Println("Connected to MongoDB.")

	// --- 3. Connect to Redis Cluster (service registry only) ---
	redisClient, err := redisu.NewRedisClusterClient(cfg.RedisAddrs, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis Cluster: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("ERROR: Error closing Redis client: %v", err)
		}
		log.Println("Redis Client closed.")
	}()
	log.Println("Connected to Redis Cluster.")

	// --- 4. Initialize Data Store ---
	playerStore := store.NewPlayerStore(mongoClient.Collection(cfg.MongoDBPlayersCollection))

	// --- 5. Initialize Mojang Service and Username Filler ---
	mojangService := mojang.NewMojangService(playerStore, cfg.UsernameFillerInterval)
	go mojangService.StartFillerJob()
	defer mojangService.StopFillerJob()

	// --- 6. Initialize Business Logic Service ---
	playerService := service.NewPlayerService(playerStore, mojangService)
	log.Println("Player Service business logic initialized.")

	// --- 7. Initialize API Handlers ---
	playerAPIHandlers := playerapi.NewPlayerAPIHandlers(playerService)

	// --- 8. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, "player-service", &cfg.CommonConfig)
	go registrar.Start()
	defer registrar.Stop()
	log.Printf("Service registrar started for 'player-service' with Address: %s", cfg.ListenAddr)

	// --- 9. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, log.Default())
	playerAPIHandlers.RegisterRoutes(baseServer.Router)
	log.Println("HTTP routes registered.")

	// --- 10. Start HTTP Server ---
	go func() {
		log.Printf("HTTP server starting on %s...", cfg.ListenAddr)
		if err := baseServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed to start: %v", err)
		}
	}()

	// --- 11. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down Player Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server graceful shutdown failed: %v", err)
	}
	log.Println("Player Service HTTP server gracefully stopped.")
	log.Println("Player Service gracefully shut down.")
}
