package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	islandapi "github.com/skyward-mc/skyblock-services/island/api"
	"github.com/skyward-mc/skyblock-services/island/realm"
	"github.com/skyward-mc/skyblock-services/island/scheduler"
	"github.com/skyward-mc/skyblock-services/island/service"
	"github.com/skyward-mc/skyblock-services/island/sink"
	"github.com/skyward-mc/skyblock-services/island/store"
	"github.com/skyward-mc/skyblock-services/island/syncer"
	"github.com/skyward-mc/skyblock-services/shared/api"
	"github.com/skyward-mc/skyblock-services/shared/cluster"
	"github.com/skyward-mc/skyblock-services/shared/config"
	"github.com/skyward-mc/skyblock-services/shared/mongodb"
	redisu "github.com/skyward-mc/skyblock-services/shared/redis"
	"github.com/skyward-mc/skyblock-services/shared/registry"
	serviceclient "github.com/skyward-mc/skyblock-services/shared/service"
)

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadIslandServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded for Island Service. Listening on: %s", cfg.ListenAddr)

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

	// --- 3. Connect to Redis Cluster ---
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

	// --- 4. Initialize Data Stores ---
	islandStore := store.NewIslandStore(mongoClient.Collection(cfg.MongoDBIslandsCollection))
	leaderboardStore := store.NewLeaderboardStore(redisClient)
	notifier := store.NewRedisNotifier(redisClient)

	// --- 5. Initialize Service Clients ---
	playerClient := serviceclient.NewPlayerClient(cfg.PlayerServiceURL)
	economyClient := serviceclient.NewEconomyClient(cfg.EconomyServiceURL)
	permissionClient := serviceclient.NewPermissionClient(cfg.PermissionServiceURL)

	// --- 6. Initialize In-Memory Realm and Item Sink ---
	rlm := realm.NewRealm()
	itemSink := sink.NewBufferedSink(cfg.ItemQueueCapacity)

	// --- 7. Initialize Business Logic Service ---
	islandService := service.NewIslandService(
		rlm,
		islandStore,
		leaderboardStore,
		economyClient,
		permissionClient,
		playerClient,
		notifier,
		itemSink,
	)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := islandService.LoadAll(loadCtx); err != nil {
		loadCancel()
		log.Fatalf("Failed to load islands into realm: %v", err)
	}
	loadCancel()
	log.Printf("Island Service business logic initialized with %d islands.", rlm.Len())

	// --- 8. Initialize API Handlers ---
	islandAPIHandlers := islandapi.NewIslandAPIHandlers(islandService)

	// --- 9. Initialize and Start Service Registrar ---
	registrar := registry.NewServiceRegistrar(redisClient, "island-service", &cfg.CommonConfig)
	go registrar.Start()
	defer registrar.Stop()
	log.Printf("Service registrar started for 'island-service' with Address: %s", cfg.ListenAddr)

	registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL)

	assignmentManager := cluster.NewServiceAssignmentManager(registryClient, registrar, cfg.HeartbeatInterval)
	go assignmentManager.Start()
	defer assignmentManager.Stop()

	// --- 10. Start Generation Scheduler and Persistence Syncer ---
	generationScheduler := scheduler.NewGenerationScheduler(cfg.TickInterval, rlm, itemSink, assignmentManager)
	go generationScheduler.Start()
	defer generationScheduler.Stop()

	islandSyncer := syncer.NewIslandSyncer(cfg, rlm, islandStore, leaderboardStore, assignmentManager)
	go islandSyncer.Start()
	defer islandSyncer.Stop() // Stop performs a final flush of dirty islands

	// --- 11. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, log.Default())
	islandAPIHandlers.RegisterRoutes(baseServer.Router)
	log.Println("HTTP routes registered.")

	// --- 12. Start HTTP Server ---
	go func() {
		log.Printf("HTTP server starting on %s...", cfg.ListenAddr)
		if err := baseServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed to start: %v", err)
		}
	}()

	// --- 13. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down Island Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP server graceful shutdown failed: %v", err)
	}
	log.Println("Island Service HTTP server gracefully stopped.")
	log.Println("Island Service gracefully shut down.")
}
