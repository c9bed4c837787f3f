// shared/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// CommonConfig holds configuration fields that are shared across multiple services.
type CommonConfig struct {
	RedisAddrs              []string      // Redis server addresses (e.g., "redis-cluster:6379")
	RedisPassword           string        // Redis password for authentication
	HeartbeatInterval       time.Duration // How often to send a heartbeat to the service registry (e.g., 5s)
	HeartbeatTTL            time.Duration // How long an instance is considered alive without a heartbeat (e.g., 15s)
	RegistryCleanupInterval time.Duration // How often the registry actively cleans stale entries (e.g., 30s)
	ServiceIP               string        // The IP address this service advertises for registration (Kubernetes Pod IP)
	ServicePort             int           // The port this service listens on, used for registration
}

// IslandServiceConfig holds configuration specific to the island-service.
type IslandServiceConfig struct {
	CommonConfig                           // Embed CommonConfig
	ListenAddr               string        // Address for the HTTP server (e.g., ":8083")
	MongoDBConnStr           string        // MongoDB connection string
	MongoDBDatabase          string        // MongoDB database name (e.g., "skyblock")
	MongoDBIslandsCollection string        // MongoDB collection for island documents
	PlayerServiceURL         string        // Base URL of the skyblock player-service
	EconomyServiceURL        string        // Base URL of the external economy provider
	PermissionServiceURL     string        // Base URL of the external permission authority
	TickInterval             time.Duration // Generation scheduler tick (e.g., 1s)
	PersistenceInterval      time.Duration // How often dirty islands are flushed to MongoDB (e.g., 30s)
	PersistTimeout           time.Duration // Timeout for a full persistence sweep
	LeaderboardSize          int           // How many islands the level leaderboard keeps
	ItemQueueCapacity        int           // Per-island capacity of the collectible item queue
}

// PlayerServiceConfig holds configuration specific to the skyblock player-service.
type PlayerServiceConfig struct {
	CommonConfig                           // Embed CommonConfig
	ListenAddr               string        // Address for the HTTP server to listen on (e.g., ":8081")
	MongoDBConnStr           string        // MongoDB connection string
	MongoDBDatabase          string        // MongoDB database name
	MongoDBPlayersCollection string        // MongoDB collection for skyblock player profiles
	UsernameFillerInterval   time.Duration // How often the background username filler job runs
}

// LoadCommonConfig loads common configuration from environment variables.
func LoadCommonConfig() (CommonConfig, error) {
	cfg := CommonConfig{}
	var err error

	redisAddrsStr := os.Getenv("REDIS_ADDRS")
	if redisAddrsStr == "" {
		cfg.RedisAddrs = []string{"redis-cluster-headless.skyblock.svc.cluster.local:6379"} // Default for K8s Service
	} else {
		for _, addr := range strings.Split(redisAddrsStr, ",") {
			cfg.RedisAddrs = append(cfg.RedisAddrs, strings.TrimSpace(addr))
		}
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.HeartbeatInterval, err = getDuration("SERVICE_HEARTBEAT_INTERVAL", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.HeartbeatTTL, err = getDuration("SERVICE_HEARTBEAT_TTL", 15*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.RegistryCleanupInterval, err = getDuration("SERVICE_REGISTRY_CLEANUP_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	// Service IP (for registration, from Kubernetes Pod IP)
	cfg.ServiceIP = os.Getenv("POD_IP")
	if cfg.ServiceIP == "" {
		// Fallback for local development outside K8s or if not injected
		cfg.ServiceIP = "0.0.0.0"
		fmt.Printf("WARNING: POD_IP not set, defaulting ServiceIP to %s\n", cfg.ServiceIP)
	}

	return cfg, nil
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

// Helper function to parse int from environment variable
func getInt(envKey string, defaultVal int) (int, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", envKey, err)
	}
	return i, nil
}

// extractPort extracts the numeric port from a listen address (e.g., ":8083" -> 8083, "0.0.0.0:8083" -> 8083)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		// If SplitHostPort fails, check if ListenAddr is just a port (e.g., ":8083")
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid ListenAddr format for port extraction: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number '%s': %w", portStr, err)
	}
	return port, nil
}

// LoadIslandServiceConfig loads configuration for the island-service.
func LoadIslandServiceConfig() (*IslandServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for island-service: %w", err)
	}

	cfg := &IslandServiceConfig{
		CommonConfig:             common,
		ListenAddr:               os.Getenv("ISLAND_SERVICE_LISTEN_ADDR"),
		MongoDBConnStr:           os.Getenv("MONGODB_CONN_STR"),
		MongoDBDatabase:          os.Getenv("MONGODB_DATABASE"),
		MongoDBIslandsCollection: os.Getenv("MONGODB_ISLANDS_COLLECTION"),
		PlayerServiceURL:         os.Getenv("PLAYER_SERVICE_URL"),
		EconomyServiceURL:        os.Getenv("ECONOMY_SERVICE_URL"),
		PermissionServiceURL:     os.Getenv("PERMISSION_SERVICE_URL"),
	}

	// Apply defaults for specific fields if not set
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8083"
	}
	if cfg.MongoDBConnStr == "" {
		cfg.MongoDBConnStr = "mongodb://mongodb-service:27017"
	}
	if cfg.MongoDBDatabase == "" {
		cfg.MongoDBDatabase = "skyblock"
	}
	if cfg.MongoDBIslandsCollection == "" {
		cfg.MongoDBIslandsCollection = "islands"
	}
	if cfg.PlayerServiceURL == "" {
		cfg.PlayerServiceURL = "http://player-service:8081" // Default for K8s internal DNS
	}
	if cfg.EconomyServiceURL == "" {
		cfg.EconomyServiceURL = "http://economy-service:8090"
	}
	if cfg.PermissionServiceURL == "" {
		// The permission authority commonly rides on the economy provider.
		cfg.PermissionServiceURL = cfg.EconomyServiceURL
	}

	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from ISLAND_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	cfg.TickInterval, err = getDuration("ISLAND_SERVICE_TICK_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.PersistenceInterval, err = getDuration("ISLAND_SERVICE_PERSISTENCE_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.PersistTimeout, err = getDuration("ISLAND_SERVICE_PERSIST_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.LeaderboardSize, err = getInt("ISLAND_SERVICE_LEADERBOARD_SIZE", 10)
	if err != nil {
		return nil, err
	}
	cfg.ItemQueueCapacity, err = getInt("ISLAND_SERVICE_ITEM_QUEUE_CAPACITY", 64)
	if err != nil {
		return nil, err
	}
	if cfg.ItemQueueCapacity <= 0 {
		return nil, fmt.Errorf("ISLAND_SERVICE_ITEM_QUEUE_CAPACITY must be a positive integer (got %d)", cfg.ItemQueueCapacity)
	}

	return cfg, nil
}

// LoadPlayerServiceConfig loads configuration for the skyblock player-service.
func LoadPlayerServiceConfig() (*PlayerServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for player-service: %w", err)
	}

	cfg := &PlayerServiceConfig{
		CommonConfig:             common,
		ListenAddr:               os.Getenv("PLAYER_SERVICE_LISTEN_ADDR"),
		MongoDBConnStr:           os.Getenv("MONGODB_CONN_STR"),
		MongoDBDatabase:          os.Getenv("MONGODB_DATABASE"),
		MongoDBPlayersCollection: os.Getenv("MONGODB_PLAYERS_COLLECTION"),
	}

	// Apply defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8081"
	}
	if cfg.MongoDBConnStr == "" {
		cfg.MongoDBConnStr = "mongodb://mongodb-service:27017"
	}
	if cfg.MongoDBDatabase == "" {
		cfg.MongoDBDatabase = "skyblock"
	}
	if cfg.MongoDBPlayersCollection == "" {
		cfg.MongoDBPlayersCollection = "players"
	}

	cfg.UsernameFillerInterval, err = getDuration("PLAYER_SERVICE_USERNAME_FILLER_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from PLAYER_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	return cfg, nil
}
