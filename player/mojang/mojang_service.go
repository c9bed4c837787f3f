package mojang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/skyward-mc/skyblock-services/player/store"
)

// fillerBatchSize caps how many unresolved profiles one filler pass handles.
const fillerBatchSize = 200

// mojangProfile represents the structure of the JSON response from Mojang's Session Server.
type mojangProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MojangService resolves Minecraft usernames from Mojang and runs a background
// job that fills usernames onto profiles created before the lookup completed.
type MojangService struct {
	httpClient    *http.Client
	mojangBaseURL string

	playerStore    *store.PlayerStore
	fillerInterval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMojangService creates a new instance of MojangService.
func NewMojangService(playerStore *store.PlayerStore, fillerInterval time.Duration) *MojangService {
	return &MojangService{
		httpClient:     &http.Client{Timeout: 5 * time.Second}, // Short timeout for external API
		mojangBaseURL:  "https://sessionserver.mojang.com/session/minecraft/profile",
		playerStore:    playerStore,
		fillerInterval: fillerInterval,
		stopChan:       make(chan struct{}),
	}
}

// GetUsernameByUUID fetches a Minecraft username from Mojang's API using the player's UUID.
func (ms *MojangService) GetUsernameByUUID(ctx context.Context, uuid string) (string, error) {
	url := fmt.Sprintf("%s/%s", ms.mojangBaseURL, uuid)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create Mojang API request: %w", err)
	}

	resp, err := ms.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make Mojang API request for UUID %s: %w", uuid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("mojang profile not found for UUID %s (Status: %d)", uuid, resp.StatusCode)
		}
		return "", fmt.Errorf("unexpected status from Mojang API for UUID %s: %d", uuid, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Mojang API response body for UUID %s: %w", uuid, err)
	}

	var profile mojangProfile
	if err := json.Unmarshal(bodyBytes, &profile); err != nil {
		return "", fmt.Errorf("failed to unmarshal Mojang API response for UUID %s: %w", uuid, err)
	}

	if profile.Name == "" {
		return "", fmt.Errorf("mojang API returned empty username for UUID %s", uuid)
	}

	return profile.Name, nil
}

// StartFillerJob runs the background username filler job until StopFillerJob is
// called. This should be run in a goroutine.
func (ms *MojangService) StartFillerJob() {
	ms.wg.Add(1)
	defer ms.wg.Done()

	ticker := time.NewTicker(ms.fillerInterval)
	defer ticker.Stop()

	log.Printf("MojangService: Background username filler job started, running every %v", ms.fillerInterval)

	// Run immediately once, then on ticker intervals
	ms.performSingleFillerIteration()

	for {
		select {
		case <-ticker.C:
			ms.performSingleFillerIteration()
		case <-ms.stopChan:
			log.Println("MojangService: Background username filler job stopping.")
			return
		}
	}
}

// StopFillerJob signals the background job to cease operations and waits for it to finish.
func (ms *MojangService) StopFillerJob() {
	log.Println("MojangService: Signaling background username filler job to stop...")
	close(ms.stopChan)
	ms.wg.Wait()
	log.Println("MojangService: Background username filler job stopped successfully.")
}

// performSingleFillerIteration resolves usernames for one batch of profiles
// that still carry an empty username.
func (ms *MojangService) performSingleFillerIteration() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profiles, err := ms.playerStore.GetPlayersWithoutUsername(ctx, fillerBatchSize)
	if err != nil {
		log.Printf("MojangService: Error during filler job - finding profiles: %v", err)
		return
	}

	if len(profiles) == 0 {
		return
	}

	log.Printf("MojangService: Found %d profiles with empty usernames to process.", len(profiles))

	for _, p := range profiles {
		// Pause before each API call to stay under Mojang's rate limits.
		select {
		case <-ctx.Done():
			log.Printf("MojangService: Filler job iteration cancelled: %v", ctx.Err())
			return
		case <-time.After(100 * time.Millisecond):
		}

		username, mojangErr := ms.GetUsernameByUUID(ctx, p.UUID)
		if mojangErr != nil {
			log.Printf("WARN: MojangService: Filler job failed to fetch username for UUID %s: %v", p.UUID, mojangErr)
			continue
		}

		if updateErr := ms.playerStore.UpdateUsername(ctx, p.UUID, username); updateErr != nil {
			log.Printf("WARN: MojangService: Filler job failed to update username for profile %s: %v", p.UUID, updateErr)
		} else {
			log.Printf("INFO: MojangService: Filler job updated username for profile %s to %s.", p.UUID, username)
		}
	}
}
