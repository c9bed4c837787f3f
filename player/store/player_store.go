// player/store/player_store.go
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skyward-mc/skyblock-services/shared/models"
)

// PlayerStore represents the MongoDB data store for skyblock player profiles.
type PlayerStore struct {
	collection *mongo.Collection
}

// NewPlayerStore creates a new PlayerStore instance.
func NewPlayerStore(collection *mongo.Collection) *PlayerStore {
	return &PlayerStore{
		collection: collection,
	}
}

// CreatePlayer inserts a new player profile into the collection.
func (ps *PlayerStore) CreatePlayer(ctx context.Context, player *models.SkyblockPlayer) error {
	_, err := ps.collection.InsertOne(ctx, player)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("player profile %s already exists", player.UUID)
		}
		return fmt.Errorf("failed to create player profile %s: %w", player.UUID, err)
	}
	return nil
}

// GetPlayerByUUID retrieves a player profile by their UUID.
func (ps *PlayerStore) GetPlayerByUUID(ctx context.Context, uuid string) (*models.SkyblockPlayer, error) {
	var profile models.SkyblockPlayer
	filter := bson.M{"_id": uuid}
	err := ps.collection.FindOne(ctx, filter).Decode(&profile)
	if err != nil {
		return nil, err // Return mongo.ErrNoDocuments if not found
	}
	profile.Normalize()
	return &profile, nil
}

// UpdateIsland sets the island a player currently owns.
func (ps *PlayerStore) UpdateIsland(ctx context.Context, uuid, islandUUID string) error {
	filter := bson.M{"_id": uuid}
	update := bson.M{"$set": bson.M{"island_uuid": islandUUID}}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update island for player %s: %w", uuid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %s not found for island update", uuid)
	}
	return nil
}

// ClearIsland removes the player's island link and bumps the reset counter.
// Profiles are never deleted, so the counter survives every island the player
// walks away from.
func (ps *PlayerStore) ClearIsland(ctx context.Context, uuid string) error {
	filter := bson.M{"_id": uuid}
	update := bson.M{
		"$set": bson.M{"island_uuid": ""},
		"$inc": bson.M{"reset_count": 1},
	}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to clear island for player %s: %w", uuid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %s not found for island clear", uuid)
	}
	return nil
}

// AddMembership records that the player is a member of the given island.
// $addToSet keeps the membership list duplicate-free under retries.
func (ps *PlayerStore) AddMembership(ctx context.Context, uuid, islandUUID string) error {
	filter := bson.M{"_id": uuid}
	update := bson.M{"$addToSet": bson.M{"memberships": islandUUID}}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add membership %s for player %s: %w", islandUUID, uuid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %s not found for membership add", uuid)
	}
	return nil
}

// RemoveMembership drops the island from the player's membership list.
func (ps *PlayerStore) RemoveMembership(ctx context.Context, uuid, islandUUID string) error {
	filter := bson.M{"_id": uuid}
	update := bson.M{"$pull": bson.M{"memberships": islandUUID}}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove membership %s for player %s: %w", islandUUID, uuid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %s not found for membership removal", uuid)
	}
	return nil
}

// UpdateUsername updates only the Username field for a player profile.
func (ps *PlayerStore) UpdateUsername(ctx context.Context, uuid, username string) error {
	filter := bson.M{"_id": uuid}
	update := bson.M{"$set": bson.M{"username": username}}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update username for player %s: %w", uuid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %s not found for username update", uuid)
	}
	return nil
}

// UpdateLastSeen refreshes the LastSeenAt timestamp for a player profile.
func (ps *PlayerStore) UpdateLastSeen(ctx context.Context, uuid string) error {
	filter := bson.M{"_id": uuid}
	now := time.Now()
	update := bson.M{"$set": bson.M{"last_seen_at": &now}}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update last seen for player %s: %w", uuid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %s not found for last seen update", uuid)
	}
	return nil
}

// SetSideData writes a single key in the player's free-form side data map.
func (ps *PlayerStore) SetSideData(ctx context.Context, uuid, key, value string) error {
	filter := bson.M{"_id": uuid}
	update := bson.M{"$set": bson.M{"side_data." + key: value}}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set side data %q for player %s: %w", key, uuid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("player %s not found for side data update", uuid)
	}
	return nil
}

// GetPlayersWithoutUsername returns profiles whose username has not been
// resolved yet, up to the given limit. The background filler job retries these.
func (ps *PlayerStore) GetPlayersWithoutUsername(ctx context.Context, limit int64) ([]models.SkyblockPlayer, error) {
	filter := bson.M{"username": ""}
	opts := options.Find().SetLimit(limit)
	cursor, err := ps.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query players without username: %w", err)
	}
	defer cursor.Close(ctx)

	var players []models.SkyblockPlayer
	if err := cursor.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("error decoding players without username: %w", err)
	}
	return players, nil
}
