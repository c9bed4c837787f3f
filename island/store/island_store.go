// island/store/island_store.go
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skyward-mc/skyblock-services/shared/models"
)

// IslandStore represents the MongoDB data store for island records. Stores only
// do DB work; normalization of loaded records happens here so callers always
// receive a fully-defaulted object.
type IslandStore struct {
	collection *mongo.Collection
}

// NewIslandStore creates a new IslandStore instance.
func NewIslandStore(collection *mongo.Collection) *IslandStore {
	return &IslandStore{
		collection: collection,
	}
}

// CreateIsland inserts a new island document into the collection.
func (is *IslandStore) CreateIsland(ctx context.Context, island *models.Island) error {
	_, err := is.collection.InsertOne(ctx, island)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("island %s already exists", island.UUID)
		}
		return fmt.Errorf("failed to create island %s: %w", island.UUID, err)
	}
	return nil
}

// GetIslandByID retrieves an island record by its UUID. Returns
// mongo.ErrNoDocuments if absent; the loaded record is normalized before return.
func (is *IslandStore) GetIslandByID(ctx context.Context, islandID string) (*models.Island, error) {
	var island models.Island
	filter := bson.M{"_id": islandID}
	err := is.collection.FindOne(ctx, filter).Decode(&island)
	if err != nil {
		return nil, err
	}
	island.Normalize()
	return &island, nil
}

// GetIslandByOwner retrieves the island owned by the given player, if any.
func (is *IslandStore) GetIslandByOwner(ctx context.Context, ownerUUID string) (*models.Island, error) {
	var island models.Island
	filter := bson.M{"owner_uuid": ownerUUID}
	err := is.collection.FindOne(ctx, filter).Decode(&island)
	if err != nil {
		return nil, err
	}
	island.Normalize()
	return &island, nil
}

// SaveIsland overwrites the whole island document, creating it if absent. Saves
// are idempotent whole-object writes off a snapshot.
func (is *IslandStore) SaveIsland(ctx context.Context, island *models.Island) error {
	filter := bson.M{"_id": island.UUID}
	opts := options.Replace().SetUpsert(true)
	_, err := is.collection.ReplaceOne(ctx, filter, island, opts)
	if err != nil {
		return fmt.Errorf("failed to save island %s: %w", island.UUID, err)
	}
	return nil
}

// DeleteIsland removes the island document.
func (is *IslandStore) DeleteIsland(ctx context.Context, islandID string) error {
	filter := bson.M{"_id": islandID}
	res, err := is.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete island %s: %w", islandID, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// GetAllIslands streams every island record, normalized. Used to warm the live
// realm at startup.
func (is *IslandStore) GetAllIslands(ctx context.Context) ([]*models.Island, error) {
	cursor, err := is.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list islands: %w", err)
	}
	defer cursor.Close(ctx)

	var islands []*models.Island
	for cursor.Next(ctx) {
		var island models.Island
		if err := cursor.Decode(&island); err != nil {
			return nil, fmt.Errorf("failed to decode island record: %w", err)
		}
		island.Normalize()
		islands = append(islands, &island)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while listing islands: %w", err)
	}
	return islands, nil
}

// GetTopIslandsByLevel returns the n highest-level islands in descending order.
func (is *IslandStore) GetTopIslandsByLevel(ctx context.Context, n int) ([]*models.Island, error) {
	if n <= 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "level", Value: -1}}).SetLimit(int64(n))
	cursor, err := is.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query top islands: %w", err)
	}
	defer cursor.Close(ctx)

	var islands []*models.Island
	for cursor.Next(ctx) {
		var island models.Island
		if err := cursor.Decode(&island); err != nil {
			return nil, fmt.Errorf("failed to decode island record: %w", err)
		}
		island.Normalize()
		islands = append(islands, &island)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error while querying top islands: %w", err)
	}
	return islands, nil
}
