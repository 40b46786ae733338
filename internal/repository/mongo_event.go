package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/growthpath/growthpath-be/internal/database"
	"github.com/growthpath/growthpath-be/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoEventRepository implements EventRepository on the events collection.
type MongoEventRepository struct {
	coll *mongo.Collection
}

// NewMongoEventRepository creates a new MongoEventRepository.
func NewMongoEventRepository(db *database.DB) *MongoEventRepository {
	return &MongoEventRepository{coll: db.Collection(database.EventsCollection)}
}

// Create logs a new event.
func (r *MongoEventRepository) Create(ctx context.Context, event *models.Event) error {
	event.ID = bson.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent retrieves the newest events for a user.
func (r *MongoEventRepository) Recent(ctx context.Context, userID bson.ObjectID, limit int) ([]models.Event, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// DeleteBefore removes events created before cutoff and reports how many were removed.
func (r *MongoEventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.DeletedCount, nil
}
