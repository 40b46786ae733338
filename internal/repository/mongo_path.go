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

// MongoPathRepository implements PathRepository on the paths collection.
type MongoPathRepository struct {
	coll *mongo.Collection
}

// NewMongoPathRepository creates a new MongoPathRepository.
func NewMongoPathRepository(db *database.DB) *MongoPathRepository {
	return &MongoPathRepository{coll: db.Collection(database.PathsCollection)}
}

// List retrieves every path ordered by name.
func (r *MongoPathRepository) List(ctx context.Context) ([]models.Path, error) {
	return r.find(ctx, bson.M{})
}

// ListByIDs retrieves the paths with the given IDs ordered by name.
func (r *MongoPathRepository) ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Path, error) {
	if len(ids) == 0 {
		return []models.Path{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// GetByID retrieves a single path by ID.
func (r *MongoPathRepository) GetByID(ctx context.Context, id bson.ObjectID) (models.Path, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetBySlug retrieves a single path by its stable slug.
func (r *MongoPathRepository) GetBySlug(ctx context.Context, slug string) (models.Path, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

// UpsertBySlug inserts the path, or refreshes its definition if a path with
// the same slug exists. Enrollments on an existing path are preserved.
func (r *MongoPathRepository) UpsertBySlug(ctx context.Context, path *models.Path) error {
	if err := checkDocument(path); err != nil {
		return err
	}
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":        path.Name,
			"description": path.Description,
			"category":    path.Category,
			"skills":      path.Skills,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"_id":       bson.NewObjectID(),
			"children":  []bson.ObjectID{},
			"createdAt": now,
		},
	}

	var stored models.Path
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"slug": path.Slug}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&stored)
	if err != nil {
		return mapError("path", err)
	}
	*path = stored
	return nil
}

// AddChild enrolls a child in a path. Enrolling twice is a no-op.
func (r *MongoPathRepository) AddChild(ctx context.Context, pathID, childID bson.ObjectID) error {
	return r.updateChildren(ctx, pathID, bson.M{"$addToSet": bson.M{"children": childID}})
}

// RemoveChild unenrolls a child from a path.
func (r *MongoPathRepository) RemoveChild(ctx context.Context, pathID, childID bson.ObjectID) error {
	return r.updateChildren(ctx, pathID, bson.M{"$pull": bson.M{"children": childID}})
}

// RemoveChildFromAll detaches a child from every path it is enrolled in.
func (r *MongoPathRepository) RemoveChildFromAll(ctx context.Context, childID bson.ObjectID) error {
	_, err := r.coll.UpdateMany(ctx, bson.M{"children": childID}, bson.M{
		"$pull": bson.M{"children": childID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to detach child from paths: %w", err)
	}
	return nil
}

func (r *MongoPathRepository) updateChildren(ctx context.Context, pathID bson.ObjectID, update bson.M) error {
	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": pathID}, update)
	if err != nil {
		return fmt.Errorf("failed to update path enrollment: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("path: %w", ErrNotFound)
	}
	return nil
}

func (r *MongoPathRepository) find(ctx context.Context, filter bson.M) ([]models.Path, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}

	paths := []models.Path{}
	if err := cursor.All(ctx, &paths); err != nil {
		return nil, fmt.Errorf("failed to decode paths: %w", err)
	}
	for i := range paths {
		if err := checkDocument(&paths[i]); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

func (r *MongoPathRepository) findOne(ctx context.Context, filter bson.M) (models.Path, error) {
	var path models.Path
	if err := r.coll.FindOne(ctx, filter).Decode(&path); err != nil {
		return models.Path{}, mapError("path", err)
	}
	if err := checkDocument(&path); err != nil {
		return models.Path{}, err
	}
	return path, nil
}
