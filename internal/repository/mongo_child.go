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

// MongoChildRepository implements ChildRepository on the children collection.
type MongoChildRepository struct {
	coll *mongo.Collection
}

// NewMongoChildRepository creates a new MongoChildRepository.
func NewMongoChildRepository(db *database.DB) *MongoChildRepository {
	return &MongoChildRepository{coll: db.Collection(database.ChildrenCollection)}
}

func ownedBy(userID, childID bson.ObjectID) bson.M {
	return bson.M{"_id": childID, "userId": userID}
}

// Create inserts a new child profile and assigns its ID.
func (r *MongoChildRepository) Create(ctx context.Context, child *models.Child) error {
	now := time.Now().UTC()
	child.ID = bson.NewObjectID()
	child.CreatedAt = now
	child.UpdatedAt = now
	if child.Paths == nil {
		child.Paths = []bson.ObjectID{}
	}
	if err := checkDocument(child); err != nil {
		return err
	}

	if _, err := r.coll.InsertOne(ctx, child); err != nil {
		return fmt.Errorf("failed to insert child: %w", err)
	}
	return nil
}

// Get retrieves a child owned by the given user.
func (r *MongoChildRepository) Get(ctx context.Context, userID, childID bson.ObjectID) (models.Child, error) {
	var child models.Child
	if err := r.coll.FindOne(ctx, ownedBy(userID, childID)).Decode(&child); err != nil {
		return models.Child{}, mapError("child", err)
	}
	if err := checkDocument(&child); err != nil {
		return models.Child{}, err
	}
	return child, nil
}

// List retrieves all children owned by the given user, oldest first.
func (r *MongoChildRepository) List(ctx context.Context, userID bson.ObjectID) ([]models.Child, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}

	var children []models.Child
	if err := cursor.All(ctx, &children); err != nil {
		return nil, fmt.Errorf("failed to decode children: %w", err)
	}
	for i := range children {
		if err := checkDocument(&children[i]); err != nil {
			return nil, err
		}
	}
	return children, nil
}

// Update replaces the editable fields of a child owned by the given user.
func (r *MongoChildRepository) Update(ctx context.Context, userID, childID bson.ObjectID, update ChildUpdate) (models.Child, error) {
	set := bson.M{
		"name":      update.Name,
		"birthday":  update.Birthday,
		"updatedAt": time.Now().UTC(),
	}
	if update.Gender != "" {
		set["gender"] = update.Gender
	}

	var child models.Child
	err := r.coll.FindOneAndUpdate(ctx, ownedBy(userID, childID), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&child)
	if err != nil {
		return models.Child{}, mapError("child", err)
	}
	if err := checkDocument(&child); err != nil {
		return models.Child{}, err
	}
	return child, nil
}

// Delete removes a child owned by the given user.
func (r *MongoChildRepository) Delete(ctx context.Context, userID, childID bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, ownedBy(userID, childID))
	if err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("child: %w", ErrNotFound)
	}
	return nil
}

// AddPath records an enrollment on the child. Adding the same path twice is a no-op.
func (r *MongoChildRepository) AddPath(ctx context.Context, userID, childID, pathID bson.ObjectID) error {
	return r.updatePaths(ctx, userID, childID, bson.M{"$addToSet": bson.M{"paths": pathID}})
}

// RemovePath drops an enrollment from the child.
func (r *MongoChildRepository) RemovePath(ctx context.Context, userID, childID, pathID bson.ObjectID) error {
	return r.updatePaths(ctx, userID, childID, bson.M{"$pull": bson.M{"paths": pathID}})
}

func (r *MongoChildRepository) updatePaths(ctx context.Context, userID, childID bson.ObjectID, update bson.M) error {
	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	res, err := r.coll.UpdateOne(ctx, ownedBy(userID, childID), update)
	if err != nil {
		return fmt.Errorf("failed to update child paths: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("child: %w", ErrNotFound)
	}
	return nil
}
