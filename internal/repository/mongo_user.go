package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/growthpath/growthpath-be/internal/database"
	"github.com/growthpath/growthpath-be/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoUserRepository implements UserRepository on the users collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository.
func NewMongoUserRepository(db *database.DB) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(database.UsersCollection)}
}

// Create inserts a new user and assigns its ID.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.ID = bson.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Children == nil {
		user.Children = []bson.ObjectID{}
	}
	if err := checkDocument(user); err != nil {
		return err
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a single user by ID.
func (r *MongoUserRepository) GetByID(ctx context.Context, id bson.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail retrieves a single user by normalized email, including the password hash.
func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

// UpdateProfile sets the display fields and email of a user.
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id bson.ObjectID, update ProfileUpdate) (models.User, error) {
	set := bson.M{
		"firstName":  update.Name,
		"familyName": update.FamilyName,
		"email":      models.NormalizeEmail(update.Email),
		"updatedAt":  time.Now().UTC(),
	}

	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&user)
	if err != nil {
		return models.User{}, mapError("user", err)
	}
	if err := checkDocument(&user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password":  passwordHash,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

// AddChild appends a child reference to the user's ordered child list.
func (r *MongoUserRepository) AddChild(ctx context.Context, userID, childID bson.ObjectID) error {
	return r.updateChildren(ctx, userID, bson.M{"$push": bson.M{"children": childID}})
}

// RemoveChild detaches a child reference from the user.
func (r *MongoUserRepository) RemoveChild(ctx context.Context, userID, childID bson.ObjectID) error {
	return r.updateChildren(ctx, userID, bson.M{"$pull": bson.M{"children": childID}})
}

func (r *MongoUserRepository) updateChildren(ctx context.Context, userID bson.ObjectID, update bson.M) error {
	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user children: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return models.User{}, mapError("user", err)
	}
	if err := checkDocument(&user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// mapError converts driver errors into repository sentinels.
func mapError(entity string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", entity, ErrDuplicate)
	default:
		return fmt.Errorf("%s query failed: %w", entity, err)
	}
}
