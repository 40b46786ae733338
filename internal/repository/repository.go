// Package repository provides collection-scoped access to users, children,
// paths and activity events. Every document is validated on its way in and
// out of the store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/growthpath/growthpath-be/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
	ErrInvalidDocument = errors.New("document does not match schema")
)

// ChildUpdate holds the mutable fields of a child profile. An empty Gender
// leaves the stored value unchanged.
type ChildUpdate struct {
	Name     string
	Gender   models.Gender
	Birthday time.Time
}

// ProfileUpdate holds the mutable fields of a user profile.
type ProfileUpdate struct {
	Name       string
	FamilyName string
	Email      string
}

// UserRepository stores parent accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id bson.ObjectID) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, update ProfileUpdate) (models.User, error)
	UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
	AddChild(ctx context.Context, userID, childID bson.ObjectID) error
	RemoveChild(ctx context.Context, userID, childID bson.ObjectID) error
}

// ChildRepository stores child profiles. Every lookup is scoped to the owning user.
type ChildRepository interface {
	Create(ctx context.Context, child *models.Child) error
	Get(ctx context.Context, userID, childID bson.ObjectID) (models.Child, error)
	List(ctx context.Context, userID bson.ObjectID) ([]models.Child, error)
	Update(ctx context.Context, userID, childID bson.ObjectID, update ChildUpdate) (models.Child, error)
	Delete(ctx context.Context, userID, childID bson.ObjectID) error
	AddPath(ctx context.Context, userID, childID, pathID bson.ObjectID) error
	RemovePath(ctx context.Context, userID, childID, pathID bson.ObjectID) error
}

// PathRepository stores learning paths and their enrollments.
type PathRepository interface {
	List(ctx context.Context) ([]models.Path, error)
	ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Path, error)
	GetByID(ctx context.Context, id bson.ObjectID) (models.Path, error)
	GetBySlug(ctx context.Context, slug string) (models.Path, error)
	UpsertBySlug(ctx context.Context, path *models.Path) error
	AddChild(ctx context.Context, pathID, childID bson.ObjectID) error
	RemoveChild(ctx context.Context, pathID, childID bson.ObjectID) error
	RemoveChildFromAll(ctx context.Context, childID bson.ObjectID) error
}

// EventRepository stores activity feed entries.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	Recent(ctx context.Context, userID bson.ObjectID, limit int) ([]models.Event, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type validator interface {
	Validate() error
}

// checkDocument wraps a schema violation so callers can match ErrInvalidDocument.
func checkDocument(doc validator) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}
