package services

import (
	"errors"
	"fmt"

	"github.com/growthpath/growthpath-be/internal/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotFound           = repository.ErrNotFound
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// parseID converts a hex id into an ObjectID. A malformed id cannot name a
// stored record, so it is reported as not found.
func parseID(entity, id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
	}
	return oid, nil
}
