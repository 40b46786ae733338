package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a parent account in the system.
type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email        string          `bson:"email" json:"email"`
	PasswordHash string          `bson:"password" json:"-"` // Never expose this to the client
	Name         string          `bson:"firstName" json:"name"`
	FamilyName   string          `bson:"familyName,omitempty" json:"familyName,omitempty"`
	Children     []bson.ObjectID `bson:"children" json:"children"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Validate reports whether the document has the fields every stored user must carry.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("user: email is required")
	}
	if u.Email != NormalizeEmail(u.Email) {
		return errors.New("user: email must be lowercase")
	}
	if u.PasswordHash == "" {
		return errors.New("user: password hash is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("user: name is required")
	}
	return nil
}

// Identity returns the projection of the user that is safe to embed in a session.
func (u *User) Identity() Identity {
	return Identity{
		ID:         u.ID.Hex(),
		Email:      u.Email,
		Name:       u.Name,
		FamilyName: u.FamilyName,
	}
}

// Profile is the public view of the signed-in user.
type Profile struct {
	Name       string `json:"name"`
	FamilyName string `json:"familyName,omitempty"`
	Email      string `json:"email"`
}

// Identity is the minimal, hash-free view of an authenticated user.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	FamilyName string `json:"familyName,omitempty"`
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
