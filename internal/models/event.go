package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Event types recorded in a user's activity log.
const (
	EventChildCreate    = "child.create"
	EventChildUpdate    = "child.update"
	EventChildDelete    = "child.delete"
	EventPathEnroll     = "path.enroll"
	EventPathUnenroll   = "path.unenroll"
	EventProfileUpdate  = "profile.update"
	EventPasswordChange = "profile.password"
)

// Event represents an entry in a parent's activity feed.
type Event struct {
	ID        bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    bson.ObjectID  `bson:"userId" json:"userId"`
	ChildID   *bson.ObjectID `bson:"childId,omitempty" json:"childId,omitempty"` // Nil for account-wide events
	Type      string         `bson:"type" json:"type"`                           // e.g., "child.create", "path.enroll"
	Message   string         `bson:"message" json:"message"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
}
