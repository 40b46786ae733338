package services

import (
	"context"
	"fmt"
	"time"

	"github.com/growthpath/growthpath-be/internal/models"
	"github.com/growthpath/growthpath-be/internal/repository"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	DefaultEventLimit = 20
	MaxEventLimit     = 100
)

// ActivityPublisher pushes freshly recorded events to live subscribers.
type ActivityPublisher interface {
	PublishActivity(event models.Event)
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, userID bson.ObjectID, childID *bson.ObjectID, eventType, message string) error
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// EventService records and serves the per-user activity feed.
type EventService struct {
	events    repository.EventRepository
	publisher ActivityPublisher
	now       func() time.Time
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(events repository.EventRepository, publisher ActivityPublisher) *EventService {
	return &EventService{events: events, publisher: publisher, now: time.Now}
}

// CreateEvent stores a new event and broadcasts it to the owner's live connections.
func (s *EventService) CreateEvent(ctx context.Context, userID bson.ObjectID, childID *bson.ObjectID, eventType, message string) error {
	event := models.Event{
		ID:        bson.NewObjectID(),
		UserID:    userID,
		ChildID:   childID,
		Type:      eventType,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.events.Create(ctx, &event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	if s.publisher != nil {
		s.publisher.PublishActivity(event)
	}
	return nil
}

// GetRecentEvents returns the user's newest events. limit falls back to
// DefaultEventLimit when not positive and is capped at MaxEventLimit.
func (s *EventService) GetRecentEvents(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	if limit > MaxEventLimit {
		limit = MaxEventLimit
	}
	events, err := s.events.Recent(ctx, uid, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// PruneEvents deletes every event older than the retention window.
func (s *EventService) PruneEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	deleted, err := s.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}

// recordEvent writes an activity entry. The feed is secondary to the
// operation that produced it, so failures are only logged.
func recordEvent(ctx context.Context, events EventServiceProvider, userID bson.ObjectID, childID *bson.ObjectID, eventType, message string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, userID, childID, eventType, message); err != nil {
		log.Warn().Err(err).Str("user_id", userID.Hex()).Str("type", eventType).Msg("Failed to record activity event")
	}
}
