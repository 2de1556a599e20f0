package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryParticipation = "participation" // claims, self-registration, wishlist links
	CategoryOrganizer     = "organizer"     // roster edits, draws, event lifecycle
)

// Participation event types
const (
	EventSlotClaimed       = "slot_claimed"
	EventSlotClaimRejected = "slot_claim_rejected"
	EventSelfRegistered    = "self_registered"
	EventWishlistLinked    = "wishlist_linked"
	EventWishlistUnlinked  = "wishlist_unlinked"
)

// Organizer event types
const (
	EventEventCreated    = "event_created"
	EventEventDeleted    = "event_deleted"
	EventEventCompleted  = "event_completed"
	EventSlotRegistered  = "slot_registered"
	EventSlotRemoved     = "slot_removed"
	EventInviteIssued    = "invite_issued"
	EventDrawCreated     = "draw_created"
	EventDrawReset       = "draw_reset"
	EventDrawFinalized   = "draw_finalized"
	EventStaleAssignment = "stale_assignment"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// What
	EventID *primitive.ObjectID `bson:"event_id,omitempty"`
	SlotID  string              `bson:"slot_id,omitempty"`

	// Who
	IdentityID *primitive.ObjectID `bson:"identity_id,omitempty"` // identity bound or affected
	ActorID    *primitive.ObjectID `bson:"actor_id,omitempty"`    // effective identity that acted

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	EventID   *primitive.ObjectID
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}
	if filter.EventID != nil {
		query["event_id"] = *filter.EventID
	}
	if filter.ActorID != nil {
		query["actor_id"] = *filter.ActorID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(filter))
}

// GetByEvent retrieves recent audit events for one gift-exchange event.
func (s *Store) GetByEvent(ctx context.Context, eventID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{EventID: &eventID, Limit: limit})
}
