// internal/app/store/events/eventstore.go
package eventstore

// Every roster mutation below is a single UpdateOne against one event
// document. The filter carries the preconditions (slot state, capacity,
// one slot per identity, draw state) so MongoDB's single-document atomicity
// is the serialization point. When a conditional write matches nothing the
// store returns ErrPreconditionFailed and the caller re-reads the document to
// find out which precondition no longer holds.

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	// ErrPreconditionFailed is returned when a conditional update matched no
	// document: the event is gone or one of the filter preconditions no
	// longer holds.
	ErrPreconditionFailed = errors.New("event update precondition failed")
	// ErrBadSlotID is returned for slot ids that cannot be used as a field name.
	ErrBadSlotID = errors.New("slot id must be non-empty and contain no '.' or '$'")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("events")}
}

func slotPath(slotID string, field string) (string, error) {
	if slotID == "" || strings.ContainsAny(slotID, ".$") {
		return "", ErrBadSlotID
	}
	if field == "" {
		return "participants." + slotID, nil
	}
	return "participants." + slotID + "." + field, nil
}

// hasCapacity is an $or clause matching events where one more slot may be
// confirmed. A max_participants of 0 means unbounded.
func hasCapacity() bson.A {
	return bson.A{
		bson.M{"max_participants": bson.M{"$lte": 0}},
		bson.M{"$expr": bson.M{"$lt": bson.A{"$confirmed_count", "$max_participants"}}},
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var ev models.Event
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ev); err != nil {
		return models.Event{}, err
	}
	if ev.Participants == nil {
		ev.Participants = map[string]models.ParticipantSlot{}
	}
	return ev, nil
}

// Create inserts a new event. Denormalized roster fields are derived from the
// initial participant map.
func (s *Store) Create(ctx context.Context, ev models.Event) (models.Event, error) {
	now := time.Now().UTC()
	ev.ID = primitive.NewObjectID()
	ev.NameCI = text.Fold(ev.Name)
	if ev.Participants == nil {
		ev.Participants = map[string]models.ParticipantSlot{}
	}
	ev.BoundIdentities = []primitive.ObjectID{}
	for id, slot := range ev.Participants {
		if _, err := slotPath(id, ""); err != nil {
			return models.Event{}, err
		}
		if slot.IsBound() {
			ev.BoundIdentities = append(ev.BoundIdentities, *slot.BoundIdentityID)
		}
	}
	ev.ConfirmedCount = ev.CountConfirmed()
	ev.RosterRev = 0
	ev.Draw = nil
	ev.CreatedAt = now
	ev.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, ev); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// Delete removes an event owned by organizerID. Returns the number of
// documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id, organizerID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "organizer_id": organizerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListByOrganizer returns the events organized by an identity, newest first.
func (s *Store) ListByOrganizer(ctx context.Context, organizerID primitive.ObjectID) ([]models.Event, error) {
	return s.find(ctx, bson.M{"organizer_id": organizerID})
}

// ListByParticipant returns the events where an identity holds a slot.
func (s *Store) ListByParticipant(ctx context.Context, identityID primitive.ObjectID) ([]models.Event, error) {
	return s.find(ctx, bson.M{"bound_identities": identityID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetCompleted flips the organizer's "event complete" flag.
func (s *Store) SetCompleted(ctx context.Context, id, organizerID primitive.ObjectID, completed bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "organizer_id": organizerID},
		bson.M{"$set": bson.M{"completed": completed, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPreconditionFailed
	}
	return nil
}

// Claim describes the identity binding applied to a slot.
type Claim struct {
	IdentityID   primitive.ObjectID
	IdentityKind string
	// When Rename is true the slot's names and email are replaced by the
	// claimant's own; otherwise the organizer's placeholder is kept.
	Rename      bool
	FirstName   string
	LastName    string
	DisplayName string
	Email       *string
}

// ClaimSlot binds an unconfirmed slot to the claimant and confirms it. The
// write only applies if the slot is still unconfirmed, the event has
// capacity and the claimant holds no other slot in the event.
func (s *Store) ClaimSlot(ctx context.Context, eventID primitive.ObjectID, slotID string, c Claim) error {
	base, err := slotPath(slotID, "")
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	filter := bson.M{
		"_id":               eventID,
		base + ".confirmed": false,
		"bound_identities":  bson.M{"$ne": c.IdentityID},
		"$or":               hasCapacity(),
	}
	set := bson.M{
		base + ".bound_identity_id":   c.IdentityID,
		base + ".bound_identity_kind": c.IdentityKind,
		base + ".confirmed":           true,
		base + ".claimed_at":          now,
		"updated_at":                  now,
	}
	if c.Rename {
		set[base+".first_name"] = c.FirstName
		set[base+".last_name"] = c.LastName
		set[base+".display_name"] = c.DisplayName
		set[base+".email"] = c.Email
	}
	update := bson.M{
		"$set":      set,
		"$inc":      bson.M{"confirmed_count": 1, "roster_rev": 1},
		"$addToSet": bson.M{"bound_identities": c.IdentityID},
	}
	return s.updateOne(ctx, filter, update)
}

// AddSlot inserts a new slot. A slot that arrives already confirmed (organizer
// pre-binding or self-registration) is subject to the same capacity and
// one-slot-per-identity guards as ClaimSlot.
func (s *Store) AddSlot(ctx context.Context, eventID primitive.ObjectID, slot models.ParticipantSlot) error {
	path, err := slotPath(slot.SlotID, "")
	if err != nil {
		return err
	}
	if slot.Confirmed && !slot.IsBound() {
		return errors.New("confirmed slot requires a bound identity")
	}
	now := time.Now().UTC()
	if slot.AddedAt.IsZero() {
		slot.AddedAt = now
	}

	filter := bson.M{
		"_id": eventID,
		path:  bson.M{"$exists": false},
	}
	inc := bson.M{"roster_rev": 1}
	update := bson.M{
		"$set": bson.M{path: slot, "updated_at": now},
		"$inc": inc,
	}
	if slot.IsBound() {
		filter["bound_identities"] = bson.M{"$ne": *slot.BoundIdentityID}
		update["$addToSet"] = bson.M{"bound_identities": *slot.BoundIdentityID}
	}
	if slot.Confirmed {
		filter["$or"] = hasCapacity()
		inc["confirmed_count"] = 1
	}
	return s.updateOne(ctx, filter, update)
}

// RemoveSlot deletes a slot. The caller passes the state it observed; the
// write applies only if the slot is still in that state and is not part of
// a finalized draw.
func (s *Store) RemoveSlot(ctx context.Context, eventID primitive.ObjectID, observed models.ParticipantSlot) error {
	path, err := slotPath(observed.SlotID, "")
	if err != nil {
		return err
	}

	filter := bson.M{
		"_id":                eventID,
		path + ".confirmed": observed.Confirmed,
		"$or": bson.A{
			bson.M{"draw.finalized": bson.M{"$ne": true}},
			bson.M{"draw.slots": bson.M{"$ne": observed.SlotID}},
		},
	}
	inc := bson.M{"roster_rev": 1}
	update := bson.M{
		"$unset": bson.M{path: ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
		"$inc":   inc,
	}
	if observed.Confirmed {
		inc["confirmed_count"] = -1
	}
	if observed.IsBound() {
		filter[path+".bound_identity_id"] = *observed.BoundIdentityID
		update["$pull"] = bson.M{"bound_identities": *observed.BoundIdentityID}
	}
	return s.updateOne(ctx, filter, update)
}

// SetDraw stores a draw if none exists and the roster has not changed since
// rosterRev was read.
func (s *Store) SetDraw(ctx context.Context, eventID primitive.ObjectID, rosterRev int64, draw models.DrawAssignment) error {
	filter := bson.M{
		"_id":        eventID,
		"draw":       nil,
		"roster_rev": rosterRev,
	}
	update := bson.M{"$set": bson.M{"draw": draw, "updated_at": time.Now().UTC()}}
	return s.updateOne(ctx, filter, update)
}

// ClearDraw removes the draw. Clearing an event without a draw is not an error.
func (s *Store) ClearDraw(ctx context.Context, eventID primitive.ObjectID) error {
	update := bson.M{
		"$unset": bson.M{"draw": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}
	return s.updateOne(ctx, bson.M{"_id": eventID}, update)
}

// FinalizeDraw marks the draw identified by drawnAt as final.
func (s *Store) FinalizeDraw(ctx context.Context, eventID primitive.ObjectID, drawnAt time.Time) error {
	now := time.Now().UTC()
	filter := bson.M{
		"_id":            eventID,
		"draw.drawn_at":  drawnAt,
		"draw.finalized": false,
	}
	update := bson.M{"$set": bson.M{
		"draw.finalized":    true,
		"draw.finalized_at": now,
		"updated_at":        now,
	}}
	return s.updateOne(ctx, filter, update)
}

// SetWishlistLink sets (or clears, when wishlistID is nil) the linked wishlist
// of a slot, provided the slot is still bound to identityID.
func (s *Store) SetWishlistLink(ctx context.Context, eventID primitive.ObjectID, slotID string, identityID primitive.ObjectID, wishlistID *primitive.ObjectID) error {
	base, err := slotPath(slotID, "")
	if err != nil {
		return err
	}
	filter := bson.M{
		"_id":                       eventID,
		base + ".bound_identity_id": identityID,
	}
	update := bson.M{"$set": bson.M{
		base + ".linked_wishlist_id": wishlistID,
		"updated_at":                 time.Now().UTC(),
	}}
	return s.updateOne(ctx, filter, update)
}

func (s *Store) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPreconditionFailed
	}
	return nil
}
