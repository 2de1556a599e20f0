package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateAccount creates a test account with the given display name.
func (f *Fixtures) CreateAccount(ctx context.Context, name string) models.Account {
	f.t.Helper()

	now := time.Now().UTC()
	acct := models.Account{
		ID:          primitive.NewObjectID(),
		DisplayName: name,
		Email:       text.Fold(name) + "@test.com",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("accounts").InsertOne(ctx, acct); err != nil {
		f.t.Fatalf("failed to create test account: %v", err)
	}
	return acct
}

// CreateProfile creates a profile owned by ownerID and co-managed by managers.
func (f *Fixtures) CreateProfile(ctx context.Context, name string, ownerID primitive.ObjectID, managers ...primitive.ObjectID) models.Profile {
	f.t.Helper()

	if managers == nil {
		managers = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	p := models.Profile{
		ID:            primitive.NewObjectID(),
		DisplayName:   name,
		DisplayNameCI: text.Fold(name),
		OwnerID:       ownerID,
		ManagerIDs:    managers,
		Visible:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// SlotSpec describes one initial roster slot for CreateEvent.
type SlotSpec struct {
	FirstName string
	LastName  string
	// BoundTo pre-binds and confirms the slot.
	BoundTo *primitive.ObjectID
}

// EventSpec describes an event for CreateEvent.
type EventSpec struct {
	Name             string
	OrganizerID      primitive.ObjectID
	MaxParticipants  int
	SelfRegistration bool
	DrawEnabled      bool
	Slots            []SlotSpec
}

// CreateEvent inserts an event with the denormalized roster fields filled in
// the same way the event store does. Slot ids are returned in the order given.
func (f *Fixtures) CreateEvent(ctx context.Context, spec EventSpec) (models.Event, []string) {
	f.t.Helper()

	now := time.Now().UTC()
	ev := models.Event{
		ID:                      primitive.NewObjectID(),
		Name:                    spec.Name,
		NameCI:                  text.Fold(spec.Name),
		OrganizerID:             spec.OrganizerID,
		MaxParticipants:         spec.MaxParticipants,
		SelfRegistrationEnabled: spec.SelfRegistration,
		DrawEnabled:             spec.DrawEnabled,
		Participants:            map[string]models.ParticipantSlot{},
		BoundIdentities:         []primitive.ObjectID{},
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	ids := make([]string, 0, len(spec.Slots))
	for _, s := range spec.Slots {
		slot := models.ParticipantSlot{
			SlotID:      uuid.NewString(),
			FirstName:   s.FirstName,
			LastName:    s.LastName,
			DisplayName: s.FirstName + " " + s.LastName,
			AddedAt:     now,
		}
		if s.BoundTo != nil {
			id := *s.BoundTo
			slot.BoundIdentityID = &id
			slot.BoundIdentityKind = models.IdentityAccount
			slot.Confirmed = true
			slot.ClaimedAt = &now
			ev.BoundIdentities = append(ev.BoundIdentities, id)
			ev.ConfirmedCount++
		}
		ev.Participants[slot.SlotID] = slot
		ids = append(ids, slot.SlotID)
	}

	if _, err := f.db.Collection("events").InsertOne(ctx, ev); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return ev, ids
}

// CreateWishlist creates a wishlist owned by ownerID with one unpurchased
// item. When purchasedFor is non-nil a second item marked purchased for
// that event is added.
func (f *Fixtures) CreateWishlist(ctx context.Context, name string, ownerID primitive.ObjectID, purchasedFor *primitive.ObjectID) models.Wishlist {
	f.t.Helper()

	w := models.Wishlist{
		ID:      primitive.NewObjectID(),
		Name:    name,
		OwnerID: ownerID,
		Items: []models.WishlistItem{
			{ID: primitive.NewObjectID(), Name: "Book"},
		},
		CreatedAt: time.Now().UTC(),
	}
	if purchasedFor != nil {
		ev := *purchasedFor
		w.Items = append(w.Items, models.WishlistItem{
			ID:                primitive.NewObjectID(),
			Name:              "Scarf",
			Purchased:         true,
			PurchasedForEvent: &ev,
		})
	}
	if _, err := f.db.Collection("wishlists").InsertOne(ctx, w); err != nil {
		f.t.Fatalf("failed to create test wishlist: %v", err)
	}
	return w
}
