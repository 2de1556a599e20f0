package validators_test

import (
	"testing"
	"time"

	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/app/system/validators"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}
	for _, expected := range []string{"events", "accounts", "profiles", "wishlists", "audit_events"} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestValidators_RejectInvalid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	validEvent := func() bson.M {
		return bson.M{
			"name":             "Office Swap",
			"name_ci":          "office swap",
			"organizer_id":     primitive.NewObjectID(),
			"max_participants": 0,
			"participants":     bson.M{},
			"confirmed_count":  0,
			"bound_identities": bson.A{},
			"roster_rev":       int64(0),
		}
	}

	tests := []struct {
		name string
		coll string
		doc  bson.M
	}{
		{"event without roster fields", "events", bson.M{"name": "x", "name_ci": "x", "organizer_id": primitive.NewObjectID()}},
		{"event with blank name", "events", func() bson.M { d := validEvent(); d["name"] = "   "; return d }()},
		{"event with negative count", "events", func() bson.M { d := validEvent(); d["confirmed_count"] = -1; return d }()},
		{"event with non-array bound identities", "events", func() bson.M { d := validEvent(); d["bound_identities"] = "nope"; return d }()},
		{"event with malformed draw", "events", func() bson.M { d := validEvent(); d["draw"] = bson.M{"pairs": bson.M{}}; return d }()},
		{"account without name", "accounts", bson.M{"email": "a@test.com"}},
		{"profile without owner", "profiles", bson.M{"display_name": "Kid"}},
		{"wishlist with bad owner", "wishlists", bson.M{"name": "Wants", "owner_id": "someone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc); err == nil {
				t.Errorf("expected validation error inserting into %s", tt.coll)
			}
		})
	}

	t.Run("valid event", func(t *testing.T) {
		if _, err := db.Collection("events").InsertOne(ctx, validEvent()); err != nil {
			t.Errorf("insert valid event failed: %v", err)
		}
	})

	t.Run("audit events accept anything", func(t *testing.T) {
		if _, err := db.Collection("audit_events").InsertOne(ctx, bson.M{"any_field": "any_value"}); err != nil {
			t.Errorf("insert to audit_events should succeed (no validator): %v", err)
		}
	})
}

// The stores and fixtures must keep producing documents the validators accept.
func TestValidators_AcceptStoreWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	fx := testutil.NewFixtures(t, db)
	org := fx.CreateAccount(ctx, "Olive Organizer")
	guest := fx.CreateAccount(ctx, "Gary Guest")
	fx.CreateProfile(ctx, "Kid", org.ID)
	fx.CreateWishlist(ctx, "Wants", org.ID, nil)

	store := eventstore.New(db)
	ev, err := store.Create(ctx, models.Event{
		Name:        "Office Swap",
		OrganizerID: org.ID,
		DrawEnabled: true,
		Participants: map[string]models.ParticipantSlot{
			"a": {SlotID: "a", FirstName: "Olive", DisplayName: "Olive", BoundIdentityID: &org.ID, BoundIdentityKind: models.IdentityAccount, Confirmed: true},
			"b": {SlotID: "b", FirstName: "Gary", DisplayName: "Gary"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.ClaimSlot(ctx, ev.ID, "b", eventstore.Claim{IdentityID: guest.ID, IdentityKind: models.IdentityAccount}); err != nil {
		t.Fatalf("ClaimSlot: %v", err)
	}
	ev, err = store.GetByID(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	draw := models.DrawAssignment{
		Pairs:   map[string]string{"a": "b", "b": "a"},
		Slots:   []string{"a", "b"},
		DrawnAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.SetDraw(ctx, ev.ID, ev.RosterRev, draw); err != nil {
		t.Fatalf("SetDraw: %v", err)
	}
	if err := store.FinalizeDraw(ctx, ev.ID, draw.DrawnAt); err != nil {
		t.Fatalf("FinalizeDraw: %v", err)
	}
}
