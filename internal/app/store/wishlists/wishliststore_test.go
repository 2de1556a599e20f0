package wishliststore_test

import (
	"testing"

	wishliststore "github.com/dalemusser/giftcircle/internal/app/store/wishlists"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Reads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := wishliststore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	eventID := primitive.NewObjectID()
	plain := fixtures.CreateWishlist(ctx, "Plain", owner, nil)
	bought := fixtures.CreateWishlist(ctx, "Bought", owner, &eventID)

	ok, err := store.Exists(ctx, plain.ID)
	if err != nil || !ok {
		t.Errorf("Exists: ok=%v err=%v", ok, err)
	}
	ok, err = store.Exists(ctx, primitive.NewObjectID())
	if err != nil || ok {
		t.Errorf("Exists missing: ok=%v err=%v", ok, err)
	}

	tests := []struct {
		name  string
		list  primitive.ObjectID
		event primitive.ObjectID
		want  bool
	}{
		{"nothing purchased", plain.ID, eventID, false},
		{"purchased for this event", bought.ID, eventID, true},
		{"purchased for another event", bought.ID, primitive.NewObjectID(), false},
	}
	for _, tt := range tests {
		has, err := store.HasPurchaseForEvent(ctx, tt.list, tt.event)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if has != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, has, tt.want)
		}
	}

	lists, err := store.ListByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(lists) != 2 {
		t.Errorf("ListByOwner: got %d, want 2", len(lists))
	}
}
