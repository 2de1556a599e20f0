package wishlinks_test

import (
	"testing"

	"github.com/dalemusser/giftcircle/internal/app/services/wishlinks"
	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func account(id primitive.ObjectID) models.EffectiveIdentity {
	return models.EffectiveIdentity{Kind: models.IdentityAccount, ID: id, AccountID: id}
}

func TestLink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc := wishlinks.New(db, nil, nil, zap.NewNop())
	store := eventstore.New(db)

	organizer := primitive.NewObjectID()
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	ev, ids := fixtures.CreateEvent(ctx, testutil.EventSpec{
		Name:        "Office",
		OrganizerID: organizer,
		Slots: []testutil.SlotSpec{
			{FirstName: "Alice", BoundTo: &alice},
			{FirstName: "Bob", BoundTo: &bob},
			{FirstName: "Placeholder"},
		},
	})
	aliceSlot, bobSlot, openSlot := ids[0], ids[1], ids[2]

	w1 := fixtures.CreateWishlist(ctx, "Books", alice, nil)
	w2 := fixtures.CreateWishlist(ctx, "Games", alice, nil)

	linked := func(slotID string) *primitive.ObjectID {
		t.Helper()
		got, err := store.GetByID(ctx, ev.ID)
		require.NoError(t, err)
		return got.Participants[slotID].LinkedWishlistID
	}

	t.Run("bound identity links", func(t *testing.T) {
		require.NoError(t, svc.Link(ctx, ev.ID, aliceSlot, w1.ID, account(alice)))
		require.NotNil(t, linked(aliceSlot))
		assert.Equal(t, w1.ID, *linked(aliceSlot))
	})

	t.Run("linking again is idempotent", func(t *testing.T) {
		require.NoError(t, svc.Link(ctx, ev.ID, aliceSlot, w1.ID, account(alice)))
		assert.Equal(t, w1.ID, *linked(aliceSlot))
	})

	t.Run("relink overwrites", func(t *testing.T) {
		require.NoError(t, svc.Link(ctx, ev.ID, aliceSlot, w2.ID, account(alice)))
		assert.Equal(t, w2.ID, *linked(aliceSlot))
	})

	t.Run("other identity is not the owner", func(t *testing.T) {
		err := svc.Link(ctx, ev.ID, aliceSlot, w1.ID, account(bob))
		require.ErrorIs(t, err, errs.ErrNotOwner)
		assert.Equal(t, w2.ID, *linked(aliceSlot))
	})

	t.Run("organizer cannot link for an unclaimed slot", func(t *testing.T) {
		err := svc.Link(ctx, ev.ID, openSlot, w1.ID, account(organizer))
		require.ErrorIs(t, err, errs.ErrNotOwner)
	})

	t.Run("missing wishlist", func(t *testing.T) {
		err := svc.Link(ctx, ev.ID, bobSlot, primitive.NewObjectID(), account(bob))
		require.ErrorIs(t, err, errs.ErrNotFound)
		assert.Nil(t, linked(bobSlot))
	})

	t.Run("missing slot and event", func(t *testing.T) {
		require.ErrorIs(t, svc.Link(ctx, ev.ID, "nope", w1.ID, account(alice)), errs.ErrNotFound)
		require.ErrorIs(t, svc.Link(ctx, primitive.NewObjectID(), aliceSlot, w1.ID, account(alice)), errs.ErrNotFound)
	})

	t.Run("unlink", func(t *testing.T) {
		require.ErrorIs(t, svc.Unlink(ctx, ev.ID, aliceSlot, account(bob)), errs.ErrNotOwner)
		require.NoError(t, svc.Unlink(ctx, ev.ID, aliceSlot, account(alice)))
		assert.Nil(t, linked(aliceSlot))
	})

	t.Run("existing wishlist of another owner links", func(t *testing.T) {
		require.NoError(t, svc.Link(ctx, ev.ID, bobSlot, w2.ID, account(bob)))
		assert.Equal(t, w2.ID, *linked(bobSlot))
	})
}

func TestLinkable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc := wishlinks.New(db, nil, nil, zap.NewNop())
	alice := primitive.NewObjectID()
	fixtures.CreateWishlist(ctx, "Books", alice, nil)
	fixtures.CreateWishlist(ctx, "Games", alice, nil)
	fixtures.CreateWishlist(ctx, "Other", primitive.NewObjectID(), nil)

	got, err := svc.Linkable(ctx, account(alice))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	none, err := svc.Linkable(ctx, account(primitive.NewObjectID()))
	require.NoError(t, err)
	assert.Empty(t, none)
}
