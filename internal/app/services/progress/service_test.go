package progress_test

import (
	"testing"

	"github.com/dalemusser/giftcircle/internal/app/services/progress"
	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	svc := progress.New(db, zap.NewNop())
	organizer := primitive.NewObjectID()
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	ev, ids := fx.CreateEvent(ctx, testutil.EventSpec{
		Name:        "Office party",
		OrganizerID: organizer,
		Slots: []testutil.SlotSpec{
			{FirstName: "Alice", BoundTo: &alice},
			{FirstName: "Bob", BoundTo: &bob},
		},
	})

	// Alice's list has a purchase for this event, Bob's does not.
	aliceList := fx.CreateWishlist(ctx, "Alice", alice, &ev.ID)
	bobList := fx.CreateWishlist(ctx, "Bob", bob, nil)
	store := eventstore.New(db)
	require.NoError(t, store.SetWishlistLink(ctx, ev.ID, ids[0], alice, &aliceList.ID))
	require.NoError(t, store.SetWishlistLink(ctx, ev.ID, ids[1], bob, &bobList.ID))

	org := models.EffectiveIdentity{Kind: models.IdentityAccount, ID: organizer, AccountID: organizer}
	c, err := svc.Progress(ctx, ev.ID, org)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusComplete, c.Status(progress.StepRegistration))
	assert.Equal(t, progress.StatusNotApplicable, c.Status(progress.StepDraw))
	assert.Equal(t, progress.StatusComplete, c.Status(progress.StepWishlist))
	assert.Equal(t, progress.StatusPending, c.Status(progress.StepPurchase))
	assert.Equal(t, progress.StepPurchase, c.Current)

	// A participant may read it too.
	_, err = svc.Progress(ctx, ev.ID, models.EffectiveIdentity{Kind: models.IdentityAccount, ID: bob, AccountID: bob})
	require.NoError(t, err)

	stranger := primitive.NewObjectID()
	_, err = svc.Progress(ctx, ev.ID, models.EffectiveIdentity{Kind: models.IdentityAccount, ID: stranger, AccountID: stranger})
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)

	_, err = svc.Progress(ctx, primitive.NewObjectID(), org)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
