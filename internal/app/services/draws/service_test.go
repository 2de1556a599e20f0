package draws_test

import (
	"context"
	"testing"

	"github.com/dalemusser/giftcircle/internal/app/services/draws"
	"github.com/dalemusser/giftcircle/internal/app/services/participation"
	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func account(id primitive.ObjectID) models.EffectiveIdentity {
	return models.EffectiveIdentity{Kind: models.IdentityAccount, ID: id, AccountID: id}
}

type drawEnv struct {
	db        *mongo.Database
	fixtures  *testutil.Fixtures
	draws     *draws.Service
	part      *participation.Service
	organizer models.EffectiveIdentity
}

func newDrawEnv(t *testing.T, opts ...draws.Option) *drawEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	d := draws.New(db, nil, nil, zap.NewNop(), opts...)
	return &drawEnv{
		db:        db,
		fixtures:  testutil.NewFixtures(t, db),
		draws:     d,
		part:      participation.New(participation.Deps{DB: db, Draws: d, Log: zap.NewNop()}),
		organizer: account(primitive.NewObjectID()),
	}
}

// confirmedEvent creates a draw-enabled event with n slots, each bound to a
// fresh identity. It returns the event, slot ids and the identities.
func (e *drawEnv) confirmedEvent(ctx context.Context, n int) (models.Event, []string, []primitive.ObjectID) {
	spec := testutil.EventSpec{Name: "Secret Santa", OrganizerID: e.organizer.ID, DrawEnabled: true}
	people := make([]primitive.ObjectID, n)
	for i := range people {
		people[i] = primitive.NewObjectID()
		id := people[i]
		spec.Slots = append(spec.Slots, testutil.SlotSpec{FirstName: "P", LastName: string(rune('A' + i)), BoundTo: &id})
	}
	ev, ids := e.fixtures.CreateEvent(ctx, spec)
	return ev, ids, people
}

func TestDraw_NoFixedPointsFullCoverage(t *testing.T) {
	e := newDrawEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, ids, _ := e.confirmedEvent(ctx, 5)

	d, err := e.draws.Draw(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	require.Len(t, d.Pairs, 5)
	assert.ElementsMatch(t, ids, d.Slots)

	received := map[string]int{}
	for g, r := range d.Pairs {
		assert.NotEqual(t, g, r)
		received[r]++
	}
	for _, id := range ids {
		assert.Equal(t, 1, received[id], "slot %s", id)
	}

	_, stale, err := e.draws.Check(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestDraw_TwoSlotsMutual(t *testing.T) {
	e := newDrawEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, ids, _ := e.confirmedEvent(ctx, 2)
	d, err := e.draws.Draw(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	assert.Equal(t, ids[1], d.Pairs[ids[0]])
	assert.Equal(t, ids[0], d.Pairs[ids[1]])
}

func TestDraw_AgainNeedsReset(t *testing.T) {
	e := newDrawEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, _, _ := e.confirmedEvent(ctx, 4)

	_, err := e.draws.Draw(ctx, ev.ID, e.organizer)
	require.NoError(t, err)

	_, err = e.draws.Draw(ctx, ev.ID, e.organizer)
	require.ErrorIs(t, err, errs.ErrAlreadyDrawn)

	require.NoError(t, e.draws.Reset(ctx, ev.ID, e.organizer))

	d, err := e.draws.Draw(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	assert.Len(t, d.Pairs, 4)
}

func TestDraw_Preconditions(t *testing.T) {
	e := newDrawEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	one, _, _ := e.confirmedEvent(ctx, 1)
	_, err := e.draws.Draw(ctx, one.ID, e.organizer)
	assert.ErrorIs(t, err, errs.ErrDrawNotReady)

	member := primitive.NewObjectID()
	other := primitive.NewObjectID()
	disabled, _ := e.fixtures.CreateEvent(ctx, testutil.EventSpec{
		Name:        "No draw",
		OrganizerID: e.organizer.ID,
		Slots: []testutil.SlotSpec{
			{FirstName: "A", BoundTo: &member},
			{FirstName: "B", BoundTo: &other},
		},
	})
	_, err = e.draws.Draw(ctx, disabled.ID, e.organizer)
	assert.ErrorIs(t, err, errs.ErrDrawNotReady)

	ev, _, people := e.confirmedEvent(ctx, 3)
	_, err = e.draws.Draw(ctx, ev.ID, account(people[0]))
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)

	_, err = e.draws.Draw(ctx, primitive.NewObjectID(), e.organizer)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, _, err = e.draws.Check(ctx, ev.ID, e.organizer)
	assert.ErrorIs(t, err, errs.ErrDrawNotReady)
}

// Draw over {A,B,C}, then remove B: validation reports every pair that
// references B and the draw stays in place.
func TestRemoveSlot_LeavesDrawStale(t *testing.T) {
	e := newDrawEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, ids, _ := e.confirmedEvent(ctx, 3)
	a, b, c := ids[0], ids[1], ids[2]

	d, err := e.draws.Draw(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	for g, r := range d.Pairs {
		require.NotEqual(t, g, r)
	}

	stale, err := e.part.RemoveSlot(ctx, ev.ID, b, e.organizer)
	require.NoError(t, err)
	require.NotNil(t, stale)
	require.ErrorIs(t, stale, errs.ErrStaleAssignment)

	// With three slots B is a giver in one pair and a recipient in another.
	require.Len(t, stale.Entries, 2)
	for _, en := range stale.Entries {
		assert.Equal(t, b, en.MissingSlotID)
		assert.True(t, en.GiverSlotID == b || en.RecipientSlotID == b)
	}

	err = e.draws.Rebind(ctx, ev.ID, a)
	var se *errs.StaleAssignmentError
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Entries, 2)

	got, entries, err := e.draws.Check(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	assert.Equal(t, d.Pairs, got.Pairs, "the stale draw is kept intact")
	assert.Len(t, entries, 2)

	_, err = e.draws.Finalize(ctx, ev.ID, e.organizer)
	assert.ErrorIs(t, err, errs.ErrStaleAssignment)

	// Reset clears the stale condition.
	require.NoError(t, e.draws.Reset(ctx, ev.ID, e.organizer))
	require.NoError(t, e.draws.Rebind(ctx, ev.ID, c))
}

func TestFinalize_BlocksRemovalAndPublishes(t *testing.T) {
	e := newDrawEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, ids, people := e.confirmedEvent(ctx, 3)

	d, err := e.draws.Draw(ctx, ev.ID, e.organizer)
	require.NoError(t, err)

	_, err = e.draws.RecipientOf(ctx, ev.ID, account(people[0]))
	require.ErrorIs(t, err, errs.ErrDrawNotReady, "unpublished draws stay secret")

	fin, err := e.draws.Finalize(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	assert.True(t, fin.Finalized)

	again, err := e.draws.Finalize(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
	assert.True(t, again.Finalized)

	_, err = e.part.RemoveSlot(ctx, ev.ID, ids[1], e.organizer)
	require.ErrorIs(t, err, errs.ErrConflict)

	rcp, err := e.draws.RecipientOf(ctx, ev.ID, account(people[0]))
	require.NoError(t, err)
	assert.Equal(t, d.Pairs[ids[0]], rcp.SlotID)

	_, err = e.draws.RecipientOf(ctx, ev.ID, account(primitive.NewObjectID()))
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)

	require.NoError(t, e.draws.Reset(ctx, ev.ID, e.organizer))
	_, err = e.part.RemoveSlot(ctx, ev.ID, ids[1], e.organizer)
	require.NoError(t, err)
}

// A roster change between reading the event and storing the draw makes the
// draw fail with Conflict instead of storing a draw over a stale roster.
func TestDraw_RosterChangedUnderneath(t *testing.T) {
	var (
		db    *mongo.Database
		evID  primitive.ObjectID
		fired bool
	)
	e := newDrawEnv(t, draws.WithShuffler(func(n int, swap func(i, j int)) {
		if !fired {
			fired = true
			ctx, cancel := testutil.TestContext()
			defer cancel()
			err := eventstore.New(db).AddSlot(ctx, evID, models.ParticipantSlot{SlotID: uuid.NewString(), FirstName: "Late"})
			if err != nil {
				panic(err)
			}
		}
		for i := n - 1; i > 0; i-- {
			swap(i, i-1)
		}
	}))
	db = e.db
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ev, _, _ := e.confirmedEvent(ctx, 3)
	evID = ev.ID

	_, err := e.draws.Draw(ctx, ev.ID, e.organizer)
	require.ErrorIs(t, err, errs.ErrConflict)

	_, err = e.draws.Draw(ctx, ev.ID, e.organizer)
	require.NoError(t, err)
}
