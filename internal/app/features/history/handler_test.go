package history_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/features/history"
	"github.com/dalemusser/giftcircle/internal/app/store/audit"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/giftcircle/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type historyBody struct {
	Entries []struct {
		EventType string `json:"event_type"`
		SlotID    string `json:"slot_id"`
	} `json:"entries"`
	Range struct {
		Start     int `json:"start"`
		End       int `json:"end"`
		NextStart int `json:"next_start"`
	} `json:"range"`
	HasNext bool `json:"has_next"`
}

func TestHistoryList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := fx.CreateAccount(ctx, "Olive Organizer")
	guest := fx.CreateAccount(ctx, "Gary Guest")
	ev, slots := fx.CreateEvent(ctx, testutil.EventSpec{
		Name:        "Office Swap",
		OrganizerID: org.ID,
		Slots:       []testutil.SlotSpec{{FirstName: "Gary", LastName: "Guest", BoundTo: &guest.ID}},
	})
	other, _ := fx.CreateEvent(ctx, testutil.EventSpec{Name: "Other", OrganizerID: org.ID})

	store := audit.New(db)
	base := time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC)
	types := []string{audit.EventEventCreated, audit.EventSlotRegistered, audit.EventSlotClaimed, audit.EventDrawCreated, audit.EventDrawFinalized}
	for i, et := range types {
		cat := audit.CategoryOrganizer
		if et == audit.EventSlotClaimed {
			cat = audit.CategoryParticipation
		}
		require.NoError(t, store.Log(ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Category:  cat,
			EventType: et,
			EventID:   &ev.ID,
			SlotID:    slots[0],
			ActorID:   &org.ID,
			Success:   true,
		}))
	}
	require.NoError(t, store.Log(ctx, audit.Event{Timestamp: base, Category: audit.CategoryOrganizer, EventType: audit.EventEventCreated, EventID: &other.ID, Success: true}))

	h := history.NewHandler(db, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/api/events", h.MountRoutes)

	get := func(who primitive.ObjectID, target string) *testutil.ResponseRecorder {
		req := actor.With(testutil.NewJSONRequest(t, http.MethodGet, target, nil),
			models.EffectiveIdentity{Kind: models.IdentityAccount, ID: who, AccountID: who})
		rec := testutil.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	path := "/api/events/" + ev.ID.Hex() + "/history"

	t.Run("newest first", func(t *testing.T) {
		rec := get(org.ID, path)
		rec.AssertStatus(t, http.StatusOK)
		var body historyBody
		rec.DecodeJSON(t, &body)
		require.Len(t, body.Entries, len(types))
		assert.Equal(t, audit.EventDrawFinalized, body.Entries[0].EventType)
		assert.Equal(t, audit.EventEventCreated, body.Entries[len(types)-1].EventType)
		assert.False(t, body.HasNext)
	})

	t.Run("paged", func(t *testing.T) {
		rec := get(org.ID, path+"?limit=2&start=3")
		rec.AssertStatus(t, http.StatusOK)
		var body historyBody
		rec.DecodeJSON(t, &body)
		require.Len(t, body.Entries, 2)
		assert.Equal(t, audit.EventSlotClaimed, body.Entries[0].EventType)
		assert.True(t, body.HasNext)
		assert.Equal(t, 3, body.Range.Start)
		assert.Equal(t, 4, body.Range.End)
		assert.Equal(t, 5, body.Range.NextStart)
	})

	t.Run("filtered by category", func(t *testing.T) {
		rec := get(org.ID, path+"?category=participation")
		rec.AssertStatus(t, http.StatusOK)
		var body historyBody
		rec.DecodeJSON(t, &body)
		require.Len(t, body.Entries, 1)
		assert.Equal(t, slots[0], body.Entries[0].SlotID)
	})

	t.Run("date window", func(t *testing.T) {
		rec := get(org.ID, path+"?start_date=2026-12-02")
		rec.AssertStatus(t, http.StatusOK)
		var body historyBody
		rec.DecodeJSON(t, &body)
		assert.Empty(t, body.Entries)
	})

	cases := []struct {
		name   string
		who    primitive.ObjectID
		target string
		status int
	}{
		{"participant denied", guest.ID, path, http.StatusForbidden},
		{"unknown category", org.ID, path + "?category=billing", http.StatusBadRequest},
		{"bad date", org.ID, path + "?end_date=yesterday", http.StatusBadRequest},
		{"missing event", org.ID, "/api/events/" + primitive.NewObjectID().Hex() + "/history", http.StatusNotFound},
		{"malformed id", org.ID, "/api/events/nope/history", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			get(tc.who, tc.target).AssertStatus(t, tc.status)
		})
	}
}

func TestHistoryList_Unauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := history.NewHandler(db, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/api/events", h.MountRoutes)

	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewJSONRequest(t, http.MethodGet, "/api/events/"+primitive.NewObjectID().Hex()+"/history", nil))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
