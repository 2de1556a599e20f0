// Package draws computes the secret giver -> recipient assignment over an
// event's confirmed slots and keeps it honest as the roster changes. The
// assignment is keyed by slot id, so rebinding a slot to a new identity
// never rewrites it; it is only re-validated.
package draws

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/app/system/auditlog"
	"github.com/dalemusser/giftcircle/internal/app/system/metrics"
	"github.com/dalemusser/giftcircle/internal/app/system/retry"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Service struct {
	events      *eventstore.Store
	audit       *auditlog.Logger
	metrics     *metrics.Metrics
	log         *zap.Logger
	tracer      trace.Tracer
	shuffle     Shuffler
	maxAttempts int
	now         func() time.Time
}

type Option func(*Service)

// WithMaxAttempts caps shuffle-and-reject.
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = n }
}

// WithRand draws from r instead of the global source. Access to r is
// serialized.
func WithRand(r *rand.Rand) Option {
	var mu sync.Mutex
	return func(s *Service) {
		s.shuffle = func(n int, swap func(i, j int)) {
			mu.Lock()
			defer mu.Unlock()
			r.Shuffle(n, swap)
		}
	}
}

// WithShuffler replaces the shuffle used for drawing.
func WithShuffler(f Shuffler) Option {
	return func(s *Service) { s.shuffle = f }
}

func New(db *mongo.Database, audit *auditlog.Logger, m *metrics.Metrics, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		events:      eventstore.New(db),
		audit:       audit,
		metrics:     m,
		log:         log,
		tracer:      otel.Tracer("giftcircle/draws"),
		shuffle:     rand.Shuffle,
		maxAttempts: DefaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) loadEvent(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	ev, err := retry.Read(ctx, s.log, "draws.load_event", func(ctx context.Context) (models.Event, error) {
		return s.events.GetByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, fmt.Errorf("event %s: %w", id.Hex(), errs.ErrNotFound)
		}
		return models.Event{}, fmt.Errorf("load event: %w", err)
	}
	return ev, nil
}

func (s *Service) requireOrganizer(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (models.Event, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	if !ev.IsOrganizer(actor.ID) {
		return models.Event{}, fmt.Errorf("event %s: organizer only: %w", eventID.Hex(), errs.ErrPermissionDenied)
	}
	return ev, nil
}

func (s *Service) start(ctx context.Context, op string, eventID primitive.ObjectID) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "draws."+op, trace.WithAttributes(attribute.String("event.id", eventID.Hex())))
}

func finish(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		return
	}
	if errs.IsDomain(err) {
		span.SetAttributes(attribute.String("outcome", metrics.Outcome(err)))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Draw computes and stores a new assignment over the confirmed slots.
func (s *Service) Draw(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (draw models.DrawAssignment, err error) {
	ctx, span := s.start(ctx, "draw", eventID)
	attempts := 0
	defer func() {
		s.metrics.ObserveDraw(err, attempts)
		finish(span, err)
	}()

	ev, err := s.requireOrganizer(ctx, eventID, actor)
	if err != nil {
		return models.DrawAssignment{}, err
	}
	if !ev.DrawEnabled {
		return models.DrawAssignment{}, fmt.Errorf("draws are disabled for event %s: %w", eventID.Hex(), errs.ErrDrawNotReady)
	}
	if ev.Draw != nil {
		return models.DrawAssignment{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrAlreadyDrawn)
	}
	ids := ev.ConfirmedSlotIDs()
	if len(ids) < 2 {
		return models.DrawAssignment{}, fmt.Errorf("need at least 2 confirmed participants, have %d: %w", len(ids), errs.ErrDrawNotReady)
	}

	pairs, attempts, err := Derange(ids, s.shuffle, s.maxAttempts)
	if err != nil {
		return models.DrawAssignment{}, fmt.Errorf("draw: %w", err)
	}
	span.SetAttributes(attribute.Int("draw.slots", len(ids)), attribute.Int("draw.attempts", attempts))

	draw = models.DrawAssignment{
		Pairs: pairs,
		Slots: ids,
		// BSON dates keep milliseconds; truncate so the stored value
		// round-trips exactly for FinalizeDraw's filter.
		DrawnAt: s.now().Truncate(time.Millisecond),
	}
	if err := s.events.SetDraw(ctx, eventID, ev.RosterRev, draw); err != nil {
		if !errors.Is(err, eventstore.ErrPreconditionFailed) {
			return models.DrawAssignment{}, fmt.Errorf("store draw: %w", err)
		}
		cur, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return models.DrawAssignment{}, err
		}
		if cur.Draw != nil {
			return models.DrawAssignment{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrAlreadyDrawn)
		}
		return models.DrawAssignment{}, fmt.Errorf("roster changed during draw, try again: %w", errs.ErrConflict)
	}

	s.audit.DrawCreated(ctx, eventID, actor.ID, len(ids))
	return draw, nil
}

// Rebind re-validates the draw after slotID's binding changed or the slot
// was removed. It never modifies the draw. A draw that references missing
// or unconfirmed slots yields a *errs.StaleAssignmentError.
func (s *Service) Rebind(ctx context.Context, eventID primitive.ObjectID, slotID string) (err error) {
	ctx, span := s.start(ctx, "rebind", eventID)
	span.SetAttributes(attribute.String("slot.id", slotID))
	defer func() { finish(span, err) }()

	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.Draw == nil {
		return nil
	}
	if entries := Validate(&ev); len(entries) > 0 {
		stale := &errs.StaleAssignmentError{EventID: eventID.Hex(), Entries: entries}
		s.metrics.ObserveStale()
		s.audit.StaleAssignment(ctx, eventID, slotID, stale)
		return stale
	}
	return nil
}

// Reset clears the draw, finalized or not.
func (s *Service) Reset(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (err error) {
	ctx, span := s.start(ctx, "reset", eventID)
	defer func() { finish(span, err) }()

	if _, err := s.requireOrganizer(ctx, eventID, actor); err != nil {
		return err
	}
	if err := s.events.ClearDraw(ctx, eventID); err != nil {
		if errors.Is(err, eventstore.ErrPreconditionFailed) {
			return fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrNotFound)
		}
		return fmt.Errorf("reset draw: %w", err)
	}
	s.audit.DrawReset(ctx, eventID, actor.ID)
	return nil
}

// Finalize publishes the draw to participants. Slots in a finalized draw
// cannot be removed until the draw is reset.
func (s *Service) Finalize(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (draw models.DrawAssignment, err error) {
	ctx, span := s.start(ctx, "finalize", eventID)
	defer func() { finish(span, err) }()

	ev, err := s.requireOrganizer(ctx, eventID, actor)
	if err != nil {
		return models.DrawAssignment{}, err
	}
	if ev.Draw == nil {
		return models.DrawAssignment{}, fmt.Errorf("event %s has no draw: %w", eventID.Hex(), errs.ErrDrawNotReady)
	}
	if ev.Draw.Finalized {
		return *ev.Draw, nil
	}
	if entries := Validate(&ev); len(entries) > 0 {
		return models.DrawAssignment{}, &errs.StaleAssignmentError{EventID: eventID.Hex(), Entries: entries}
	}

	if err := s.events.FinalizeDraw(ctx, eventID, ev.Draw.DrawnAt); err != nil {
		if !errors.Is(err, eventstore.ErrPreconditionFailed) {
			return models.DrawAssignment{}, fmt.Errorf("finalize draw: %w", err)
		}
		cur, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return models.DrawAssignment{}, err
		}
		switch {
		case cur.Draw == nil:
			return models.DrawAssignment{}, fmt.Errorf("event %s has no draw: %w", eventID.Hex(), errs.ErrDrawNotReady)
		case cur.Draw.Finalized && cur.Draw.DrawnAt.Equal(ev.Draw.DrawnAt):
			return *cur.Draw, nil
		default:
			return models.DrawAssignment{}, fmt.Errorf("draw changed during finalize: %w", errs.ErrConflict)
		}
	}

	now := s.now()
	draw = *ev.Draw
	draw.Finalized = true
	draw.FinalizedAt = &now
	s.audit.DrawFinalized(ctx, eventID, actor.ID)
	return draw, nil
}

// Check returns the current draw and any stale entries. Stale entries are a
// warning here, not an error.
func (s *Service) Check(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (models.DrawAssignment, []errs.StaleEntry, error) {
	ev, err := s.requireOrganizer(ctx, eventID, actor)
	if err != nil {
		return models.DrawAssignment{}, nil, err
	}
	if ev.Draw == nil {
		return models.DrawAssignment{}, nil, fmt.Errorf("event %s has no draw: %w", eventID.Hex(), errs.ErrDrawNotReady)
	}
	return *ev.Draw, Validate(&ev), nil
}

// RecipientOf returns the slot the actor gives to. Only a finalized draw is
// visible to participants.
func (s *Service) RecipientOf(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (models.ParticipantSlot, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return models.ParticipantSlot{}, err
	}
	giver, ok := ev.SlotBoundTo(actor.ID)
	if !ok || !giver.Confirmed {
		return models.ParticipantSlot{}, fmt.Errorf("not a participant of event %s: %w", eventID.Hex(), errs.ErrPermissionDenied)
	}
	if ev.Draw == nil || !ev.Draw.Finalized {
		return models.ParticipantSlot{}, fmt.Errorf("event %s has no published draw: %w", eventID.Hex(), errs.ErrDrawNotReady)
	}
	rid, ok := ev.Draw.Pairs[giver.SlotID]
	if !ok {
		return models.ParticipantSlot{}, fmt.Errorf("slot %s is not in the draw: %w", giver.SlotID, errs.ErrNotFound)
	}
	recipient, ok := ev.Slot(rid)
	if !ok || !recipient.Confirmed {
		return models.ParticipantSlot{}, &errs.StaleAssignmentError{
			EventID: eventID.Hex(),
			Entries: []errs.StaleEntry{{GiverSlotID: giver.SlotID, RecipientSlotID: rid, MissingSlotID: rid}},
		}
	}
	return recipient, nil
}
