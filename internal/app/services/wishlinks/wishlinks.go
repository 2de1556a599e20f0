// Package wishlinks binds a participant's wishlist to their slot. Only the
// identity bound to a slot may link, relink or unlink its wishlist.
package wishlinks

import (
	"context"
	"errors"
	"fmt"

	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	wishliststore "github.com/dalemusser/giftcircle/internal/app/store/wishlists"
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
	events    *eventstore.Store
	wishlists *wishliststore.Store
	audit     *auditlog.Logger
	metrics   *metrics.Metrics
	log       *zap.Logger
	tracer    trace.Tracer
}

func New(db *mongo.Database, audit *auditlog.Logger, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		events:    eventstore.New(db),
		wishlists: wishliststore.New(db),
		audit:     audit,
		metrics:   m,
		log:       log,
		tracer:    otel.Tracer("giftcircle/wishlinks"),
	}
}

// Link sets the slot's linked wishlist. Relinking overwrites.
func (s *Service) Link(ctx context.Context, eventID primitive.ObjectID, slotID string, wishlistID primitive.ObjectID, actor models.EffectiveIdentity) (err error) {
	ctx, span := s.tracer.Start(ctx, "wishlinks.link", trace.WithAttributes(
		attribute.String("event.id", eventID.Hex()),
		attribute.String("slot.id", slotID),
		attribute.String("wishlist.id", wishlistID.Hex())))
	defer func() {
		s.metrics.ObserveLink("link", err)
		end(span, err)
	}()

	if _, err := s.ownedSlot(ctx, eventID, slotID, actor); err != nil {
		return err
	}

	found, err := retry.Read(ctx, s.log, "wishlinks.exists", func(ctx context.Context) (bool, error) {
		return s.wishlists.Exists(ctx, wishlistID)
	})
	if err != nil {
		return fmt.Errorf("look up wishlist: %w", err)
	}
	if !found {
		return fmt.Errorf("wishlist %s: %w", wishlistID.Hex(), errs.ErrNotFound)
	}

	if err := s.write(ctx, eventID, slotID, actor, &wishlistID); err != nil {
		return err
	}
	s.audit.WishlistLinked(ctx, eventID, slotID, actor.ID, wishlistID)
	return nil
}

// Unlink clears the slot's linked wishlist.
func (s *Service) Unlink(ctx context.Context, eventID primitive.ObjectID, slotID string, actor models.EffectiveIdentity) (err error) {
	ctx, span := s.tracer.Start(ctx, "wishlinks.unlink", trace.WithAttributes(
		attribute.String("event.id", eventID.Hex()),
		attribute.String("slot.id", slotID)))
	defer func() {
		s.metrics.ObserveLink("unlink", err)
		end(span, err)
	}()

	if _, err := s.ownedSlot(ctx, eventID, slotID, actor); err != nil {
		return err
	}
	if err := s.write(ctx, eventID, slotID, actor, nil); err != nil {
		return err
	}
	s.audit.WishlistUnlinked(ctx, eventID, slotID, actor.ID)
	return nil
}

// Linkable lists the wishlists the actor can link, newest first.
func (s *Service) Linkable(ctx context.Context, actor models.EffectiveIdentity) ([]models.Wishlist, error) {
	out, err := retry.Read(ctx, s.log, "wishlinks.linkable", func(ctx context.Context) ([]models.Wishlist, error) {
		return s.wishlists.ListByOwner(ctx, actor.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	if out == nil {
		out = []models.Wishlist{}
	}
	return out, nil
}

// ownedSlot loads the slot and checks the actor is bound to it.
func (s *Service) ownedSlot(ctx context.Context, eventID primitive.ObjectID, slotID string, actor models.EffectiveIdentity) (models.ParticipantSlot, error) {
	ev, err := retry.Read(ctx, s.log, "wishlinks.load_event", func(ctx context.Context) (models.Event, error) {
		return s.events.GetByID(ctx, eventID)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ParticipantSlot{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrNotFound)
		}
		return models.ParticipantSlot{}, fmt.Errorf("load event: %w", err)
	}
	slot, ok := ev.Slot(slotID)
	if !ok {
		return models.ParticipantSlot{}, fmt.Errorf("slot %s: %w", slotID, errs.ErrNotFound)
	}
	if !slot.BoundTo(actor.ID) {
		return models.ParticipantSlot{}, fmt.Errorf("slot %s: %w", slotID, errs.ErrNotOwner)
	}
	return slot, nil
}

// write applies the link conditioned on the slot still being bound to the
// actor; a lost race is re-diagnosed.
func (s *Service) write(ctx context.Context, eventID primitive.ObjectID, slotID string, actor models.EffectiveIdentity, wishlistID *primitive.ObjectID) error {
	err := s.events.SetWishlistLink(ctx, eventID, slotID, actor.ID, wishlistID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, eventstore.ErrPreconditionFailed) {
		return fmt.Errorf("set wishlist link: %w", err)
	}
	if _, err := s.ownedSlot(ctx, eventID, slotID, actor); err != nil {
		return err
	}
	return fmt.Errorf("slot %s changed while linking: %w", slotID, errs.ErrConflict)
}

func end(span trace.Span, err error) {
	defer span.End()
	if err != nil && !errs.IsDomain(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
