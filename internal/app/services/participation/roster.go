package participation

import (
	"context"
	"errors"
	"fmt"
	"time"

	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/app/system/normalize"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
)

// NewSlot describes a slot the organizer adds. With an Identity the slot is
// added already confirmed.
type NewSlot struct {
	FirstName string
	LastName  string
	Email     string
	Identity  *Binding
}

// RegisterNewSlot adds a slot to the roster and returns its id.
func (s *Service) RegisterNewSlot(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity, in NewSlot) (slotID string, err error) {
	ctx, span := s.start(ctx, "register_slot", eventID, actor)
	defer func() {
		finish(span, err)
		span.End()
	}()

	ev, err := s.requireOrganizer(ctx, eventID, actor)
	if err != nil {
		return "", err
	}

	slot, err := newSlot(in.FirstName, in.LastName, in.Email, time.Now().UTC())
	if err != nil {
		return "", err
	}
	var bound *primitive.ObjectID
	if in.Identity != nil {
		id := in.Identity.ID
		bound = &id
		slot.BoundIdentityID = &id
		slot.BoundIdentityKind = in.Identity.Kind
		if slot.BoundIdentityKind == "" {
			slot.BoundIdentityKind = models.IdentityAccount
		}
		slot.Confirmed = true
		claimedAt := slot.AddedAt
		slot.ClaimedAt = &claimedAt

		if other, ok := ev.SlotBoundTo(id); ok {
			return "", fmt.Errorf("identity already holds slot %s: %w", other.SlotID, errs.ErrConflict)
		}
		if !ev.HasCapacity() {
			return "", fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrEventFull)
		}
	}
	span.SetAttributes(attribute.String("slot.id", slot.SlotID), attribute.Bool("slot.confirmed", slot.Confirmed))

	if err := s.events.AddSlot(ctx, eventID, slot); err != nil {
		if !errors.Is(err, eventstore.ErrPreconditionFailed) {
			return "", fmt.Errorf("add slot: %w", err)
		}
		ev, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return "", err
		}
		if bound != nil {
			if other, ok := ev.SlotBoundTo(*bound); ok {
				return "", fmt.Errorf("identity already holds slot %s: %w", other.SlotID, errs.ErrConflict)
			}
			if !ev.HasCapacity() {
				return "", fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrEventFull)
			}
		}
		return "", fmt.Errorf("event %s changed while adding a slot: %w", eventID.Hex(), errs.ErrConflict)
	}

	s.audit.SlotRegistered(ctx, eventID, slot.SlotID, actor.ID, bound)
	return slot.SlotID, nil
}

// RemoveSlot deletes a slot from the roster. Slots in a finalized draw cannot
// be removed until the draw is reset. Removing a slot from a draw that is not
// final is allowed; the returned report lists the pairs now left stale.
func (s *Service) RemoveSlot(ctx context.Context, eventID primitive.ObjectID, slotID string, actor models.EffectiveIdentity) (stale *errs.StaleAssignmentError, err error) {
	ctx, span := s.start(ctx, "remove_slot", eventID, actor, attribute.String("slot.id", slotID))
	defer func() {
		finish(span, err)
		span.End()
	}()

	ev, err := s.requireOrganizer(ctx, eventID, actor)
	if err != nil {
		return nil, err
	}
	cur, ok := ev.Slot(slotID)
	if !ok {
		return nil, fmt.Errorf("slot %s: %w", slotID, errs.ErrNotFound)
	}
	if err := checkRemovable(&ev, slotID); err != nil {
		return nil, err
	}

	if err := s.events.RemoveSlot(ctx, eventID, cur); err != nil {
		if !errors.Is(err, eventstore.ErrPreconditionFailed) {
			return nil, fmt.Errorf("remove slot: %w", err)
		}
		ev, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if _, ok := ev.Slot(slotID); !ok {
			return nil, fmt.Errorf("slot %s: %w", slotID, errs.ErrNotFound)
		}
		if err := checkRemovable(&ev, slotID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("slot %s changed during removal: %w", slotID, errs.ErrConflict)
	}

	s.audit.SlotRemoved(ctx, eventID, slotID, actor.ID, cur.Confirmed)
	if ev.InDraw(slotID) {
		stale = s.rebind(ctx, eventID, slotID)
	}
	return stale, nil
}

func checkRemovable(ev *models.Event, slotID string) error {
	if ev.Draw != nil && ev.Draw.Finalized && ev.InDraw(slotID) {
		return fmt.Errorf("slot %s is in the finalized draw; reset the draw first: %w", slotID, errs.ErrConflict)
	}
	return nil
}

// newSlot builds an unclaimed placeholder slot with a fresh id.
func newSlot(first, last, email string, now time.Time) (models.ParticipantSlot, error) {
	first, last = normalize.Name(first), normalize.Name(last)
	if first == "" && last == "" {
		return models.ParticipantSlot{}, fmt.Errorf("a name is required: %w", errs.ErrInvalid)
	}
	return models.ParticipantSlot{
		SlotID:      uuid.NewString(),
		FirstName:   first,
		LastName:    last,
		DisplayName: normalize.DisplayName(first, last),
		Email:       normalize.OptionalEmail(email),
		AddedAt:     now,
	}, nil
}
