package participation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/app/system/normalize"
	"github.com/dalemusser/giftcircle/internal/app/system/retry"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"
)

var errInvitesDisabled = errors.New("invite links are not configured")

// Invitee is one person on the initial roster.
type Invitee struct {
	FirstName string
	LastName  string
	Email     string
}

// NewEvent describes an event to create.
type NewEvent struct {
	Name             string
	StartsAt         *time.Time
	MaxParticipants  int // 0 = unbounded
	SelfRegistration bool
	DrawEnabled      bool
	Invitees         []Invitee
	// IncludeOrganizer adds a slot for the organizer, already confirmed.
	IncludeOrganizer bool
}

// CreateEvent creates an event organized by the actor.
func (s *Service) CreateEvent(ctx context.Context, actor models.EffectiveIdentity, in NewEvent) (ev models.Event, err error) {
	ctx, span := s.tracer.Start(ctx, "participation.create_event")
	defer func() {
		finish(span, err)
		span.End()
	}()

	name := normalize.Name(in.Name)
	if name == "" {
		return models.Event{}, fmt.Errorf("event name is required: %w", errs.ErrInvalid)
	}
	if in.MaxParticipants < 0 {
		return models.Event{}, fmt.Errorf("max participants cannot be negative: %w", errs.ErrInvalid)
	}

	now := time.Now().UTC()
	participants := make(map[string]models.ParticipantSlot, len(in.Invitees)+1)
	for i, inv := range in.Invitees {
		slot, err := newSlot(inv.FirstName, inv.LastName, inv.Email, now)
		if err != nil {
			return models.Event{}, fmt.Errorf("invitee %d: %w", i+1, err)
		}
		participants[slot.SlotID] = slot
	}
	if in.IncludeOrganizer {
		first, last := splitName(normalize.Name(actor.DisplayName))
		if first == "" {
			first = "Organizer"
		}
		slot, err := newSlot(first, last, "", now)
		if err != nil {
			return models.Event{}, err
		}
		id := actor.ID
		slot.BoundIdentityID = &id
		slot.BoundIdentityKind = actor.Kind
		slot.Confirmed = true
		slot.ClaimedAt = &now
		participants[slot.SlotID] = slot
	}

	ev, err = s.events.Create(ctx, models.Event{
		Name:                    name,
		StartsAt:                in.StartsAt,
		OrganizerID:             actor.ID,
		MaxParticipants:         in.MaxParticipants,
		SelfRegistrationEnabled: in.SelfRegistration,
		DrawEnabled:             in.DrawEnabled,
		Participants:            participants,
	})
	if err != nil {
		return models.Event{}, fmt.Errorf("create event: %w", err)
	}
	span.SetAttributes(attribute.String("event.id", ev.ID.Hex()), attribute.Int("slots", len(participants)))

	s.audit.EventCreated(ctx, ev.ID, actor.ID, len(participants))
	return ev, nil
}

// DeleteEvent deletes an event. Linked wishlists are untouched.
func (s *Service) DeleteEvent(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (err error) {
	ctx, span := s.start(ctx, "delete_event", eventID, actor)
	defer func() {
		finish(span, err)
		span.End()
	}()

	if _, err := s.requireOrganizer(ctx, eventID, actor); err != nil {
		return err
	}
	n, err := s.events.Delete(ctx, eventID, actor.ID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrNotFound)
	}
	s.audit.EventDeleted(ctx, eventID, actor.ID)
	return nil
}

// GetEvent returns an event the actor may see: organizers and slot holders
// always, anyone while self-registration is open, and holders of an invite
// for one of its slots.
func (s *Service) GetEvent(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity, inviteToken string) (models.Event, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	if ev.IsOrganizer(actor.ID) || ev.SelfRegistrationEnabled {
		return ev, nil
	}
	if _, ok := ev.SlotBoundTo(actor.ID); ok {
		return ev, nil
	}
	if inviteToken != "" && s.invites != nil {
		if c, err := s.invites.Parse(inviteToken); err == nil && c.EventID == eventID.Hex() {
			if _, ok := ev.Slot(c.SlotID); ok {
				return ev, nil
			}
		}
	}
	return models.Event{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrPermissionDenied)
}

// ListOrganized returns the events the actor organizes, newest first.
func (s *Service) ListOrganized(ctx context.Context, actor models.EffectiveIdentity) ([]models.Event, error) {
	out, err := retry.Read(ctx, s.log, "participation.list_organized", func(ctx context.Context) ([]models.Event, error) {
		return s.events.ListByOrganizer(ctx, actor.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("list organized events: %w", err)
	}
	if out == nil {
		out = []models.Event{}
	}
	return out, nil
}

// ListJoined returns the events where the actor holds a slot, newest first.
func (s *Service) ListJoined(ctx context.Context, actor models.EffectiveIdentity) ([]models.Event, error) {
	out, err := retry.Read(ctx, s.log, "participation.list_joined", func(ctx context.Context) ([]models.Event, error) {
		return s.events.ListByParticipant(ctx, actor.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("list joined events: %w", err)
	}
	if out == nil {
		out = []models.Event{}
	}
	return out, nil
}

// MarkComplete sets or clears the event's completed flag.
func (s *Service) MarkComplete(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity, completed bool) (err error) {
	ctx, span := s.start(ctx, "mark_complete", eventID, actor, attribute.Bool("completed", completed))
	defer func() {
		finish(span, err)
		span.End()
	}()

	if _, err := s.requireOrganizer(ctx, eventID, actor); err != nil {
		return err
	}
	if err := s.events.SetCompleted(ctx, eventID, actor.ID, completed); err != nil {
		if errors.Is(err, eventstore.ErrPreconditionFailed) {
			return fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrNotFound)
		}
		return fmt.Errorf("mark complete: %w", err)
	}
	s.audit.EventCompleted(ctx, eventID, actor.ID, completed)
	return nil
}

// IssueInvite returns a share-link token that lets its holder claim one
// unclaimed slot.
func (s *Service) IssueInvite(ctx context.Context, eventID primitive.ObjectID, slotID string, actor models.EffectiveIdentity) (token string, err error) {
	ctx, span := s.start(ctx, "issue_invite", eventID, actor, attribute.String("slot.id", slotID))
	defer func() {
		finish(span, err)
		span.End()
	}()

	ev, err := s.requireOrganizer(ctx, eventID, actor)
	if err != nil {
		return "", err
	}
	slot, ok := ev.Slot(slotID)
	if !ok {
		return "", fmt.Errorf("slot %s: %w", slotID, errs.ErrNotFound)
	}
	if slot.Confirmed {
		return "", fmt.Errorf("slot %s: %w", slotID, errs.ErrAlreadyClaimed)
	}
	if s.invites == nil {
		return "", errInvitesDisabled
	}
	token, err = s.invites.Issue(eventID.Hex(), slotID)
	if err != nil {
		return "", fmt.Errorf("issue invite: %w", err)
	}
	s.audit.InviteIssued(ctx, eventID, slotID, actor.ID)
	return token, nil
}

// splitName splits a display name at the first space.
func splitName(full string) (first, last string) {
	first, last, _ = strings.Cut(full, " ")
	return first, last
}
