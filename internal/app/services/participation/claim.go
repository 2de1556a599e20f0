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
	"go.uber.org/zap"
)

// Binding is the identity a slot gets bound to.
type Binding struct {
	ID   primitive.ObjectID
	Kind string
}

// Details are the claimant's own name and email. Blank fields keep what the
// organizer entered on the slot.
type Details struct {
	FirstName string
	LastName  string
	Email     string
}

// ClaimRequest binds one slot.
type ClaimRequest struct {
	EventID primitive.ObjectID
	SlotID  string
	Actor   models.EffectiveIdentity
	// Claimant is the identity to bind. Nil means the actor claims for itself;
	// only the organizer may bind someone else.
	Claimant    *Binding
	InviteToken string
	Details     Details
}

// ClaimSlot binds a slot to the claimant and confirms it.
func (s *Service) ClaimSlot(ctx context.Context, req ClaimRequest) (slot models.ParticipantSlot, err error) {
	ctx, span := s.start(ctx, "claim_slot", req.EventID, req.Actor, attribute.String("slot.id", req.SlotID))
	defer func() {
		finish(span, err)
		span.End()
		s.metrics.ObserveClaim(err)
		if errs.IsDomain(err) {
			s.audit.ClaimRejected(ctx, req.EventID, req.SlotID, req.Actor.ID, err)
		}
	}()

	ev, err := s.loadEvent(ctx, req.EventID)
	if err != nil {
		return models.ParticipantSlot{}, err
	}
	cur, ok := ev.Slot(req.SlotID)
	if !ok {
		return models.ParticipantSlot{}, fmt.Errorf("slot %s: %w", req.SlotID, errs.ErrNotFound)
	}

	who := Binding{ID: req.Actor.ID, Kind: req.Actor.Kind}
	if req.Claimant != nil {
		who = *req.Claimant
	}
	if who.Kind == "" {
		who.Kind = models.IdentityAccount
	}

	if cur.Confirmed && cur.BoundTo(who.ID) && (who.ID == req.Actor.ID || ev.IsOrganizer(req.Actor.ID)) {
		return cur, nil
	}

	viaInvite, err := s.authorizeClaim(&ev, req, who)
	if err != nil {
		return models.ParticipantSlot{}, err
	}
	if err := checkClaimable(&ev, cur, who.ID); err != nil {
		return models.ParticipantSlot{}, err
	}

	c := buildClaim(cur, who, req.Details)
	if err := s.events.ClaimSlot(ctx, req.EventID, req.SlotID, c); err != nil {
		if errors.Is(err, eventstore.ErrPreconditionFailed) {
			return s.diagnoseClaim(ctx, req.EventID, req.SlotID, who.ID)
		}
		return models.ParticipantSlot{}, fmt.Errorf("claim slot: %w", err)
	}

	slot = applyClaim(cur, c, time.Now().UTC())
	s.audit.SlotClaimed(ctx, req.EventID, req.SlotID, who.ID, req.Actor.ID, viaInvite)

	if ev.InDraw(req.SlotID) {
		if stale := s.rebind(ctx, req.EventID, req.SlotID); stale != nil {
			s.log.Warn("claimed slot belongs to a stale draw",
				zap.String("event_id", req.EventID.Hex()),
				zap.String("slot_id", req.SlotID),
				zap.Int("stale_entries", len(stale.Entries)))
		}
	}
	return slot, nil
}

// authorizeClaim decides whether the actor may bind who to the slot. The
// organizer may bind any identity. Anyone else may only claim for
// themselves, with open self-registration or an invite for this exact slot.
func (s *Service) authorizeClaim(ev *models.Event, req ClaimRequest, who Binding) (viaInvite bool, err error) {
	if ev.IsOrganizer(req.Actor.ID) {
		return false, nil
	}
	if who.ID != req.Actor.ID {
		return false, fmt.Errorf("only the organizer may bind another identity: %w", errs.ErrPermissionDenied)
	}
	if req.InviteToken != "" && s.invites != nil {
		if s.invites.Verify(req.InviteToken, ev.ID.Hex(), req.SlotID) == nil {
			return true, nil
		}
	}
	if ev.SelfRegistrationEnabled {
		return false, nil
	}
	return false, fmt.Errorf("self-registration is closed: %w", errs.ErrPermissionDenied)
}

// checkClaimable applies the claim preconditions to a snapshot of the event.
func checkClaimable(ev *models.Event, cur models.ParticipantSlot, identityID primitive.ObjectID) error {
	if cur.Confirmed {
		return fmt.Errorf("slot %s: %w", cur.SlotID, errs.ErrAlreadyClaimed)
	}
	if other, ok := ev.SlotBoundTo(identityID); ok && other.SlotID != cur.SlotID {
		return fmt.Errorf("identity already holds slot %s: %w", other.SlotID, errs.ErrConflict)
	}
	if !ev.HasCapacity() {
		return fmt.Errorf("event %s: %w", ev.ID.Hex(), errs.ErrEventFull)
	}
	return nil
}

// diagnoseClaim re-reads the event after a conditional claim matched nothing
// and reports the precondition that failed.
func (s *Service) diagnoseClaim(ctx context.Context, eventID primitive.ObjectID, slotID string, identityID primitive.ObjectID) (models.ParticipantSlot, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return models.ParticipantSlot{}, err
	}
	cur, ok := ev.Slot(slotID)
	if !ok {
		return models.ParticipantSlot{}, fmt.Errorf("slot %s: %w", slotID, errs.ErrNotFound)
	}
	if cur.Confirmed && cur.BoundTo(identityID) {
		// A concurrent request for the same identity won; same end state.
		return cur, nil
	}
	if err := checkClaimable(&ev, cur, identityID); err != nil {
		return models.ParticipantSlot{}, err
	}
	return models.ParticipantSlot{}, fmt.Errorf("slot %s changed during claim: %w", slotID, errs.ErrConflict)
}

func buildClaim(cur models.ParticipantSlot, who Binding, d Details) eventstore.Claim {
	first := normalize.Name(d.FirstName)
	last := normalize.Name(d.LastName)
	email := normalize.OptionalEmail(d.Email)

	c := eventstore.Claim{
		IdentityID:   who.ID,
		IdentityKind: who.Kind,
		Rename:       first != "" || last != "" || email != nil,
	}
	if !c.Rename {
		return c
	}
	if first == "" {
		first = cur.FirstName
	}
	if last == "" {
		last = cur.LastName
	}
	if email == nil {
		email = cur.Email
	}
	c.FirstName = first
	c.LastName = last
	c.DisplayName = normalize.DisplayName(first, last)
	c.Email = email
	return c
}

func applyClaim(cur models.ParticipantSlot, c eventstore.Claim, now time.Time) models.ParticipantSlot {
	id := c.IdentityID
	cur.BoundIdentityID = &id
	cur.BoundIdentityKind = c.IdentityKind
	cur.Confirmed = true
	cur.ClaimedAt = &now
	if c.Rename {
		cur.FirstName = c.FirstName
		cur.LastName = c.LastName
		cur.DisplayName = c.DisplayName
		cur.Email = c.Email
	}
	return cur
}

// SelfRegister creates a new slot for the actor and confirms it in one
// update. An actor that already holds a slot gets that slot back.
func (s *Service) SelfRegister(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity, d Details) (slot models.ParticipantSlot, err error) {
	ctx, span := s.start(ctx, "self_register", eventID, actor)
	defer func() {
		finish(span, err)
		span.End()
		s.metrics.ObserveClaim(err)
		if errs.IsDomain(err) {
			s.audit.ClaimRejected(ctx, eventID, "", actor.ID, err)
		}
	}()

	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return models.ParticipantSlot{}, err
	}
	if existing, ok := ev.SlotBoundTo(actor.ID); ok {
		return existing, nil
	}
	if !ev.SelfRegistrationEnabled {
		return models.ParticipantSlot{}, fmt.Errorf("self-registration is closed: %w", errs.ErrPermissionDenied)
	}
	if !ev.HasCapacity() {
		return models.ParticipantSlot{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrEventFull)
	}

	first, last := normalize.Name(d.FirstName), normalize.Name(d.LastName)
	if first == "" && last == "" {
		first, last = splitName(normalize.Name(actor.DisplayName))
	}
	if first == "" && last == "" {
		return models.ParticipantSlot{}, fmt.Errorf("a name is required: %w", errs.ErrInvalid)
	}

	now := time.Now().UTC()
	id := actor.ID
	slot = models.ParticipantSlot{
		SlotID:            uuid.NewString(),
		FirstName:         first,
		LastName:          last,
		DisplayName:       normalize.DisplayName(first, last),
		Email:             normalize.OptionalEmail(d.Email),
		BoundIdentityID:   &id,
		BoundIdentityKind: actor.Kind,
		Confirmed:         true,
		AddedAt:           now,
		ClaimedAt:         &now,
	}
	if slot.BoundIdentityKind == "" {
		slot.BoundIdentityKind = models.IdentityAccount
	}

	if err := s.events.AddSlot(ctx, eventID, slot); err != nil {
		if !errors.Is(err, eventstore.ErrPreconditionFailed) {
			return models.ParticipantSlot{}, fmt.Errorf("self-register: %w", err)
		}
		ev, err := s.loadEvent(ctx, eventID)
		if err != nil {
			return models.ParticipantSlot{}, err
		}
		if existing, ok := ev.SlotBoundTo(actor.ID); ok {
			return existing, nil
		}
		if !ev.HasCapacity() {
			return models.ParticipantSlot{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrEventFull)
		}
		return models.ParticipantSlot{}, fmt.Errorf("event %s changed during registration: %w", eventID.Hex(), errs.ErrConflict)
	}

	s.audit.SelfRegistered(ctx, eventID, slot.SlotID, actor.ID)
	return slot, nil
}

// rebind asks the draw manager to re-validate and returns the stale report,
// if any. Other failures are logged; the roster change already happened.
func (s *Service) rebind(ctx context.Context, eventID primitive.ObjectID, slotID string) *errs.StaleAssignmentError {
	if s.draws == nil {
		return nil
	}
	err := s.draws.Rebind(ctx, eventID, slotID)
	var stale *errs.StaleAssignmentError
	if errors.As(err, &stale) {
		return stale
	}
	if err != nil {
		s.log.Warn("draw rebind failed",
			zap.String("event_id", eventID.Hex()),
			zap.String("slot_id", slotID),
			zap.Error(err))
	}
	return nil
}
