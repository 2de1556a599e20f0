package models

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is the aggregate root for one gift-exchange event.
//
// NOTE:
//   - Participants is keyed by slot id. Slot ids are assigned when the slot is
//     created and never change, whoever ends up claiming the slot.
//   - ConfirmedCount, BoundIdentities and RosterRev are denormalized from the
//     participant map so single-document update filters can guard capacity,
//     one-slot-per-identity and draw freshness atomically.
type Event struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                    string             `bson:"name" json:"name"`
	NameCI                  string             `bson:"name_ci" json:"-"`
	StartsAt                *time.Time         `bson:"starts_at,omitempty" json:"starts_at,omitempty"`
	OrganizerID             primitive.ObjectID `bson:"organizer_id" json:"organizer_id"`
	MaxParticipants         int                `bson:"max_participants" json:"max_participants"` // 0 = unbounded
	SelfRegistrationEnabled bool               `bson:"self_registration_enabled" json:"self_registration_enabled"`
	DrawEnabled             bool               `bson:"draw_enabled" json:"draw_enabled"`
	Completed               bool               `bson:"completed" json:"completed"`

	Participants    map[string]ParticipantSlot `bson:"participants" json:"participants"`
	ConfirmedCount  int                        `bson:"confirmed_count" json:"confirmed_count"`
	BoundIdentities []primitive.ObjectID       `bson:"bound_identities" json:"-"`
	RosterRev       int64                      `bson:"roster_rev" json:"roster_rev"`

	Draw *DrawAssignment `bson:"draw,omitempty" json:"draw,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ParticipantSlot is one placeholder in the roster. A nil BoundIdentityID means
// invited but unclaimed. Confirmed implies BoundIdentityID != nil.
type ParticipantSlot struct {
	SlotID            string              `bson:"slot_id" json:"slot_id"`
	FirstName         string              `bson:"first_name" json:"first_name"`
	LastName          string              `bson:"last_name" json:"last_name"`
	DisplayName       string              `bson:"display_name" json:"display_name"`
	Email             *string             `bson:"email" json:"email,omitempty"`
	BoundIdentityID   *primitive.ObjectID `bson:"bound_identity_id" json:"bound_identity_id,omitempty"`
	BoundIdentityKind string              `bson:"bound_identity_kind,omitempty" json:"bound_identity_kind,omitempty"`
	Confirmed         bool                `bson:"confirmed" json:"confirmed"`
	LinkedWishlistID  *primitive.ObjectID `bson:"linked_wishlist_id" json:"linked_wishlist_id,omitempty"`

	AddedAt   time.Time  `bson:"added_at" json:"added_at"`
	ClaimedAt *time.Time `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`
}

// DrawAssignment maps giver slot id to recipient slot id. Slots lists every
// slot that took part in the draw so membership can be tested in a query.
type DrawAssignment struct {
	Pairs       map[string]string `bson:"pairs" json:"pairs"`
	Slots       []string          `bson:"slots" json:"slots"`
	DrawnAt     time.Time         `bson:"drawn_at" json:"drawn_at"`
	Finalized   bool              `bson:"finalized" json:"finalized"`
	FinalizedAt *time.Time        `bson:"finalized_at,omitempty" json:"finalized_at,omitempty"`
}

// IsBound reports whether the slot has been bound to a real identity.
func (s ParticipantSlot) IsBound() bool { return s.BoundIdentityID != nil }

// BoundTo reports whether the slot is bound to the given identity.
func (s ParticipantSlot) BoundTo(id primitive.ObjectID) bool {
	return s.BoundIdentityID != nil && *s.BoundIdentityID == id
}

// Slot returns the slot with the given id.
func (e *Event) Slot(slotID string) (ParticipantSlot, bool) {
	s, ok := e.Participants[slotID]
	return s, ok
}

// IsOrganizer reports whether identityID organizes the event.
func (e *Event) IsOrganizer(identityID primitive.ObjectID) bool {
	return e.OrganizerID == identityID
}

// ConfirmedSlotIDs returns the confirmed slot ids in sorted order.
func (e *Event) ConfirmedSlotIDs() []string {
	ids := make([]string, 0, len(e.Participants))
	for id, s := range e.Participants {
		if s.Confirmed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CountConfirmed counts confirmed slots from the participant map itself.
func (e *Event) CountConfirmed() int {
	n := 0
	for _, s := range e.Participants {
		if s.Confirmed {
			n++
		}
	}
	return n
}

// HasCapacity reports whether one more slot can be confirmed.
func (e *Event) HasCapacity() bool {
	return e.MaxParticipants <= 0 || e.ConfirmedCount < e.MaxParticipants
}

// SlotBoundTo returns the slot bound to identityID, if any.
func (e *Event) SlotBoundTo(identityID primitive.ObjectID) (ParticipantSlot, bool) {
	for _, s := range e.Participants {
		if s.BoundTo(identityID) {
			return s, true
		}
	}
	return ParticipantSlot{}, false
}

// InDraw reports whether slotID is a giver or recipient in the current draw.
func (e *Event) InDraw(slotID string) bool {
	if e.Draw == nil {
		return false
	}
	if _, ok := e.Draw.Pairs[slotID]; ok {
		return true
	}
	for _, r := range e.Draw.Pairs {
		if r == slotID {
			return true
		}
	}
	return false
}
