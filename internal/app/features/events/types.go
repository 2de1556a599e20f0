package events

import (
	"sort"
	"time"

	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createEventRequest struct {
	Name             string          `json:"name"`
	StartsAt         *time.Time      `json:"starts_at"`
	MaxParticipants  int             `json:"max_participants"`
	SelfRegistration bool            `json:"self_registration"`
	DrawEnabled      bool            `json:"draw_enabled"`
	IncludeOrganizer bool            `json:"include_organizer"`
	Invitees         []personRequest `json:"invitees"`
}

type personRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type addSlotRequest struct {
	personRequest
	IdentityID   *primitive.ObjectID `json:"identity_id"`
	IdentityKind string              `json:"identity_kind"`
}

type claimRequest struct {
	personRequest
	InviteToken  string              `json:"invite_token"`
	IdentityID   *primitive.ObjectID `json:"identity_id"`
	IdentityKind string              `json:"identity_kind"`
}

type completeRequest struct {
	Completed *bool `json:"completed"`
}

// eventView is what clients see of an event. Draw pairs are never exposed
// here; recipients are revealed one at a time through the draw endpoints.
type eventView struct {
	ID                      primitive.ObjectID `json:"id"`
	Name                    string             `json:"name"`
	StartsAt                *time.Time         `json:"starts_at,omitempty"`
	OrganizerID             primitive.ObjectID `json:"organizer_id"`
	IsOrganizer             bool               `json:"is_organizer"`
	MaxParticipants         int                `json:"max_participants"`
	SelfRegistrationEnabled bool               `json:"self_registration_enabled"`
	DrawEnabled             bool               `json:"draw_enabled"`
	Drawn                   bool               `json:"drawn"`
	DrawFinalized           bool               `json:"draw_finalized"`
	Completed               bool               `json:"completed"`
	ConfirmedCount          int                `json:"confirmed_count"`
	Participants            []slotView         `json:"participants"`
	CreatedAt               time.Time          `json:"created_at"`
}

type slotView struct {
	SlotID            string              `json:"slot_id"`
	FirstName         string              `json:"first_name"`
	LastName          string              `json:"last_name"`
	DisplayName       string              `json:"display_name"`
	Email             *string             `json:"email,omitempty"`
	Confirmed         bool                `json:"confirmed"`
	BoundIdentityID   *primitive.ObjectID `json:"bound_identity_id,omitempty"`
	BoundIdentityKind string              `json:"bound_identity_kind,omitempty"`
	LinkedWishlistID  *primitive.ObjectID `json:"linked_wishlist_id,omitempty"`
	IsMe              bool                `json:"is_me"`
}

type removeSlotResponse struct {
	SlotID   string            `json:"slot_id"`
	Warnings []errs.StaleEntry `json:"warnings,omitempty"`
}

// toEventView builds the client view. Emails are shown to the organizer and
// to the slot's own identity.
func toEventView(ev *models.Event, viewer primitive.ObjectID) eventView {
	org := ev.IsOrganizer(viewer)
	v := eventView{
		ID:                      ev.ID,
		Name:                    ev.Name,
		StartsAt:                ev.StartsAt,
		OrganizerID:             ev.OrganizerID,
		IsOrganizer:             org,
		MaxParticipants:         ev.MaxParticipants,
		SelfRegistrationEnabled: ev.SelfRegistrationEnabled,
		DrawEnabled:             ev.DrawEnabled,
		Drawn:                   ev.Draw != nil,
		DrawFinalized:           ev.Draw != nil && ev.Draw.Finalized,
		Completed:               ev.Completed,
		ConfirmedCount:          ev.ConfirmedCount,
		Participants:            make([]slotView, 0, len(ev.Participants)),
		CreatedAt:               ev.CreatedAt,
	}
	for _, s := range ev.Participants {
		sv := toSlotView(s, viewer)
		if !org && !sv.IsMe {
			sv.Email = nil
		}
		v.Participants = append(v.Participants, sv)
	}
	sort.Slice(v.Participants, func(i, j int) bool {
		a, b := ev.Participants[v.Participants[i].SlotID], ev.Participants[v.Participants[j].SlotID]
		if !a.AddedAt.Equal(b.AddedAt) {
			return a.AddedAt.Before(b.AddedAt)
		}
		return a.SlotID < b.SlotID
	})
	return v
}

func toSlotView(s models.ParticipantSlot, viewer primitive.ObjectID) slotView {
	return slotView{
		SlotID:            s.SlotID,
		FirstName:         s.FirstName,
		LastName:          s.LastName,
		DisplayName:       s.DisplayName,
		Email:             s.Email,
		Confirmed:         s.Confirmed,
		BoundIdentityID:   s.BoundIdentityID,
		BoundIdentityKind: s.BoundIdentityKind,
		LinkedWishlistID:  s.LinkedWishlistID,
		IsMe:              s.BoundTo(viewer),
	}
}
