package events

import (
	"net/http"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	"github.com/dalemusser/giftcircle/internal/app/services/participation"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/go-chi/chi/v5"
)

// AddSlot handles POST /api/events/{eventID}/slots.
func (h *Handler) AddSlot(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req addSlotRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	in := participation.NewSlot{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	if req.IdentityID != nil {
		in.Identity = &participation.Binding{ID: *req.IdentityID, Kind: req.IdentityKind}
	}
	slotID, err := h.Svc.RegisterNewSlot(r.Context(), eventID, who, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, map[string]string{"slot_id": slotID})
}

// RemoveSlot handles DELETE /api/events/{eventID}/slots/{slotID}. Draw pairs
// left stale by the removal come back as warnings.
func (h *Handler) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	slotID := chi.URLParam(r, "slotID")

	stale, err := h.Svc.RemoveSlot(r.Context(), eventID, slotID, who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	resp := removeSlotResponse{SlotID: slotID}
	if stale != nil {
		resp.Warnings = stale.Entries
	}
	apierr.JSON(w, http.StatusOK, resp)
}

// Claim handles POST /api/events/{eventID}/slots/{slotID}/claim.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req claimRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	cr := participation.ClaimRequest{
		EventID:     eventID,
		SlotID:      chi.URLParam(r, "slotID"),
		Actor:       who,
		InviteToken: req.InviteToken,
		Details:     participation.Details{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email},
	}
	if req.IdentityID != nil {
		cr.Claimant = &participation.Binding{ID: *req.IdentityID, Kind: req.IdentityKind}
	}
	slot, err := h.Svc.ClaimSlot(r.Context(), cr)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, toSlotView(slot, who.ID))
}

// Join handles POST /api/events/{eventID}/join (self-registration).
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req personRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	slot, err := h.Svc.SelfRegister(r.Context(), eventID, who, participation.Details{
		FirstName: req.FirstName, LastName: req.LastName, Email: req.Email,
	})
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, toSlotView(slot, who.ID))
}

// Invite handles POST /api/events/{eventID}/slots/{slotID}/invite.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	token, err := h.Svc.IssueInvite(r.Context(), eventID, chi.URLParam(r, "slotID"), who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, map[string]string{"token": token})
}
