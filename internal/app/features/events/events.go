package events

import (
	"net/http"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	"github.com/dalemusser/giftcircle/internal/app/services/participation"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// Create handles POST /api/events.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	var req createEventRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	in := participation.NewEvent{
		Name:             req.Name,
		StartsAt:         req.StartsAt,
		MaxParticipants:  req.MaxParticipants,
		SelfRegistration: req.SelfRegistration,
		DrawEnabled:      req.DrawEnabled,
		IncludeOrganizer: req.IncludeOrganizer,
	}
	for _, p := range req.Invitees {
		in.Invitees = append(in.Invitees, participation.Invitee{FirstName: p.FirstName, LastName: p.LastName, Email: p.Email})
	}

	ev, err := h.Svc.CreateEvent(r.Context(), who, in)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, toEventView(&ev, who.ID))
}

// List handles GET /api/events?role=organized|joined.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)

	var (
		evs []models.Event
		err error
	)
	switch query.Get(r, "role") {
	case "", "organized":
		evs, err = h.Svc.ListOrganized(r.Context(), who)
	case "joined":
		evs, err = h.Svc.ListJoined(r.Context(), who)
	default:
		apierr.JSON(w, http.StatusBadRequest, apierr.Body{Error: apierr.Detail{Code: "invalid", Message: "role must be organized or joined"}})
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	out := make([]eventView, 0, len(evs))
	for i := range evs {
		out = append(out, toEventView(&evs[i], who.ID))
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"events": out})
}

// Show handles GET /api/events/{eventID}. An invite token in ?invite= lets
// its holder see the event before joining.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ev, err := h.Svc.GetEvent(r.Context(), eventID, who, query.Get(r, "invite"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, toEventView(&ev, who.ID))
}

// Delete handles DELETE /api/events/{eventID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := h.Svc.DeleteEvent(r.Context(), eventID, who); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /api/events/{eventID}/complete. The body may carry
// {"completed": false} to reopen the event.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req completeRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	if err := h.Svc.MarkComplete(r.Context(), eventID, who, completed); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
