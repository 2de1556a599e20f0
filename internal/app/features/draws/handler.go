// internal/app/features/draws/handler.go
package draws

import (
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	drawsvc "github.com/dalemusser/giftcircle/internal/app/services/draws"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the draw endpoints.
type Handler struct {
	Svc *drawsvc.Service
	Log *zap.Logger
}

// NewHandler constructs a draws Handler.
func NewHandler(svc *drawsvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type pairView struct {
	GiverSlotID     string `json:"giver_slot_id"`
	RecipientSlotID string `json:"recipient_slot_id"`
}

// drawView is the organizer's view of a draw.
type drawView struct {
	Pairs       []pairView        `json:"pairs"`
	DrawnAt     time.Time         `json:"drawn_at"`
	Finalized   bool              `json:"finalized"`
	FinalizedAt *time.Time        `json:"finalized_at,omitempty"`
	Warnings    []errs.StaleEntry `json:"warnings,omitempty"`
}

type recipientView struct {
	SlotID           string              `json:"slot_id"`
	DisplayName      string              `json:"display_name"`
	FirstName        string              `json:"first_name"`
	LastName         string              `json:"last_name"`
	LinkedWishlistID *primitive.ObjectID `json:"linked_wishlist_id,omitempty"`
}

func toDrawView(d models.DrawAssignment, stale []errs.StaleEntry) drawView {
	v := drawView{
		Pairs:       make([]pairView, 0, len(d.Pairs)),
		DrawnAt:     d.DrawnAt,
		Finalized:   d.Finalized,
		FinalizedAt: d.FinalizedAt,
		Warnings:    stale,
	}
	for g, r := range d.Pairs {
		v.Pairs = append(v.Pairs, pairView{GiverSlotID: g, RecipientSlotID: r})
	}
	sort.Slice(v.Pairs, func(i, j int) bool { return v.Pairs[i].GiverSlotID < v.Pairs[j].GiverSlotID })
	return v
}

// Create handles POST /api/events/{eventID}/draw.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	d, err := h.Svc.Draw(r.Context(), eventID, who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, toDrawView(d, nil))
}

// Show handles GET /api/events/{eventID}/draw. Stale pairs are reported as
// warnings rather than failing the read.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	d, stale, err := h.Svc.Check(r.Context(), eventID, who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, toDrawView(d, stale))
}

// Reset handles DELETE /api/events/{eventID}/draw.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := h.Svc.Reset(r.Context(), eventID, who); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Finalize handles POST /api/events/{eventID}/draw/finalize.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	d, err := h.Svc.Finalize(r.Context(), eventID, who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, toDrawView(d, nil))
}

// Recipient handles GET /api/events/{eventID}/draw/recipient: the caller's
// own recipient once the draw is final.
func (h *Handler) Recipient(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	s, err := h.Svc.RecipientOf(r.Context(), eventID, who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, recipientView{
		SlotID:           s.SlotID,
		DisplayName:      s.DisplayName,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		LinkedWishlistID: s.LinkedWishlistID,
	})
}
