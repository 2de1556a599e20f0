// internal/app/features/wishlists/handler.go
package wishlists

import (
	"net/http"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	"github.com/dalemusser/giftcircle/internal/app/services/wishlinks"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves wishlist linking.
type Handler struct {
	Svc *wishlinks.Service
	Log *zap.Logger
}

// NewHandler constructs a wishlists Handler.
func NewHandler(svc *wishlinks.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type linkRequest struct {
	WishlistID *primitive.ObjectID `json:"wishlist_id"`
}

type wishlistView struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	ItemCount int                `json:"item_count"`
	CreatedAt time.Time          `json:"created_at"`
}

// Link handles PUT /api/events/{eventID}/slots/{slotID}/wishlist.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req linkRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if req.WishlistID == nil {
		apierr.Write(w, r, h.Log, errs.ErrInvalid)
		return
	}
	slotID := chi.URLParam(r, "slotID")
	if err := h.Svc.Link(r.Context(), eventID, slotID, *req.WishlistID, who); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"slot_id": slotID, "wishlist_id": req.WishlistID})
}

// Unlink handles DELETE /api/events/{eventID}/slots/{slotID}/wishlist.
func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if err := h.Svc.Unlink(r.Context(), eventID, chi.URLParam(r, "slotID"), who); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Linkable handles GET /api/wishlists: the acting identity's own wishlists.
func (h *Handler) Linkable(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	lists, err := h.Svc.Linkable(r.Context(), who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	out := make([]wishlistView, 0, len(lists))
	for _, l := range lists {
		out = append(out, wishlistView{ID: l.ID, Name: l.Name, ItemCount: l.ItemCount(), CreatedAt: l.CreatedAt})
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"wishlists": out})
}
