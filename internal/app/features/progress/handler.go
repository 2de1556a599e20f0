// internal/app/features/progress/handler.go
package progress

import (
	"net/http"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	progresssvc "github.com/dalemusser/giftcircle/internal/app/services/progress"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the progress checklist.
type Handler struct {
	Svc *progresssvc.Service
	Log *zap.Logger
}

// NewHandler constructs a progress Handler.
func NewHandler(svc *progresssvc.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// Show handles GET /api/events/{eventID}/progress.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	who, _ := actor.From(r)
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	c, err := h.Svc.Progress(r.Context(), eventID, who)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, c)
}

// MountRoutes mounts the progress route under /api/events.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{eventID}/progress", h.Show)
}
