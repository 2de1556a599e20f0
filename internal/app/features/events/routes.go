// internal/app/features/events/routes.go
package events

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the event routes on r (mounted under /api/events).
// limit wraps the claim and join endpoints; pass nil to skip rate limiting.
func (h *Handler) MountRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{eventID}", h.Show)
	r.Delete("/{eventID}", h.Delete)
	r.Post("/{eventID}/complete", h.Complete)

	r.Post("/{eventID}/slots", h.AddSlot)
	r.Delete("/{eventID}/slots/{slotID}", h.RemoveSlot)
	r.Post("/{eventID}/slots/{slotID}/invite", h.Invite)

	r.Group(func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/{eventID}/slots/{slotID}/claim", h.Claim)
		r.Post("/{eventID}/join", h.Join)
	})
}
