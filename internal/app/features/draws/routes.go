// internal/app/features/draws/routes.go
package draws

import "github.com/go-chi/chi/v5"

// MountRoutes mounts the draw routes on r (mounted under /api/events).
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{eventID}/draw", h.Create)
	r.Get("/{eventID}/draw", h.Show)
	r.Delete("/{eventID}/draw", h.Reset)
	r.Post("/{eventID}/draw/finalize", h.Finalize)
	r.Get("/{eventID}/draw/recipient", h.Recipient)
}
