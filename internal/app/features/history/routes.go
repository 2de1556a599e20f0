package history

import "github.com/go-chi/chi/v5"

// MountRoutes registers the history endpoint on the /api/events router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{eventID}/history", h.List)
}
