// internal/app/features/wishlists/routes.go
package wishlists

import "github.com/go-chi/chi/v5"

// MountEventRoutes mounts slot linking under /api/events.
func (h *Handler) MountEventRoutes(r chi.Router) {
	r.Put("/{eventID}/slots/{slotID}/wishlist", h.Link)
	r.Delete("/{eventID}/slots/{slotID}/wishlist", h.Unlink)
}

// Routes returns a subrouter mounted at /api/wishlists.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Linkable)
	return r
}
