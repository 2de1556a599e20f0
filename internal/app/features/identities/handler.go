// internal/app/features/identities/handler.go
package identities

import (
	"net/http"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	"github.com/dalemusser/giftcircle/internal/app/services/identity"
	"github.com/dalemusser/giftcircle/internal/app/system/auth"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler lists the identities an account may act as and switches between
// them. It reads the session account directly so that a stale active
// identity can still be replaced.
type Handler struct {
	Svc        *identity.Service
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler constructs an identities Handler.
func NewHandler(svc *identity.Service, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, SessionMgr: sm, Log: logger}
}

type listResponse struct {
	Active     models.EffectiveIdentity   `json:"active"`
	Identities []models.EffectiveIdentity `json:"identities"`
}

type switchRequest struct {
	// IdentityID nil switches back to the account itself.
	IdentityID *primitive.ObjectID `json:"identity_id"`
}

// List handles GET /api/identities.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	acct, _ := auth.CurrentAccount(r)
	self, err := h.Svc.Resolve(r.Context(), acct.AccountID, nil)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	profiles, err := h.Svc.ListManageable(r.Context(), acct.AccountID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	resp := listResponse{Active: self, Identities: []models.EffectiveIdentity{self}}
	for _, p := range profiles {
		id := models.EffectiveIdentity{Kind: models.IdentityProfile, ID: p.ID, AccountID: acct.AccountID, DisplayName: p.DisplayName}
		resp.Identities = append(resp.Identities, id)
		if acct.ActiveIdentityID != nil && *acct.ActiveIdentityID == p.ID {
			resp.Active = id
		}
	}
	apierr.JSON(w, http.StatusOK, resp)
}

// Switch handles POST /api/identities/active.
func (h *Handler) Switch(w http.ResponseWriter, r *http.Request) {
	acct, _ := auth.CurrentAccount(r)
	var req switchRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	id, err := h.Svc.Resolve(r.Context(), acct.AccountID, req.IdentityID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	var active *primitive.ObjectID
	if id.IsProfile() {
		active = &id.ID
	}
	if err := h.SessionMgr.SetActiveIdentity(w, r, active); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("active identity switched",
		zap.String("account_id", acct.AccountID.Hex()),
		zap.String("identity_id", id.ID.Hex()),
		zap.String("kind", id.Kind))
	apierr.JSON(w, http.StatusOK, id)
}

// Routes returns a subrouter mounted at /api/identities. These routes act as
// the session account itself, so they sit behind RequireSignedIn rather than
// the actor middleware.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(h.SessionMgr.RequireSignedIn)
	r.Get("/", h.List)
	r.Post("/active", h.Switch)
	return r
}
