// Package actor resolves the effective identity of a signed-in request once
// and makes it available to handlers.
package actor

import (
	"context"
	"net/http"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	"github.com/dalemusser/giftcircle/internal/app/system/auth"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Resolver maps a session account and its chosen identity to the identity
// the request acts as.
type Resolver interface {
	Resolve(ctx context.Context, accountID primitive.ObjectID, requested *primitive.ObjectID) (models.EffectiveIdentity, error)
}

type ctxKey struct{}

// From returns the effective identity placed by Middleware. A zero identity
// counts as absent.
func From(r *http.Request) (models.EffectiveIdentity, bool) {
	id, ok := r.Context().Value(ctxKey{}).(models.EffectiveIdentity)
	return id, ok && !id.IsZero()
}

// With returns r carrying id. Handler tests use it to skip resolution.
func With(r *http.Request, id models.EffectiveIdentity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))
}

// Middleware resolves the identity for every request. Requests without a
// signed-in account get 401; a stale or foreign active identity gets 403.
func Middleware(res Resolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := From(r); ok {
				next.ServeHTTP(w, r)
				return
			}
			acct, ok := auth.CurrentAccount(r)
			if !ok || acct == nil {
				apierr.Unauthorized(w)
				return
			}
			id, err := res.Resolve(r.Context(), acct.AccountID, acct.ActiveIdentityID)
			if err != nil {
				apierr.Write(w, r, log, err)
				return
			}
			next.ServeHTTP(w, With(r, id))
		})
	}
}
