// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	drawsfeature "github.com/dalemusser/giftcircle/internal/app/features/draws"
	eventsfeature "github.com/dalemusser/giftcircle/internal/app/features/events"
	healthfeature "github.com/dalemusser/giftcircle/internal/app/features/health"
	historyfeature "github.com/dalemusser/giftcircle/internal/app/features/history"
	identitiesfeature "github.com/dalemusser/giftcircle/internal/app/features/identities"
	progressfeature "github.com/dalemusser/giftcircle/internal/app/features/progress"
	wishlistsfeature "github.com/dalemusser/giftcircle/internal/app/features/wishlists"
	"github.com/dalemusser/giftcircle/internal/app/services/draws"
	"github.com/dalemusser/giftcircle/internal/app/services/identity"
	"github.com/dalemusser/giftcircle/internal/app/services/participation"
	"github.com/dalemusser/giftcircle/internal/app/services/progress"
	"github.com/dalemusser/giftcircle/internal/app/services/wishlinks"
	"github.com/dalemusser/giftcircle/internal/app/store/audit"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/dalemusser/giftcircle/internal/app/system/auditlog"
	"github.com/dalemusser/giftcircle/internal/app/system/auth"
	"github.com/dalemusser/giftcircle/internal/app/system/invitelink"
	"github.com/dalemusser/giftcircle/internal/app/system/metrics"
	"github.com/dalemusser/giftcircle/internal/app/system/ratelimit"
	"github.com/dalemusser/giftcircle/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed.
//
// Layout:
//
//	/health                 database ping, public
//	/metrics                Prometheus scrape endpoint, public
//	/api/identities         list and switch the acting identity (session account only)
//	/api/events/...         events, roster, draws, wishlist links, progress, history
//	/api/wishlists          wishlists the acting identity can link
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.GiftCircleMongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	invites, err := invitelink.NewSigner(appCfg.InviteKey, appCfg.InviteMaxAge)
	if err != nil {
		logger.Error("invite signer init failed", zap.Error(err))
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Participation: appCfg.AuditLogParticipation,
		Organizer:     appCfg.AuditLogOrganizer,
	})

	// Services
	identitySvc := identity.New(db, logger)
	drawSvc := draws.New(db, auditLog, m, logger, draws.WithMaxAttempts(appCfg.DrawMaxAttempts))
	participationSvc := participation.New(participation.Deps{
		DB:      db,
		Invites: invites,
		Draws:   drawSvc,
		Audit:   auditLog,
		Metrics: m,
		Log:     logger,
	})
	linkSvc := wishlinks.New(db, auditLog, m, logger)
	progressSvc := progress.New(db, logger)

	// Claims and joins are limited per acting identity.
	limiter := claimLimiter
	if limiter == nil {
		limiter = ratelimit.New(appCfg.ClaimRatePerMinute, appCfg.ClaimBurst)
	}
	limitClaims := limiter.Middleware(func(r *http.Request) string {
		if who, ok := actor.From(r); ok {
			return who.ID.Hex()
		}
		return ""
	})

	eventsHandler := eventsfeature.NewHandler(participationSvc, logger)
	drawsHandler := drawsfeature.NewHandler(drawSvc, logger)
	wishlistsHandler := wishlistsfeature.NewHandler(linkSvc, logger)
	progressHandler := progressfeature.NewHandler(progressSvc, logger)
	historyHandler := historyfeature.NewHandler(db, logger)
	identitiesHandler := identitiesfeature.NewHandler(identitySvc, sessionMgr, logger)

	r := chi.NewRouter()

	// Global session middleware: loads the session account (and its chosen
	// identity) into context when a valid cookie is present.
	r.Use(sessionMgr.LoadSession)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.GiftCircleMongoClient, startedAt, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Route("/api", func(r chi.Router) {
		// Identity switching reads the session account directly so a stale
		// active identity can always be replaced.
		r.Mount("/identities", identitiesfeature.Routes(identitiesHandler))

		r.Group(func(r chi.Router) {
			r.Use(timeouts.Middleware(timeouts.Medium, logger))
			r.Use(actor.Middleware(identitySvc, logger))

			r.Route("/events", func(r chi.Router) {
				eventsHandler.MountRoutes(r, limitClaims)
				drawsHandler.MountRoutes(r)
				wishlistsHandler.MountEventRoutes(r)
				progressHandler.MountRoutes(r)
				historyHandler.MountRoutes(r)
			})
			r.Mount("/wishlists", wishlistsfeature.Routes(wishlistsHandler))
		})
	})

	return r, nil
}
