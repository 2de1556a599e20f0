// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/system/ratelimit"
	"github.com/dalemusser/giftcircle/internal/app/system/timeouts"
	"github.com/dalemusser/giftcircle/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Process-wide state created in Startup and released in Shutdown.
var (
	startedAt    time.Time
	claimLimiter *ratelimit.Limiter
	background   *workers.Runner
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// the configured timeouts, creates the claim rate limiter and starts the
// background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	startedAt = time.Now()

	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("timeouts configured",
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long))

	claimLimiter = ratelimit.New(appCfg.ClaimRatePerMinute, appCfg.ClaimBurst)
	background = workers.NewRunner(logger, workers.LimiterSweepJob(claimLimiter, logger))
	background.Start()
	return nil
}
