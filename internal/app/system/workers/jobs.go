// internal/app/system/workers/jobs.go
package workers

import (
	"context"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// LimiterSweepJob drops idle rate-limit buckets so the per-identity map
// does not grow without bound.
func LimiterSweepJob(l *ratelimit.Limiter, logger *zap.Logger) Job {
	return Job{
		Name:     "ratelimit-sweep",
		Interval: 5 * time.Minute,
		Run: func(ctx context.Context) error {
			if n := l.Sweep(); n > 0 {
				logger.Debug("swept idle rate-limit buckets", zap.Int("count", n))
			}
			return nil
		},
	}
}
