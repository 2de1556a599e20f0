package metrics

import (
	"errors"

	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the participation engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Claims           *prometheus.CounterVec
	Draws            *prometheus.CounterVec
	DrawAttempts     prometheus.Histogram
	WishlistLinks    *prometheus.CounterVec
	StaleAssignments prometheus.Counter
}

// New creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Claims: f.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcircle_slot_claims_total",
			Help: "Slot claim attempts by outcome",
		}, []string{"outcome"}),
		Draws: f.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcircle_draws_total",
			Help: "Draw attempts by outcome",
		}, []string{"outcome"}),
		DrawAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "giftcircle_draw_shuffle_attempts",
			Help:    "Shuffles needed before a derangement was found",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		WishlistLinks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "giftcircle_wishlist_links_total",
			Help: "Wishlist link operations by operation and outcome",
		}, []string{"op", "outcome"}),
		StaleAssignments: f.NewCounter(prometheus.CounterOpts{
			Name: "giftcircle_stale_assignments_total",
			Help: "Draw validations that found stale entries",
		}),
	}
}

// Outcome maps an operation result to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, errs.ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, errs.ErrEventFull):
		return "event_full"
	case errors.Is(err, errs.ErrAlreadyDrawn):
		return "already_drawn"
	case errors.Is(err, errs.ErrDrawNotReady):
		return "not_ready"
	case errors.Is(err, errs.ErrStaleAssignment):
		return "stale"
	case errors.Is(err, errs.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, errs.ErrConflict):
		return "conflict"
	case errors.Is(err, errs.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

// ObserveClaim records the outcome of a claim or self-registration.
func (m *Metrics) ObserveClaim(err error) {
	if m == nil {
		return
	}
	m.Claims.WithLabelValues(Outcome(err)).Inc()
}

// ObserveDraw records the outcome of a draw and, on success, how many
// shuffles it took.
func (m *Metrics) ObserveDraw(err error, attempts int) {
	if m == nil {
		return
	}
	m.Draws.WithLabelValues(Outcome(err)).Inc()
	if err == nil && attempts > 0 {
		m.DrawAttempts.Observe(float64(attempts))
	}
}

// ObserveLink records a link or unlink.
func (m *Metrics) ObserveLink(op string, err error) {
	if m == nil {
		return
	}
	m.WishlistLinks.WithLabelValues(op, Outcome(err)).Inc()
}

// ObserveStale counts a validation that found a stale draw.
func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.StaleAssignments.Inc()
}
