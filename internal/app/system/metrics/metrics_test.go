package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errs.ErrAlreadyClaimed, "already_claimed"},
		{fmt.Errorf("claim: %w", errs.ErrEventFull), "event_full"},
		{&errs.StaleAssignmentError{}, "stale"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveClaim(nil)
	m.ObserveClaim(errs.ErrAlreadyClaimed)
	m.ObserveClaim(errs.ErrAlreadyClaimed)
	m.ObserveDraw(nil, 2)
	m.ObserveLink("link", errs.ErrNotOwner)
	m.ObserveStale()

	if got := testutil.ToFloat64(m.Claims.WithLabelValues("already_claimed")); got != 2 {
		t.Errorf("already_claimed: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Claims.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.WishlistLinks.WithLabelValues("link", "not_owner")); got != 1 {
		t.Errorf("link/not_owner: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StaleAssignments); got != 1 {
		t.Errorf("stale: got %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveClaim(nil)
	m.ObserveDraw(nil, 1)
	m.ObserveLink("link", nil)
	m.ObserveStale()
}
