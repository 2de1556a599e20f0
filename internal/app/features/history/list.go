// internal/app/features/history/list.go
package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/features/apierr"
	"github.com/dalemusser/giftcircle/internal/app/store/audit"
	"github.com/dalemusser/giftcircle/internal/app/system/actor"
	"github.com/dalemusser/giftcircle/internal/app/system/paging"
	"github.com/dalemusser/giftcircle/internal/app/system/timeouts"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
)

// List handles GET /api/events/{eventID}/history.
//
// Query parameters: category, event_type, start_date and end_date
// (YYYY-MM-DD), start and limit.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	who, ok := actor.From(r)
	if !ok {
		apierr.Unauthorized(w)
		return
	}
	eventID, err := apierr.PathID(r, "eventID")
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	// History scans can outlive the per-request API deadline.
	ctx, cancel := timeouts.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Long(), h.Log, "event history")
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			err = fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrNotFound)
		}
		apierr.Write(w, r, h.Log, err)
		return
	}
	if !ev.IsOrganizer(who.ID) {
		apierr.Write(w, r, h.Log, fmt.Errorf("history of %s: %w", eventID.Hex(), errs.ErrPermissionDenied))
		return
	}

	page := paging.Parse(r)
	filter := audit.QueryFilter{
		EventID:   &eventID,
		Category:  strings.TrimSpace(query.Get(r, "category")),
		EventType: strings.TrimSpace(query.Get(r, "event_type")),
		Limit:     page.LimitPlusOne(),
		Offset:    page.Offset(),
	}
	if filter.Category != "" && !slices.Contains(allCategories(), filter.Category) {
		apierr.Write(w, r, h.Log, fmt.Errorf("category %q: %w", filter.Category, errs.ErrInvalid))
		return
	}
	if s := strings.TrimSpace(query.Get(r, "start_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apierr.Write(w, r, h.Log, fmt.Errorf("start_date: %w", errs.ErrInvalid))
			return
		}
		filter.StartTime = &t
	}
	if s := strings.TrimSpace(query.Get(r, "end_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apierr.Write(w, r, h.Log, fmt.Errorf("end_date: %w", errs.ErrInvalid))
			return
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	rows, err := h.Audit.Query(ctx, filter)
	if err != nil {
		apierr.Write(w, r, h.Log, fmt.Errorf("query history: %w", err))
		return
	}
	hasNext := paging.Trim(&rows, page)

	resp := listResponse{
		Entries: make([]entryView, 0, len(rows)),
		Range:   paging.RangeFor(page, len(rows)),
		HasNext: hasNext,
	}
	for _, e := range rows {
		resp.Entries = append(resp.Entries, toEntryView(e))
	}
	apierr.JSON(w, http.StatusOK, resp)
}
