package history

import (
	"time"

	"github.com/dalemusser/giftcircle/internal/app/store/audit"
	"github.com/dalemusser/giftcircle/internal/app/system/paging"
)

type entryView struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	SlotID        string            `json:"slot_id,omitempty"`
	IdentityID    string            `json:"identity_id,omitempty"`
	ActorID       string            `json:"actor_id,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Entries []entryView  `json:"entries"`
	Range   paging.Range `json:"range"`
	HasNext bool         `json:"has_next"`
}

func toEntryView(e audit.Event) entryView {
	v := entryView{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		SlotID:        e.SlotID,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.IdentityID != nil {
		v.IdentityID = e.IdentityID.Hex()
	}
	if e.ActorID != nil {
		v.ActorID = e.ActorID.Hex()
	}
	return v
}

func allCategories() []string {
	return []string{audit.CategoryParticipation, audit.CategoryOrganizer}
}
