// Package errs holds the domain error taxonomy returned by the participation
// services. Stores return infrastructure errors (mongo.ErrNoDocuments, driver
// errors); services translate them into these values so callers never see raw
// store errors.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyClaimed   = errors.New("slot already claimed")
	ErrEventFull        = errors.New("event is full")
	ErrAlreadyDrawn     = errors.New("draw already exists")
	ErrDrawNotReady     = errors.New("draw not ready")
	ErrStaleAssignment  = errors.New("stale draw assignment")
	ErrNotOwner         = errors.New("not the slot owner")
	ErrConflict         = errors.New("conflict")
	ErrInvalid          = errors.New("invalid input")
)

// StaleEntry is one giver/recipient pair that references a slot which no
// longer exists or is no longer confirmed.
type StaleEntry struct {
	GiverSlotID     string `json:"giver_slot_id"`
	RecipientSlotID string `json:"recipient_slot_id"`
	MissingSlotID   string `json:"missing_slot_id"`
}

// StaleAssignmentError lists the stale entries of a draw. It matches
// ErrStaleAssignment with errors.Is.
type StaleAssignmentError struct {
	EventID string
	Entries []StaleEntry
}

func (e *StaleAssignmentError) Error() string {
	missing := make([]string, 0, len(e.Entries))
	seen := make(map[string]bool, len(e.Entries))
	for _, en := range e.Entries {
		if !seen[en.MissingSlotID] {
			seen[en.MissingSlotID] = true
			missing = append(missing, en.MissingSlotID)
		}
	}
	return fmt.Sprintf("stale draw assignment for event %s: slots %s", e.EventID, strings.Join(missing, ", "))
}

func (e *StaleAssignmentError) Is(target error) bool { return target == ErrStaleAssignment }

// IsDomain reports whether err is one of the domain errors (as opposed to an
// unexpected infrastructure failure).
func IsDomain(err error) bool {
	for _, d := range []error{
		ErrNotFound, ErrPermissionDenied, ErrAlreadyClaimed, ErrEventFull,
		ErrAlreadyDrawn, ErrDrawNotReady, ErrStaleAssignment, ErrNotOwner,
		ErrConflict, ErrInvalid,
	} {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}
