// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/giftcircle/internal/app/store/audit"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Participation controls logging for claims, self-registration and wishlist links.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Participation string
	// Organizer controls logging for roster edits, draws and event lifecycle.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Organizer string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.EventID != nil {
		fields = append(fields, zap.String("event_id", event.EventID.Hex()))
	}
	if event.SlotID != "" {
		fields = append(fields, zap.String("slot_id", event.SlotID))
	}
	if event.IdentityID != nil {
		fields = append(fields, zap.String("identity_id", event.IdentityID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryParticipation:
		setting = l.config.Participation
	case audit.CategoryOrganizer:
		setting = l.config.Organizer
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Participation Events ---

// SlotClaimed logs a successful claim of a slot by identityID, performed by actorID.
func (l *Logger) SlotClaimed(ctx context.Context, eventID primitive.ObjectID, slotID string, identityID, actorID primitive.ObjectID, viaInvite bool) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryParticipation,
		EventType:  audit.EventSlotClaimed,
		EventID:    &eventID,
		SlotID:     slotID,
		IdentityID: &identityID,
		ActorID:    &actorID,
		Success:    true,
		Details: map[string]string{
			"via_invite": strconv.FormatBool(viaInvite),
		},
	})
}

// ClaimRejected logs a failed claim attempt along with the domain reason.
func (l *Logger) ClaimRejected(ctx context.Context, eventID primitive.ObjectID, slotID string, actorID primitive.ObjectID, reason error) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryParticipation,
		EventType:     audit.EventSlotClaimRejected,
		EventID:       &eventID,
		SlotID:        slotID,
		ActorID:       &actorID,
		Success:       false,
		FailureReason: reason.Error(),
	})
}

// SelfRegistered logs an identity creating and claiming its own slot.
func (l *Logger) SelfRegistered(ctx context.Context, eventID primitive.ObjectID, slotID string, identityID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryParticipation,
		EventType:  audit.EventSelfRegistered,
		EventID:    &eventID,
		SlotID:     slotID,
		IdentityID: &identityID,
		ActorID:    &identityID,
		Success:    true,
	})
}

// WishlistLinked logs a wishlist being linked to (or relinked on) a slot.
func (l *Logger) WishlistLinked(ctx context.Context, eventID primitive.ObjectID, slotID string, actorID, wishlistID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryParticipation,
		EventType: audit.EventWishlistLinked,
		EventID:   &eventID,
		SlotID:    slotID,
		ActorID:   &actorID,
		Success:   true,
		Details: map[string]string{
			"wishlist_id": wishlistID.Hex(),
		},
	})
}

// WishlistUnlinked logs a wishlist link being cleared.
func (l *Logger) WishlistUnlinked(ctx context.Context, eventID primitive.ObjectID, slotID string, actorID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryParticipation,
		EventType: audit.EventWishlistUnlinked,
		EventID:   &eventID,
		SlotID:    slotID,
		ActorID:   &actorID,
		Success:   true,
	})
}

// --- Organizer Events ---

// EventCreated logs a new event and the size of its initial roster.
func (l *Logger) EventCreated(ctx context.Context, eventID, organizerID primitive.ObjectID, slots int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryOrganizer,
		EventType: audit.EventEventCreated,
		EventID:   &eventID,
		ActorID:   &organizerID,
		Success:   true,
		Details: map[string]string{
			"slots": strconv.Itoa(slots),
		},
	})
}

// EventDeleted logs an event deletion.
func (l *Logger) EventDeleted(ctx context.Context, eventID, organizerID primitive.ObjectID) {
	l.organizer(ctx, audit.EventEventDeleted, eventID, "", organizerID, nil)
}

// EventCompleted logs the organizer toggling the completed flag.
func (l *Logger) EventCompleted(ctx context.Context, eventID, organizerID primitive.ObjectID, completed bool) {
	l.organizer(ctx, audit.EventEventCompleted, eventID, "", organizerID, map[string]string{
		"completed": strconv.FormatBool(completed),
	})
}

// SlotRegistered logs the organizer adding a slot; identityID is set when the
// slot was pre-bound.
func (l *Logger) SlotRegistered(ctx context.Context, eventID primitive.ObjectID, slotID string, organizerID primitive.ObjectID, identityID *primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryOrganizer,
		EventType:  audit.EventSlotRegistered,
		EventID:    &eventID,
		SlotID:     slotID,
		IdentityID: identityID,
		ActorID:    &organizerID,
		Success:    true,
	})
}

// SlotRemoved logs the organizer removing a slot.
func (l *Logger) SlotRemoved(ctx context.Context, eventID primitive.ObjectID, slotID string, organizerID primitive.ObjectID, wasConfirmed bool) {
	l.organizer(ctx, audit.EventSlotRemoved, eventID, slotID, organizerID, map[string]string{
		"was_confirmed": strconv.FormatBool(wasConfirmed),
	})
}

// InviteIssued logs a share link being minted for a slot.
func (l *Logger) InviteIssued(ctx context.Context, eventID primitive.ObjectID, slotID string, organizerID primitive.ObjectID) {
	l.organizer(ctx, audit.EventInviteIssued, eventID, slotID, organizerID, nil)
}

// DrawCreated logs a new draw over n slots.
func (l *Logger) DrawCreated(ctx context.Context, eventID, organizerID primitive.ObjectID, n int) {
	l.organizer(ctx, audit.EventDrawCreated, eventID, "", organizerID, map[string]string{
		"slots": strconv.Itoa(n),
	})
}

// DrawReset logs the draw being cleared.
func (l *Logger) DrawReset(ctx context.Context, eventID, organizerID primitive.ObjectID) {
	l.organizer(ctx, audit.EventDrawReset, eventID, "", organizerID, nil)
}

// DrawFinalized logs the draw being published.
func (l *Logger) DrawFinalized(ctx context.Context, eventID, organizerID primitive.ObjectID) {
	l.organizer(ctx, audit.EventDrawFinalized, eventID, "", organizerID, nil)
}

// StaleAssignment logs a draw found to reference removed or unconfirmed slots.
// It is recorded as unsuccessful so it shows up as a warning.
func (l *Logger) StaleAssignment(ctx context.Context, eventID primitive.ObjectID, slotID string, stale *errs.StaleAssignmentError) {
	details := map[string]string{"entries": strconv.Itoa(len(stale.Entries))}
	for i, e := range stale.Entries {
		details["missing_"+strconv.Itoa(i)] = e.MissingSlotID
	}
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryOrganizer,
		EventType:     audit.EventStaleAssignment,
		EventID:       &eventID,
		SlotID:        slotID,
		Success:       false,
		FailureReason: "draw references missing or unconfirmed slots",
		Details:       details,
	})
}

func (l *Logger) organizer(ctx context.Context, eventType string, eventID primitive.ObjectID, slotID string, organizerID primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryOrganizer,
		EventType: eventType,
		EventID:   &eventID,
		SlotID:    slotID,
		ActorID:   &organizerID,
		Success:   true,
		Details:   details,
	})
}
