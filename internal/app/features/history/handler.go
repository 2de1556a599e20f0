// internal/app/features/history/handler.go
package history

import (
	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves an event's audit trail to its organizer.
type Handler struct {
	Events *eventstore.Store
	Audit  *audit.Store
	Log    *zap.Logger
}

// NewHandler constructs a history Handler bound to the given database.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Events: eventstore.New(db),
		Audit:  audit.New(db),
		Log:    logger,
	}
}
