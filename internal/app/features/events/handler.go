// internal/app/features/events/handler.go
package events

import (
	"github.com/dalemusser/giftcircle/internal/app/services/participation"
	"go.uber.org/zap"
)

// Handler serves the event and roster endpoints.
type Handler struct {
	Svc *participation.Service
	Log *zap.Logger
}

// NewHandler constructs an events Handler.
func NewHandler(svc *participation.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}
