// Package participation is the roster engine: it creates events, adds and
// removes slots, and binds identities to slots. Every write is a single
// conditional update on the event document; when one loses a race the
// engine re-reads the event and reports which rule now blocks it.
package participation

import (
	"context"
	"errors"
	"fmt"

	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	"github.com/dalemusser/giftcircle/internal/app/system/auditlog"
	"github.com/dalemusser/giftcircle/internal/app/system/invitelink"
	"github.com/dalemusser/giftcircle/internal/app/system/metrics"
	"github.com/dalemusser/giftcircle/internal/app/system/retry"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Rebinder re-validates a draw after a slot's binding changed.
type Rebinder interface {
	Rebind(ctx context.Context, eventID primitive.ObjectID, slotID string) error
}

// Deps are the collaborators of the engine. Invites, Draws, Audit and
// Metrics may be nil.
type Deps struct {
	DB      *mongo.Database
	Invites *invitelink.Signer
	Draws   Rebinder
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

type Service struct {
	events  *eventstore.Store
	invites *invitelink.Signer
	draws   Rebinder
	audit   *auditlog.Logger
	metrics *metrics.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
}

func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		events:  eventstore.New(d.DB),
		invites: d.Invites,
		draws:   d.Draws,
		audit:   d.Audit,
		metrics: d.Metrics,
		log:     log,
		tracer:  otel.Tracer("giftcircle/participation"),
	}
}

// loadEvent reads an event, retrying once on a transient error, and maps a
// missing document to ErrNotFound.
func (s *Service) loadEvent(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	ev, err := retry.Read(ctx, s.log, "participation.load_event", func(ctx context.Context) (models.Event, error) {
		return s.events.GetByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Event{}, fmt.Errorf("event %s: %w", id.Hex(), errs.ErrNotFound)
		}
		return models.Event{}, fmt.Errorf("load event: %w", err)
	}
	return ev, nil
}

// requireOrganizer loads the event and checks the actor organizes it.
func (s *Service) requireOrganizer(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (models.Event, error) {
	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	if !ev.IsOrganizer(actor.ID) {
		return models.Event{}, fmt.Errorf("event %s: organizer only: %w", eventID.Hex(), errs.ErrPermissionDenied)
	}
	return ev, nil
}

func (s *Service) start(ctx context.Context, op string, eventID primitive.ObjectID, actor models.EffectiveIdentity, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("event.id", eventID.Hex()),
		attribute.String("actor.id", actor.ID.Hex()),
		attribute.String("actor.kind", actor.Kind))
	return s.tracer.Start(ctx, "participation."+op, trace.WithAttributes(attrs...))
}

// finish records err on the span. Domain errors are expected outcomes and
// only set an attribute.
func finish(span trace.Span, err error) {
	if err == nil {
		return
	}
	if errs.IsDomain(err) {
		span.SetAttributes(attribute.String("outcome", metrics.Outcome(err)))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
