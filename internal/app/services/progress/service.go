package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"

	eventstore "github.com/dalemusser/giftcircle/internal/app/store/events"
	wishliststore "github.com/dalemusser/giftcircle/internal/app/store/wishlists"
	"github.com/dalemusser/giftcircle/internal/app/system/retry"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxLookups bounds concurrent purchase lookups for one event.
const maxLookups = 8

type Service struct {
	events    *eventstore.Store
	wishlists *wishliststore.Store
	log       *zap.Logger
	tracer    trace.Tracer
}

func New(db *mongo.Database, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		events:    eventstore.New(db),
		wishlists: wishliststore.New(db),
		log:       log,
		tracer:    otel.Tracer("giftcircle/progress"),
	}
}

// Progress loads the event and projects its checklist. The organizer and
// confirmed participants may read it.
func (s *Service) Progress(ctx context.Context, eventID primitive.ObjectID, actor models.EffectiveIdentity) (Checklist, error) {
	ctx, span := s.tracer.Start(ctx, "progress.project",
		trace.WithAttributes(attribute.String("event.id", eventID.Hex())))
	defer span.End()

	ev, err := retry.Read(ctx, s.log, "progress.load_event", func(ctx context.Context) (models.Event, error) {
		return s.events.GetByID(ctx, eventID)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Checklist{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrNotFound)
		}
		return Checklist{}, fmt.Errorf("load event: %w", err)
	}
	if !ev.IsOrganizer(actor.ID) {
		if _, ok := ev.SlotBoundTo(actor.ID); !ok {
			return Checklist{}, fmt.Errorf("event %s: %w", eventID.Hex(), errs.ErrPermissionDenied)
		}
	}

	purchased, err := s.purchases(ctx, &ev)
	if err != nil {
		return Checklist{}, err
	}
	span.SetAttributes(attribute.Int("wishlists.checked", len(purchased)))
	return Project(&ev, purchased), nil
}

// purchases looks up every linked wishlist of a confirmed slot concurrently.
func (s *Service) purchases(ctx context.Context, ev *models.Event) (map[primitive.ObjectID]bool, error) {
	ids := map[primitive.ObjectID]struct{}{}
	for _, slot := range ev.Participants {
		if slot.Confirmed && slot.LinkedWishlistID != nil {
			ids[*slot.LinkedWishlistID] = struct{}{}
		}
	}

	var mu sync.Mutex
	out := make(map[primitive.ObjectID]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for id := range ids {
		g.Go(func() error {
			ok, err := retry.Read(gctx, s.log, "progress.has_purchase", func(ctx context.Context) (bool, error) {
				return s.wishlists.HasPurchaseForEvent(ctx, id, ev.ID)
			})
			if err != nil {
				return fmt.Errorf("purchase lookup %s: %w", id.Hex(), err)
			}
			mu.Lock()
			out[id] = ok
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
