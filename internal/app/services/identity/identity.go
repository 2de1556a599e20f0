// Package identity resolves the identity a signed-in account is acting as:
// the account itself or one of the profiles it owns or co-manages.
package identity

import (
	"context"
	"errors"
	"fmt"

	accountstore "github.com/dalemusser/giftcircle/internal/app/store/accounts"
	profilestore "github.com/dalemusser/giftcircle/internal/app/store/profiles"
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

type Service struct {
	accounts *accountstore.Store
	profiles *profilestore.Store
	log      *zap.Logger
	tracer   trace.Tracer
}

func New(db *mongo.Database, log *zap.Logger) *Service {
	return &Service{
		accounts: accountstore.New(db),
		profiles: profilestore.New(db),
		log:      log,
		tracer:   otel.Tracer("giftcircle/identity"),
	}
}

// Resolve returns the effective identity for a request. With no requested id
// (or the account's own id) the account itself is returned. Otherwise the
// requested id must be a profile the account owns or manages.
func (s *Service) Resolve(ctx context.Context, accountID primitive.ObjectID, requested *primitive.ObjectID) (models.EffectiveIdentity, error) {
	ctx, span := s.tracer.Start(ctx, "identity.resolve",
		trace.WithAttributes(attribute.String("account.id", accountID.Hex())))
	defer span.End()

	acct, err := retry.Read(ctx, s.log, "identity.account", func(ctx context.Context) (models.Account, error) {
		return s.accounts.GetByID(ctx, accountID)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.EffectiveIdentity{}, fmt.Errorf("account %s: %w", accountID.Hex(), errs.ErrNotFound)
		}
		span.SetStatus(codes.Error, err.Error())
		return models.EffectiveIdentity{}, fmt.Errorf("load account: %w", err)
	}

	if requested == nil || *requested == accountID {
		return models.EffectiveIdentity{
			Kind:        models.IdentityAccount,
			ID:          acct.ID,
			AccountID:   acct.ID,
			DisplayName: acct.DisplayName,
		}, nil
	}

	span.SetAttributes(attribute.String("identity.requested", requested.Hex()))
	p, err := retry.Read(ctx, s.log, "identity.profile", func(ctx context.Context) (models.Profile, error) {
		return s.profiles.GetByID(ctx, *requested)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// An unknown profile id is indistinguishable from someone else's.
			return models.EffectiveIdentity{}, fmt.Errorf("act as %s: %w", requested.Hex(), errs.ErrPermissionDenied)
		}
		span.SetStatus(codes.Error, err.Error())
		return models.EffectiveIdentity{}, fmt.Errorf("load profile: %w", err)
	}
	if !p.ManageableBy(accountID) {
		return models.EffectiveIdentity{}, fmt.Errorf("act as %s: %w", requested.Hex(), errs.ErrPermissionDenied)
	}

	return models.EffectiveIdentity{
		Kind:        models.IdentityProfile,
		ID:          p.ID,
		AccountID:   acct.ID,
		DisplayName: p.DisplayName,
	}, nil
}

// ListManageable returns the profiles the account owns or co-manages,
// sorted by display name.
func (s *Service) ListManageable(ctx context.Context, accountID primitive.ObjectID) ([]models.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "identity.list_manageable",
		trace.WithAttributes(attribute.String("account.id", accountID.Hex())))
	defer span.End()

	out, err := retry.Read(ctx, s.log, "identity.list_manageable", func(ctx context.Context) ([]models.Profile, error) {
		return s.profiles.ListManageable(ctx, accountID)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list manageable profiles: %w", err)
	}
	if out == nil {
		out = []models.Profile{}
	}
	span.SetAttributes(attribute.Int("profiles.count", len(out)))
	return out, nil
}
