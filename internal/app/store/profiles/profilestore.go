package profilestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/giftcircle/internal/app/system/normalize"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var errNoOwner = errors.New("profile must have an owner")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// GetByID loads a profile by ObjectID. Returns mongo.ErrNoDocuments if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Profile, error) {
	var p models.Profile
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// ListManageable returns profiles owned or co-managed by accountID, ordered by
// display name.
func (s *Store) ListManageable(ctx context.Context, accountID primitive.ObjectID) ([]models.Profile, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"owner_id": accountID},
		bson.M{"manager_ids": accountID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "display_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Profile
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a profile. Profiles are normally created by the wider
// product; Create exists for seeding and tests.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	if p.OwnerID.IsZero() {
		return models.Profile{}, errNoOwner
	}
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	p.DisplayName = normalize.Name(p.DisplayName)
	p.DisplayNameCI = text.Fold(p.DisplayName)
	if p.ManagerIDs == nil {
		p.ManagerIDs = []primitive.ObjectID{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}
