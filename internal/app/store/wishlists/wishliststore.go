// Package wishliststore is a read-only view of the wishlist subsystem's
// collection. Wishlists are owned elsewhere; nothing here writes to them
// except Create, which exists for seeding and tests.
package wishliststore

import (
	"context"
	"time"

	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("wishlists")}
}

// Exists reports whether a wishlist with the given id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasPurchaseForEvent reports whether at least one item on the wishlist was
// marked purchased for the given event.
func (s *Store) HasPurchaseForEvent(ctx context.Context, id, eventID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"_id": id,
		"items": bson.M{"$elemMatch": bson.M{
			"purchased":           true,
			"purchased_for_event": eventID,
		}},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListByOwner returns the wishlists owned by an identity, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Wishlist, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Wishlist
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a wishlist. Used for seeding and tests only.
func (s *Store) Create(ctx context.Context, w models.Wishlist) (models.Wishlist, error) {
	w.ID = primitive.NewObjectID()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	if w.Items == nil {
		w.Items = []models.WishlistItem{}
	}
	for i := range w.Items {
		if w.Items[i].ID.IsZero() {
			w.Items[i].ID = primitive.NewObjectID()
		}
	}
	if _, err := s.c.InsertOne(ctx, w); err != nil {
		return models.Wishlist{}, err
	}
	return w, nil
}
