package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wishlist is owned by the wishlist subsystem. Only the fields this service
// reads are mapped; events never write to the wishlists collection.
type Wishlist struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Items     []WishlistItem     `bson:"items" json:"items"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// WishlistItem is a single wished-for item. PurchasedForEvent is set by the
// wishlist subsystem when a giver marks the item bought as part of an event.
type WishlistItem struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name              string              `bson:"name" json:"name"`
	Purchased         bool                `bson:"purchased" json:"purchased"`
	PurchasedForEvent *primitive.ObjectID `bson:"purchased_for_event,omitempty" json:"purchased_for_event,omitempty"`
}

// ItemCount returns the number of items on the list.
func (w Wishlist) ItemCount() int { return len(w.Items) }
