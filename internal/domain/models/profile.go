package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is a sub-identity created by one account (the owner) and optionally
// co-managed by other accounts. Exactly one owner; managers form a set.
type Profile struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	DisplayName   string               `bson:"display_name" json:"display_name"`
	DisplayNameCI string               `bson:"display_name_ci" json:"-"`
	OwnerID       primitive.ObjectID   `bson:"owner_id" json:"owner_id"`
	ManagerIDs    []primitive.ObjectID `bson:"manager_ids" json:"manager_ids"`
	Visible       bool                 `bson:"visible" json:"visible"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ManageableBy reports whether accountID owns or co-manages the profile.
func (p Profile) ManageableBy(accountID primitive.ObjectID) bool {
	if p.OwnerID == accountID {
		return true
	}
	for _, m := range p.ManagerIDs {
		if m == accountID {
			return true
		}
	}
	return false
}
