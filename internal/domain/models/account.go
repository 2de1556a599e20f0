package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is a top-level authenticated identity. Accounts are issued by the
// external auth provider; this service only reads them.
//
// NOTE:
//   - Profiles are not embedded on Account. Use the profiles collection
//     (owner_id / manager_ids) to discover the profiles an account can act as.
type Account struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Email       string             `bson:"email" json:"email"`
	IsAdmin     bool               `bson:"is_admin" json:"is_admin"`
	IsPartner   bool               `bson:"is_partner" json:"is_partner"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
