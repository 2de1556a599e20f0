package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Identity kinds.
const (
	IdentityAccount = "account"
	IdentityProfile = "profile"
)

// EffectiveIdentity is the acting identity for one request: either the
// session account itself or one of the profiles it owns or manages.
// It is resolved once per request and never persisted.
type EffectiveIdentity struct {
	Kind        string             `json:"kind"`
	ID          primitive.ObjectID `json:"id"`
	AccountID   primitive.ObjectID `json:"account_id"` // session account acting as this identity
	DisplayName string             `json:"display_name"`
}

// IsProfile reports whether the identity is a managed profile.
func (e EffectiveIdentity) IsProfile() bool { return e.Kind == IdentityProfile }

// IsZero reports whether no identity was resolved.
func (e EffectiveIdentity) IsZero() bool { return e.ID.IsZero() }
