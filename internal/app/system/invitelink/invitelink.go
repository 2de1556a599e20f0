// Package invitelink signs and verifies the share-link tokens an organizer
// hands out so a specific person can claim a specific slot.
package invitelink

import (
	"errors"
	"time"

	"github.com/gorilla/securecookie"
)

const tokenName = "giftcircle-invite"

// ErrInvalidToken is returned for tokens that fail verification, are
// expired, or were issued for a different slot.
var ErrInvalidToken = errors.New("invalid invite token")

// Claims is the payload carried by an invite token.
type Claims struct {
	EventID string `json:"e"`
	SlotID  string `json:"s"`
}

// Signer issues and verifies invite tokens.
type Signer struct {
	codec *securecookie.SecureCookie
}

// NewSigner builds a Signer from the configured key. maxAge bounds how
// long a token stays valid; zero keeps the securecookie default (30 days).
func NewSigner(key string, maxAge time.Duration) (*Signer, error) {
	if len(key) < 32 {
		return nil, errors.New("invite key must be at least 32 characters")
	}
	sc := securecookie.New([]byte(key), nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	if maxAge > 0 {
		sc.MaxAge(int(maxAge.Seconds()))
	}
	return &Signer{codec: sc}, nil
}

// Issue returns a URL-safe token for the given slot.
func (s *Signer) Issue(eventID, slotID string) (string, error) {
	return s.codec.Encode(tokenName, Claims{EventID: eventID, SlotID: slotID})
}

// Parse decodes a token without checking which slot it targets.
func (s *Signer) Parse(token string) (Claims, error) {
	var c Claims
	if token == "" {
		return c, ErrInvalidToken
	}
	if err := s.codec.Decode(tokenName, token, &c); err != nil {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}

// Verify reports whether token authorizes a claim on exactly this slot.
func (s *Signer) Verify(token, eventID, slotID string) error {
	c, err := s.Parse(token)
	if err != nil {
		return err
	}
	if c.EventID != eventID || c.SlotID != slotID {
		return ErrInvalidToken
	}
	return nil
}
