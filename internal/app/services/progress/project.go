// Package progress derives the organizer's five-step checklist from one
// event snapshot plus the purchase state of the linked wishlists.
package progress

import (
	"github.com/dalemusser/giftcircle/internal/app/services/draws"
	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusComplete      Status = "complete"
	StatusPending       Status = "pending"
	StatusNotApplicable Status = "not_applicable"
)

// Step keys, in checklist order.
const (
	StepRegistration = "registration"
	StepDraw         = "draw"
	StepWishlist     = "wishlist"
	StepPurchase     = "purchase"
	StepComplete     = "complete"
)

type Step struct {
	Key    string `json:"key"`
	Status Status `json:"status"`
}

type Checklist struct {
	Steps []Step `json:"steps"`
	// Current is the first applicable step still pending, or "" when done.
	Current string `json:"current,omitempty"`
	// Stale lists draw pairs that reference removed or unconfirmed slots.
	Stale []errs.StaleEntry `json:"stale,omitempty"`
}

// Status returns the status of the step with the given key.
func (c Checklist) Status(key string) Status {
	for _, s := range c.Steps {
		if s.Key == key {
			return s.Status
		}
	}
	return ""
}

// Project computes the checklist. purchased reports, per wishlist id,
// whether the wishlist has an item purchased for this event; missing
// entries count as not purchased.
func Project(ev *models.Event, purchased map[primitive.ObjectID]bool) Checklist {
	stale := draws.Validate(ev)

	registration := len(ev.Participants) > 0
	for _, s := range ev.Participants {
		if !s.Confirmed {
			registration = false
			break
		}
	}

	drawStatus := StatusNotApplicable
	drawDone := true
	if ev.DrawEnabled {
		drawDone = registration && draws.Covers(ev) && len(stale) == 0
		drawStatus = status(drawDone)
	}

	confirmed := ev.ConfirmedSlotIDs()
	wishlist := len(confirmed) > 0
	for _, id := range confirmed {
		if ev.Participants[id].LinkedWishlistID == nil {
			wishlist = false
			break
		}
	}

	purchase := drawDone && wishlist && allPurchased(ev, purchaseTargets(ev, confirmed), purchased)

	steps := []Step{
		{StepRegistration, status(registration)},
		{StepDraw, drawStatus},
		{StepWishlist, status(wishlist)},
		{StepPurchase, status(purchase)},
		{StepComplete, status(ev.Completed)},
	}

	c := Checklist{Steps: steps, Stale: stale}
	for _, s := range steps {
		if s.Status == StatusPending {
			c.Current = s.Key
			break
		}
	}
	return c
}

// purchaseTargets are the slots whose wishlists must show a purchase: the
// recipients of the draw when draws are on, otherwise every confirmed slot.
func purchaseTargets(ev *models.Event, confirmed []string) []string {
	if !ev.DrawEnabled {
		return confirmed
	}
	if ev.Draw == nil {
		return nil
	}
	out := make([]string, 0, len(ev.Draw.Pairs))
	for _, r := range ev.Draw.Pairs {
		out = append(out, r)
	}
	return out
}

func allPurchased(ev *models.Event, targets []string, purchased map[primitive.ObjectID]bool) bool {
	if len(targets) == 0 {
		return false
	}
	for _, id := range targets {
		s, ok := ev.Participants[id]
		if !ok || s.LinkedWishlistID == nil || !purchased[*s.LinkedWishlistID] {
			return false
		}
	}
	return true
}

func status(done bool) Status {
	if done {
		return StatusComplete
	}
	return StatusPending
}
