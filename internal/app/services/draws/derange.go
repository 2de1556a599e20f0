package draws

import (
	"errors"
	"math/rand/v2"
	"sort"

	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/dalemusser/giftcircle/internal/domain/models"
)

// DefaultMaxAttempts bounds shuffle-and-reject. The chance that a single
// shuffle of n >= 2 items is a derangement is about 1/e, so running out
// of attempts means the shuffle source is broken.
const DefaultMaxAttempts = 1000

var errNoDerangement = errors.New("no derangement found within the attempt limit")

// Shuffler permutes n elements using swap, like rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// Derange maps every id to a different id of the same set, each used once
// as a recipient. Two ids map to each other. It shuffles and rejects until
// no id maps to itself, so every derangement is equally likely when shuffle
// is uniform. It returns the pairs and the number of shuffles used.
func Derange(ids []string, shuffle Shuffler, maxAttempts int) (map[string]string, int, error) {
	n := len(ids)
	if n < 2 {
		return nil, 0, errs.ErrDrawNotReady
	}
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	givers := append([]string(nil), ids...)
	sort.Strings(givers)

	if n == 2 {
		return map[string]string{givers[0]: givers[1], givers[1]: givers[0]}, 1, nil
	}

	recipients := append([]string(nil), givers...)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		shuffle(n, func(i, j int) { recipients[i], recipients[j] = recipients[j], recipients[i] })
		if hasFixedPoint(givers, recipients) {
			continue
		}
		pairs := make(map[string]string, n)
		for i, g := range givers {
			pairs[g] = recipients[i]
		}
		return pairs, attempt, nil
	}
	return nil, maxAttempts, errNoDerangement
}

func hasFixedPoint(givers, recipients []string) bool {
	for i := range givers {
		if givers[i] == recipients[i] {
			return true
		}
	}
	return false
}

// Validate checks every pair of the event's draw against the current roster
// and returns one entry per pair side that references a slot which is gone
// or no longer confirmed. Entries are ordered by giver slot id.
func Validate(ev *models.Event) []errs.StaleEntry {
	if ev == nil || ev.Draw == nil {
		return nil
	}
	live := func(id string) bool {
		s, ok := ev.Participants[id]
		return ok && s.Confirmed
	}

	givers := make([]string, 0, len(ev.Draw.Pairs))
	for g := range ev.Draw.Pairs {
		givers = append(givers, g)
	}
	sort.Strings(givers)

	var out []errs.StaleEntry
	for _, g := range givers {
		r := ev.Draw.Pairs[g]
		if !live(g) {
			out = append(out, errs.StaleEntry{GiverSlotID: g, RecipientSlotID: r, MissingSlotID: g})
		}
		if !live(r) {
			out = append(out, errs.StaleEntry{GiverSlotID: g, RecipientSlotID: r, MissingSlotID: r})
		}
	}
	return out
}

// Covers reports whether the draw includes exactly the confirmed slots.
func Covers(ev *models.Event) bool {
	if ev == nil || ev.Draw == nil {
		return false
	}
	confirmed := ev.ConfirmedSlotIDs()
	if len(confirmed) != len(ev.Draw.Pairs) {
		return false
	}
	for _, id := range confirmed {
		if _, ok := ev.Draw.Pairs[id]; !ok {
			return false
		}
	}
	return true
}
