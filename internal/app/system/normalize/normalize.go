// Package normalize cleans user-supplied names and emails before they are
// stored on a participant slot. Names may arrive from invite forms that were
// filled in by the organizer, so any markup is stripped.
package normalize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name strips markup, collapses internal whitespace and trims. Case is preserved.
// Entities are decoded before stripping so escaped tags cannot survive as text,
// and the pass repeats until the value is stable to catch nested escaping.
func Name(s string) string {
	stable := false
	for i := 0; i < maxStripPasses && !stable; i++ {
		next := stripOnce(s)
		stable = next == s
		s = next
	}
	if !stable {
		s = angles.Replace(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

const maxStripPasses = 8

var angles = strings.NewReplacer("<", "", ">", "")

func stripOnce(s string) string {
	return html.UnescapeString(strict.Sanitize(html.UnescapeString(s)))
}

// DisplayName joins normalized first and last names.
func DisplayName(first, last string) string {
	return strings.TrimSpace(Name(first) + " " + Name(last))
}

// OptionalEmail returns nil for a blank email, otherwise the normalized value.
func OptionalEmail(s string) *string {
	e := Email(s)
	if e == "" {
		return nil
	}
	return &e
}
