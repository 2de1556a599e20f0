// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows in a paged list.
const PageSize = 50

// MaxPageSize caps a caller-supplied limit.
const MaxPageSize = 200

// Page is a parsed offset window. Start is 1-based.
type Page struct {
	Start int
	Size  int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int64 { return int64(p.Start - 1) }

// LimitPlusOne returns Size+1 for look-ahead pagination (fetch one extra row
// to detect a next page).
func (p Page) LimitPlusOne() int64 { return int64(p.Size + 1) }

// Parse reads the "start" (1-based) and "limit" query parameters. Missing or
// invalid values fall back to 1 and PageSize.
func Parse(r *http.Request) Page {
	return Page{Start: ParseStart(r), Size: parseLimit(query.Get(r, "limit"))}
}

// ParseStart extracts the human-friendly "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	s := query.Get(r, "start")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Trim cuts a look-ahead fetch down to the page size and reports whether a
// next page exists.
func Trim[T any](rows *[]T, p Page) bool {
	if len(*rows) > p.Size {
		*rows = (*rows)[:p.Size]
		return true
	}
	return false
}

// Range holds computed display range values for a paginated list.
type Range struct {
	Start     int `json:"start"`      // 1-based start index (0 if no results)
	End       int `json:"end"`        // 1-based end index (0 if no results)
	PrevStart int `json:"prev_start"` // start value for previous page link
	NextStart int `json:"next_start"` // start value for next page link
}

// RangeFor calculates the display range of a page that returned shown rows.
func RangeFor(p Page, shown int) Range {
	if shown == 0 {
		return Range{Start: 0, End: 0, PrevStart: 1, NextStart: 1}
	}

	prevStart := p.Start - p.Size
	if prevStart < 1 {
		prevStart = 1
	}

	return Range{
		Start:     p.Start,
		End:       p.Start + shown - 1,
		PrevStart: prevStart,
		NextStart: p.Start + shown,
	}
}
