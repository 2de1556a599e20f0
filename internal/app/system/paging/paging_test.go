package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url  string
		want Page
	}{
		{"/", Page{Start: 1, Size: PageSize}},
		{"/?start=51", Page{Start: 51, Size: PageSize}},
		{"/?start=0&limit=-4", Page{Start: 1, Size: PageSize}},
		{"/?start=abc&limit=xyz", Page{Start: 1, Size: PageSize}},
		{"/?limit=10", Page{Start: 1, Size: 10}},
		{"/?limit=100000", Page{Start: 1, Size: MaxPageSize}},
	}
	for _, tt := range tests {
		got := Parse(httptest.NewRequest("GET", tt.url, nil))
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.url, got, tt.want)
		}
	}
}

func TestPage_Offsets(t *testing.T) {
	p := Page{Start: 21, Size: 10}
	if p.Offset() != 20 {
		t.Errorf("Offset() = %d, want 20", p.Offset())
	}
	if p.LimitPlusOne() != 11 {
		t.Errorf("LimitPlusOne() = %d, want 11", p.LimitPlusOne())
	}
}

func TestTrim(t *testing.T) {
	p := Page{Start: 1, Size: 3}

	rows := []int{1, 2, 3, 4}
	if !Trim(&rows, p) {
		t.Error("expected next page")
	}
	if len(rows) != 3 {
		t.Errorf("len = %d, want 3", len(rows))
	}

	rows = []int{1, 2}
	if Trim(&rows, p) {
		t.Error("expected no next page")
	}
	if len(rows) != 2 {
		t.Errorf("len = %d, want 2", len(rows))
	}
}

func TestRangeFor(t *testing.T) {
	tests := []struct {
		name string
		page Page
		shown int
		want Range
	}{
		{"no results", Page{Start: 1, Size: PageSize}, 0, Range{Start: 0, End: 0, PrevStart: 1, NextStart: 1}},
		{"first page partial", Page{Start: 1, Size: PageSize}, 10, Range{Start: 1, End: 10, PrevStart: 1, NextStart: 11}},
		{"second page", Page{Start: PageSize + 1, Size: PageSize}, PageSize, Range{Start: PageSize + 1, End: PageSize * 2, PrevStart: 1, NextStart: PageSize*2 + 1}},
		{"custom size", Page{Start: 11, Size: 10}, 4, Range{Start: 11, End: 14, PrevStart: 1, NextStart: 15}},
		{"middle page", Page{Start: 101, Size: 50}, 50, Range{Start: 101, End: 150, PrevStart: 51, NextStart: 151}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RangeFor(tt.page, tt.shown); got != tt.want {
				t.Errorf("RangeFor(%+v, %d) = %+v, want %+v", tt.page, tt.shown, got, tt.want)
			}
		})
	}
}
