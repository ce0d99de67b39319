package filter

import (
	"math"
	"slices"
	"strconv"
)

const (
	sortKeyword        = "sort"
	sortReverseKeyword = "sort-reverse"
	firstKeyword       = "first"
	rowsKeyword        = "rows"
	minQoDKeyword      = "min_qod"
)

// AllRows is the rows value that disables paging.
const AllRows = -1

// metaKeywords control paging and ordering rather than selection.
var metaKeywords = []string{firstKeyword, rowsKeyword, sortKeyword, sortReverseKeyword}

// IsMetaKeyword reports whether keyword controls paging or sorting.
func IsMetaKeyword(keyword string) bool {
	return slices.Contains(metaKeywords, keyword)
}

// SortDirection is the order requested by sort or sort-reverse.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

func (d SortDirection) String() string {
	if d == Descending {
		return "descending"
	}
	return "ascending"
}

// SortBy returns the keyword f sorts on.
func (f Filter) SortBy() (string, bool) {
	if v, ok := f.Get(sortKeyword); ok {
		return v, true
	}
	return f.Get(sortReverseKeyword)
}

// SortDirection is Descending when f uses sort-reverse.
func (f Filter) SortDirection() SortDirection {
	if f.Has(sortReverseKeyword) {
		return Descending
	}
	return Ascending
}

// WithSort returns f sorted on keyword in direction dir.
func (f Filter) WithSort(keyword string, dir SortDirection) Filter {
	kw := sortKeyword
	if dir == Descending {
		kw = sortReverseKeyword
	}
	return f.SetTerm(Term{Keyword: kw, Relation: Equal, Value: keyword})
}

// First returns the 1-based index of the first row to show.
func (f Filter) First() int {
	n, ok := f.intValue(firstKeyword)
	if !ok || n < 1 {
		return 1
	}
	return n
}

// Rows returns the page size. AllRows means no limit; fallback is used when
// rows is missing or unusable.
func (f Filter) Rows(fallback int) int {
	n, ok := f.intValue(rowsKeyword)
	if !ok || (n < 1 && n != AllRows) {
		return fallback
	}
	return n
}

// MinQoD returns the minimum quality of detection, in percent.
func (f Filter) MinQoD() (int, bool) {
	return f.intValue(minQoDKeyword)
}

// Next returns the filter for the following page.
func (f Filter) Next(fallbackRows int) Filter {
	rows := f.Rows(fallbackRows)
	if rows == AllRows {
		return f.Copy()
	}
	first := f.First()
	if rows > math.MaxInt-first {
		return f.Set(firstKeyword, math.MaxInt)
	}
	return f.Set(firstKeyword, first+rows)
}

// Previous returns the filter for the preceding page, stopping at the first.
func (f Filter) Previous(fallbackRows int) Filter {
	rows := f.Rows(fallbackRows)
	if rows == AllRows {
		return f.FirstPage()
	}
	return f.Set(firstKeyword, max(f.First()-rows, 1))
}

// FirstPage returns the filter for the first page.
func (f Filter) FirstPage() Filter {
	return f.Set(firstKeyword, 1)
}

// All returns f showing every row on a single page.
func (f Filter) All() Filter {
	return f.Set(firstKeyword, 1).Set(rowsKeyword, AllRows)
}

// Search returns the free text term, e.g. ~"sql injection".
func (f Filter) Search() (Term, bool) {
	return f.Term("")
}

// WithSearch returns f searching for text. Empty text removes the search.
func (f Filter) WithSearch(text string) Filter {
	if text == "" {
		return f.Delete("")
	}
	return f.SetTerm(NewSearchTerm(text, Approx))
}

func (f Filter) intValue(keyword string) (int, bool) {
	v, ok := f.Get(keyword)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err == nil {
		return n, true
	}
	// Stored filters sometimes carry "10.0".
	fl, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(fl) || fl >= float64(math.MaxInt) || fl < float64(math.MinInt) {
		return 0, false
	}
	return int(fl), true
}
