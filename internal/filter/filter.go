// Package filter implements the filter language used to select, sort and
// page lists of scanner entities, e.g.
//
//	name=foo severity>5 sort-reverse=name rows=10 first=1
//
// A Filter is an immutable, ordered set of terms with at most one term per
// keyword. Every operation returns a new Filter and leaves the receiver
// untouched, so a Filter may be shared freely. Use a Builder to accumulate
// edits.
package filter

import (
	"slices"
	"strings"
)

// Filter is an ordered collection of terms. The zero value is an empty
// filter without id.
type Filter struct {
	id    string
	terms []Term
}

// Parse reads a filter string. It never fails: fragments that do not form a
// term are skipped.
func Parse(text string) Filter {
	terms, _ := Tokenize(text)
	return New(terms...)
}

// New returns a filter holding terms in order. A later term replaces an
// earlier one with the same keyword.
func New(terms ...Term) Filter {
	f := Filter{}
	for _, t := range terms {
		f.terms = setTerm(f.terms, t)
	}
	return f
}

// ID returns the identity of the named filter f was loaded from, if any.
func (f Filter) ID() string {
	return f.id
}

// HasID reports whether f refers to a stored named filter.
func (f Filter) HasID() bool {
	return f.id != ""
}

// WithID returns a copy of f carrying id.
func (f Filter) WithID(id string) Filter {
	return Filter{id: id, terms: slices.Clone(f.terms)}
}

// Copy returns a deep copy of f.
func (f Filter) Copy() Filter {
	return Filter{id: f.id, terms: slices.Clone(f.terms)}
}

// Len returns the number of terms.
func (f Filter) Len() int {
	return len(f.terms)
}

// IsEmpty reports whether f has no terms.
func (f Filter) IsEmpty() bool {
	return len(f.terms) == 0
}

// Terms returns a copy of the terms in order.
func (f Filter) Terms() []Term {
	return slices.Clone(f.terms)
}

func (f Filter) index(keyword string) int {
	return slices.IndexFunc(f.terms, func(t Term) bool { return t.Keyword == keyword })
}

// Get returns the value of keyword.
func (f Filter) Get(keyword string) (string, bool) {
	t, ok := f.Term(keyword)
	return t.Value, ok
}

// Term returns the term for keyword.
func (f Filter) Term(keyword string) (Term, bool) {
	if i := f.index(keyword); i >= 0 {
		return f.terms[i], true
	}
	return Term{}, false
}

// Has reports whether keyword is present.
func (f Filter) Has(keyword string) bool {
	return f.index(keyword) >= 0
}

// HasTerm reports whether f contains t exactly, relation and value included.
func (f Filter) HasTerm(t Term) bool {
	i := f.index(t.Keyword)
	return i >= 0 && f.terms[i].Equal(t)
}

// Set returns a filter with keyword=value. It panics when NewTerm would
// fail: an empty or malformed keyword, or a value that is not a string,
// number or bool. Use SetRelation for keywords from user input.
func (f Filter) Set(keyword string, value any) Filter {
	nf, err := f.SetRelation(keyword, Equal, value)
	if err != nil {
		panic(err)
	}
	return nf
}

// SetRelation returns a filter with the term keyword, rel, value.
func (f Filter) SetRelation(keyword string, rel Relation, value any) (Filter, error) {
	t, err := NewTerm(keyword, rel, value)
	if err != nil {
		return Filter{}, err
	}
	return f.SetTerm(t), nil
}

// SetTerm returns a filter containing t. An existing term with the same
// keyword is replaced in place, otherwise t is appended. Setting sort drops
// sort-reverse and the other way round.
func (f Filter) SetTerm(t Term) Filter {
	return f.derive(setTerm(slices.Clone(f.terms), t))
}

// Delete returns a filter without keyword.
func (f Filter) Delete(keyword string) Filter {
	return f.derive(deleteTerm(slices.Clone(f.terms), keyword))
}

// And combines two filters: all terms of f followed by the terms of other
// whose keyword f does not already use.
func (f Filter) And(other Filter) Filter {
	terms := slices.Clone(f.terms)
	for _, t := range other.terms {
		if !f.Has(t.Keyword) {
			terms = append(terms, t)
		}
	}
	return f.derive(terms)
}

// Merge returns f with every term of other set on top of it.
func (f Filter) Merge(other Filter) Filter {
	terms := slices.Clone(f.terms)
	for _, t := range other.terms {
		terms = setTerm(terms, t)
	}
	return f.derive(terms)
}

// Keywords copied by MergeExtra: result display options and paging.
var extraKeywords = []string{
	"apply_overrides",
	"min_qod",
	"overrides",
	"notes",
	"result_hosts_only",
	"delta_states",
	"levels",
	"timezone",
	"rows",
	"first",
	"sort",
	"sort-reverse",
}

// MergeExtra copies display and paging keywords from other that f lacks.
// Sorting is taken over only when f is unsorted.
func (f Filter) MergeExtra(other Filter) Filter {
	terms := slices.Clone(f.terms)
	sorted := f.Has(sortKeyword) || f.Has(sortReverseKeyword)
	for _, kw := range extraKeywords {
		if f.Has(kw) {
			continue
		}
		if sorted && (kw == sortKeyword || kw == sortReverseKeyword) {
			continue
		}
		if t, ok := other.Term(kw); ok {
			terms = setTerm(terms, t)
		}
	}
	return f.derive(terms)
}

// Simple returns f without its paging and sorting terms, i.e. only the
// criteria that select entities.
func (f Filter) Simple() Filter {
	terms := slices.Clone(f.terms)
	for _, kw := range metaKeywords {
		terms = deleteTerm(terms, kw)
	}
	return f.derive(terms)
}

// Equal reports whether f and o hold the same terms, in any order.
func (f Filter) Equal(o Filter) bool {
	if len(f.terms) != len(o.terms) {
		return false
	}
	for _, t := range f.terms {
		if !o.HasTerm(t) {
			return false
		}
	}
	return true
}

// String serializes f. Parse(f.String()) yields the same string again.
func (f Filter) String() string {
	parts := make([]string, len(f.terms))
	for i, t := range f.terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// derive wraps new terms. The id survives only if the terms did not change:
// an edited filter no longer matches what is stored under that id.
func (f Filter) derive(terms []Term) Filter {
	nf := Filter{terms: terms}
	if f.id != "" && slices.Equal(f.terms, terms) {
		nf.id = f.id
	}
	return nf
}

// setTerm updates terms in place and may grow it; callers pass a copy.
func setTerm(terms []Term, t Term) []Term {
	switch t.Keyword {
	case sortKeyword:
		terms = deleteTerm(terms, sortReverseKeyword)
	case sortReverseKeyword:
		terms = deleteTerm(terms, sortKeyword)
	}
	if i := slices.IndexFunc(terms, func(o Term) bool { return o.Keyword == t.Keyword }); i >= 0 {
		terms[i] = t
		return terms
	}
	return append(terms, t)
}

func deleteTerm(terms []Term, keyword string) []Term {
	return slices.DeleteFunc(terms, func(t Term) bool { return t.Keyword == keyword })
}
