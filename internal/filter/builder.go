package filter

import "slices"

// Builder accumulates edits for call sites that assemble a filter step by
// step. It owns its terms; Filter returns an independent snapshot. A Builder
// is not safe for concurrent use.
type Builder struct {
	terms []Term
}

// NewBuilder returns a builder seeded with the terms of f. The id of f is
// not carried over.
func NewBuilder(f Filter) *Builder {
	return &Builder{terms: slices.Clone(f.terms)}
}

// Set sets keyword=value. See Filter.Set.
func (b *Builder) Set(keyword string, value any) *Builder {
	t, err := NewTerm(keyword, Equal, value)
	if err != nil {
		panic(err)
	}
	return b.SetTerm(t)
}

// SetTerm adds or replaces t.
func (b *Builder) SetTerm(t Term) *Builder {
	b.terms = setTerm(b.terms, t)
	return b
}

// Delete removes keyword.
func (b *Builder) Delete(keyword string) *Builder {
	b.terms = deleteTerm(b.terms, keyword)
	return b
}

// And appends the terms of f whose keyword is not set yet.
func (b *Builder) And(f Filter) *Builder {
	for _, t := range f.terms {
		if !slices.ContainsFunc(b.terms, func(o Term) bool { return o.Keyword == t.Keyword }) {
			b.terms = append(b.terms, t)
		}
	}
	return b
}

// Filter returns the accumulated terms as a Filter.
func (b *Builder) Filter() Filter {
	return Filter{terms: slices.Clone(b.terms)}
}
