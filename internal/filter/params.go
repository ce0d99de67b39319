package filter

import "net/url"

// Query parameter names understood by the scanner backend.
const (
	ParamFilter   = "filter"
	ParamFilterID = "filter_id"
)

// Record is a named filter as stored by the backend.
type Record interface {
	GetID() string
	GetTerm() string
}

// FromRecord parses the term of a stored named filter and keeps its id.
func FromRecord(r Record) Filter {
	f := Parse(r.GetTerm())
	f.id = r.GetID()
	return f
}

// Params returns the request parameters selecting f.
func (f Filter) Params() url.Values {
	v := url.Values{}
	f.UpdateURLValues(v)
	return v
}

// UpdateURLValues sets filter_id when f refers to a stored filter and filter
// otherwise; the other key is removed. The stored definition wins over the
// text because the backend resolves filter_id first.
func (f Filter) UpdateURLValues(v url.Values) {
	switch {
	case f.id != "":
		v.Set(ParamFilterID, f.id)
		v.Del(ParamFilter)
	case len(f.terms) > 0:
		v.Set(ParamFilter, f.String())
		v.Del(ParamFilterID)
	default:
		v.Del(ParamFilter)
		v.Del(ParamFilterID)
	}
}
