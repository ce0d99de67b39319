package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ata-marzban/scanfilter/internal/filter"
	"github.com/ata-marzban/scanfilter/internal/keywords"
	"github.com/ata-marzban/scanfilter/internal/store"
)

const MaxNameLength = 80

// FieldError returns an InvalidArgument status carrying a BadRequest detail
// that names the offending field.
func FieldError(field, format string, args ...any) error {
	desc := fmt.Sprintf(format, args...)
	st := status.New(codes.InvalidArgument, field+": "+desc)
	detailed, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: field, Description: desc},
		},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// TermError converts an *filter.InvalidTermError into a field error. Other
// errors are returned unchanged.
func TermError(field string, err error) error {
	var ite *filter.InvalidTermError
	if errors.As(err, &ite) {
		return FieldError(field, "%s", ite.Error())
	}
	return err
}

// ParseTerm parses a filter string strictly: fragments the permissive parser
// would skip are reported so stored filters hold only what was understood.
func ParseTerm(field, term string) (filter.Filter, error) {
	terms, dropped := filter.Tokenize(term)
	if len(dropped) > 0 {
		return filter.Filter{}, FieldError(field, "unrecognized filter fragments %q", dropped)
	}
	return filter.New(terms...), nil
}

// ValidateNamedFilter checks a named filter and returns a copy whose term is
// in canonical form. nf itself is not modified.
func ValidateNamedFilter(nf *store.NamedFilter, reg *keywords.Registry) (*store.NamedFilter, error) {
	if nf == nil {
		return nil, status.Error(codes.InvalidArgument, "filter is required")
	}
	if err := ValidateName(nf.Name); err != nil {
		return nil, err
	}
	if err := ValidateEntityType(nf.EntityType, reg); err != nil {
		return nil, err
	}
	f, err := ParseTerm("term", nf.Term)
	if err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return nil, FieldError("term", "filter is empty")
	}
	if err := ValidateSort(f, nf.EntityType, reg); err != nil {
		return nil, err
	}
	normalized := *nf
	normalized.Term = f.String()
	return &normalized, nil
}

// ValidateName checks a named filter's display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return FieldError("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return FieldError("name", "name is longer than %d bytes", MaxNameLength)
	}
	return nil
}

// ValidateEntityType checks that entity is listed in the keyword registry.
func ValidateEntityType(entity string, reg *keywords.Registry) error {
	if entity == "" {
		return FieldError("type", "type is required")
	}
	if !reg.Has(entity) {
		return FieldError("type", "unknown entity type %q", entity)
	}
	return nil
}

// ValidateSort checks that f sorts on a keyword entity lists can be sorted on.
func ValidateSort(f filter.Filter, entity string, reg *keywords.Registry) error {
	kw, ok := f.SortBy()
	if !ok {
		return nil
	}
	if !reg.IsSortable(entity, kw) {
		return FieldError("term", "cannot sort %s lists by %q", entity, kw)
	}
	return nil
}

// ValidateListQuery checks a query for listing named filters.
func ValidateListQuery(f filter.Filter) error {
	if kw, ok := f.SortBy(); ok && !store.IsSortKeyword(kw) {
		return FieldError("filter", "cannot sort filters by %q", kw)
	}
	return nil
}

// ValidateFilterID checks that id looks like an id the store hands out.
func ValidateFilterID(id string) error {
	if id == "" {
		return FieldError("id", "id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return FieldError("id", "malformed id %q", id)
	}
	return nil
}
