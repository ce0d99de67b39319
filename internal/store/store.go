package store

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/ata-marzban/scanfilter/internal/filter"
)

// NamedFilter is a filter persisted under an id and a name.
type NamedFilter struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Comment    string    `json:"comment,omitempty"`
	EntityType string    `json:"type"`
	Term       string    `json:"term"`
	CreatedAt  time.Time `json:"creation_time"`
	ModifiedAt time.Time `json:"modification_time"`
}

// GetID returns the id, or "" for a nil filter.
func (nf *NamedFilter) GetID() string {
	if nf == nil {
		return ""
	}
	return nf.ID
}

// GetTerm returns the filter string, or "" for a nil filter.
func (nf *NamedFilter) GetTerm() string {
	if nf == nil {
		return ""
	}
	return nf.Term
}

// Filter returns the parsed term carrying the named filter's id.
func (nf *NamedFilter) Filter() filter.Filter {
	return filter.FromRecord(nf)
}

// Store defines the storage interface for named filters.
type Store interface {
	CreateNamedFilter(ctx context.Context, nf *NamedFilter) (*NamedFilter, error)
	GetNamedFilter(ctx context.Context, id string) (*NamedFilter, error)
	// ListNamedFilters returns every named filter matching the type term of
	// query, ordered by its sort or sort-reverse term. Paging is left to the
	// caller.
	ListNamedFilters(ctx context.Context, query filter.Filter) ([]*NamedFilter, error)
	UpdateNamedFilter(ctx context.Context, nf *NamedFilter, updateMask *fieldmaskpb.FieldMask) (*NamedFilter, error)
	DeleteNamedFilter(ctx context.Context, id string) error

	// Admin
	Reset()

	// State returns summary statistics for the admin API.
	State() map[string]interface{}
}
