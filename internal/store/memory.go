package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/ata-marzban/scanfilter/internal/filter"
)

// Keywords a named filter list can be sorted on.
var sortFuncs = map[string]func(a, b *NamedFilter) int{
	"name": func(a, b *NamedFilter) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	},
	"type": func(a, b *NamedFilter) int {
		return cmp.Compare(a.EntityType, b.EntityType)
	},
	"term": func(a, b *NamedFilter) int {
		return cmp.Compare(a.Term, b.Term)
	},
	"created": func(a, b *NamedFilter) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	},
	"modified": func(a, b *NamedFilter) int {
		return a.ModifiedAt.Compare(b.ModifiedAt)
	},
}

// IsSortKeyword reports whether ListNamedFilters can sort on keyword.
func IsSortKeyword(keyword string) bool {
	_, ok := sortFuncs[keyword]
	return ok
}

// MemoryStore implements Store with an in-memory map.
type MemoryStore struct {
	mu sync.RWMutex

	// filters: map[id]*NamedFilter
	filters map[string]*NamedFilter

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		filters: make(map[string]*NamedFilter),
		now:     time.Now,
	}
}

func clone(nf *NamedFilter) *NamedFilter {
	c := *nf
	return &c
}

// nameTaken reports whether another filter of the same type uses name.
// Callers hold s.mu.
func (s *MemoryStore) nameTaken(id, name, entityType string) bool {
	for _, nf := range s.filters {
		if nf.ID != id && nf.EntityType == entityType && nf.Name == name {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateNamedFilter(_ context.Context, nf *NamedFilter) (*NamedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken("", nf.Name, nf.EntityType) {
		return nil, status.Errorf(codes.AlreadyExists, "filter %q already exists for type %q", nf.Name, nf.EntityType)
	}

	stored := clone(nf)
	stored.ID = uuid.NewString()
	now := s.now().UTC()
	stored.CreatedAt = now
	stored.ModifiedAt = now

	s.filters[stored.ID] = stored
	return clone(stored), nil
}

func (s *MemoryStore) GetNamedFilter(_ context.Context, id string) (*NamedFilter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nf, ok := s.filters[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "filter %q not found", id)
	}
	return clone(nf), nil
}

func (s *MemoryStore) ListNamedFilters(_ context.Context, query filter.Filter) ([]*NamedFilter, error) {
	entityType, byType := query.Get("type")

	s.mu.RLock()
	result := make([]*NamedFilter, 0, len(s.filters))
	for _, nf := range s.filters {
		if byType && nf.EntityType != entityType {
			continue
		}
		result = append(result, clone(nf))
	}
	s.mu.RUnlock()

	key, ok := query.SortBy()
	less, known := sortFuncs[key]
	if !ok || !known {
		less = sortFuncs["name"]
	}
	desc := query.SortDirection() == filter.Descending
	slices.SortStableFunc(result, func(a, b *NamedFilter) int {
		c := less(a, b)
		if c == 0 {
			// Map iteration order is random; ids keep pages stable.
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
	return result, nil
}

func (s *MemoryStore) UpdateNamedFilter(_ context.Context, nf *NamedFilter, updateMask *fieldmaskpb.FieldMask) (*NamedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.filters[nf.ID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "filter %q not found", nf.ID)
	}

	updated := clone(existing)
	if updateMask == nil || len(updateMask.GetPaths()) == 0 {
		// Replace every user-managed field.
		updated.Name = nf.Name
		updated.Comment = nf.Comment
		updated.EntityType = nf.EntityType
		updated.Term = nf.Term
	} else {
		for _, path := range updateMask.GetPaths() {
			switch path {
			case "name":
				updated.Name = nf.Name
			case "comment":
				updated.Comment = nf.Comment
			case "type":
				updated.EntityType = nf.EntityType
			case "term":
				updated.Term = nf.Term
			default:
				return nil, status.Errorf(codes.InvalidArgument, "update_mask: unknown field %q", path)
			}
		}
	}

	if s.nameTaken(updated.ID, updated.Name, updated.EntityType) {
		return nil, status.Errorf(codes.AlreadyExists, "filter %q already exists for type %q", updated.Name, updated.EntityType)
	}

	updated.ModifiedAt = s.now().UTC()
	s.filters[updated.ID] = updated
	return clone(updated), nil
}

func (s *MemoryStore) DeleteNamedFilter(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.filters[id]; !ok {
		return status.Errorf(codes.NotFound, "filter %q not found", id)
	}
	delete(s.filters, id)
	return nil
}

func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters = make(map[string]*NamedFilter)
}

func (s *MemoryStore) State() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[string]int)
	for _, nf := range s.filters {
		byType[nf.EntityType]++
	}

	return map[string]interface{}{
		"named_filters": len(s.filters),
		"types":         byType,
	}
}
