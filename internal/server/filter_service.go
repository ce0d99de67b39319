package server

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/ata-marzban/scanfilter/internal/filter"
	"github.com/ata-marzban/scanfilter/internal/keywords"
	"github.com/ata-marzban/scanfilter/internal/metrics"
	"github.com/ata-marzban/scanfilter/internal/store"
	"github.com/ata-marzban/scanfilter/internal/validation"
)

// DefaultRows is the page size used when a filter has no usable rows term.
const DefaultRows = 10

// TermView is the JSON form of a filter.Term.
type TermView struct {
	Keyword  string `json:"keyword"`
	Relation string `json:"relation"`
	Value    string `json:"value"`
}

func termViews(terms []filter.Term) []TermView {
	views := make([]TermView, len(terms))
	for i, t := range terms {
		views[i] = TermView{Keyword: t.Keyword, Relation: t.Relation.String(), Value: t.Value}
	}
	return views
}

type ParseFilterRequest struct {
	Filter string `json:"filter"`
}

type ParseFilterResponse struct {
	Filter        string     `json:"filter"`
	Simple        string     `json:"simple"`
	Terms         []TermView `json:"terms"`
	Dropped       []string   `json:"dropped,omitempty"`
	SortBy        string     `json:"sort_by,omitempty"`
	SortDirection string     `json:"sort_direction"`
	First         int        `json:"first"`
	Rows          int        `json:"rows"`
	Search        string     `json:"search,omitempty"`
}

type AndFiltersRequest struct {
	Filter string `json:"filter"`
	Other  string `json:"other"`
}

type FilterResponse struct {
	Filter string `json:"filter"`
}

type ParamsRequest struct {
	Filter   string `json:"filter"`
	FilterID string `json:"filter_id"`
}

type ParamsResponse struct {
	Params map[string]string `json:"params"`
}

type ListNamedFiltersRequest struct {
	Filter string `json:"filter"`
}

type ListNamedFiltersResponse struct {
	Filters   []*store.NamedFilter `json:"filters"`
	Filter    string               `json:"filter"`
	First     int                  `json:"first"`
	Rows      int                  `json:"rows"`
	TotalSize int                  `json:"total_size"`
}

type UpdateNamedFilterRequest struct {
	Filter     *store.NamedFilter
	UpdateMask *fieldmaskpb.FieldMask
}

type KeywordsResponse struct {
	Type     string             `json:"type"`
	Keywords []keywords.Keyword `json:"keywords"`
}

type EntityTypesResponse struct {
	Types []string `json:"types"`
}

// FilterService implements the filter API on top of a named-filter store.
type FilterService struct {
	store       store.Store
	keywords    *keywords.Registry
	metrics     *metrics.Metrics
	logger      *slog.Logger
	defaultRows int
}

// Option configures a FilterService.
type Option func(*FilterService)

// WithDefaultRows sets the page size used for filters without rows.
func WithDefaultRows(n int) Option {
	return func(s *FilterService) {
		if n > 0 || n == filter.AllRows {
			s.defaultRows = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *FilterService) { s.logger = l }
}

// WithMetrics enables parse metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FilterService) { s.metrics = m }
}

func NewFilterService(st store.Store, reg *keywords.Registry, opts ...Option) *FilterService {
	s := &FilterService{
		store:       st,
		keywords:    reg,
		logger:      slog.New(slog.DiscardHandler),
		defaultRows: DefaultRows,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// parse is the lenient parser used for ad hoc filter strings.
func (s *FilterService) parse(text string) (filter.Filter, []string) {
	terms, dropped := filter.Tokenize(text)
	if s.metrics != nil {
		s.metrics.ObserveParse(len(terms), len(dropped))
	}
	if len(dropped) > 0 {
		s.logger.Debug("dropped filter fragments", "filter", text, "dropped", dropped)
	}
	return filter.New(terms...), dropped
}

func (s *FilterService) ParseFilter(_ context.Context, req *ParseFilterRequest) (*ParseFilterResponse, error) {
	f, dropped := s.parse(req.Filter)

	resp := &ParseFilterResponse{
		Filter:        f.String(),
		Simple:        f.Simple().String(),
		Terms:         termViews(f.Terms()),
		Dropped:       dropped,
		SortDirection: f.SortDirection().String(),
		First:         f.First(),
		Rows:          f.Rows(s.defaultRows),
	}
	if kw, ok := f.SortBy(); ok {
		resp.SortBy = kw
	}
	if t, ok := f.Search(); ok {
		resp.Search = t.Value
	}
	return resp, nil
}

func (s *FilterService) AndFilters(_ context.Context, req *AndFiltersRequest) (*FilterResponse, error) {
	f, _ := s.parse(req.Filter)
	other, _ := s.parse(req.Other)
	return &FilterResponse{Filter: f.And(other).String()}, nil
}

// BuildParams returns the request parameters selecting a filter. A stored
// filter id wins over the text.
func (s *FilterService) BuildParams(ctx context.Context, req *ParamsRequest) (*ParamsResponse, error) {
	f, _ := s.parse(req.Filter)
	if req.FilterID != "" {
		if err := validation.ValidateFilterID(req.FilterID); err != nil {
			return nil, err
		}
		nf, err := s.store.GetNamedFilter(ctx, req.FilterID)
		if err != nil {
			return nil, err
		}
		f = nf.Filter()
	}

	params := make(map[string]string)
	for k, v := range f.Params() {
		params[k] = v[0]
	}
	return &ParamsResponse{Params: params}, nil
}

func (s *FilterService) CreateNamedFilter(ctx context.Context, nf *store.NamedFilter) (*store.NamedFilter, error) {
	if nf == nil {
		return nil, status.Error(codes.InvalidArgument, "filter is required")
	}
	valid, err := validation.ValidateNamedFilter(nf, s.keywords)
	if err != nil {
		return nil, err
	}
	valid.ID = ""
	created, err := s.store.CreateNamedFilter(ctx, valid)
	if err != nil {
		return nil, err
	}
	s.logger.Info("named filter created", "id", created.ID, "name", created.Name, "type", created.EntityType)
	return created, nil
}

func (s *FilterService) GetNamedFilter(ctx context.Context, id string) (*store.NamedFilter, error) {
	if err := validation.ValidateFilterID(id); err != nil {
		return nil, err
	}
	return s.store.GetNamedFilter(ctx, id)
}

func (s *FilterService) ListNamedFilters(ctx context.Context, req *ListNamedFiltersRequest) (*ListNamedFiltersResponse, error) {
	query, err := validation.ParseTerm("filter", req.Filter)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateListQuery(query); err != nil {
		return nil, err
	}

	all, err := s.store.ListNamedFilters(ctx, query)
	if err != nil {
		return nil, err
	}

	first := query.First()
	rows := query.Rows(s.defaultRows)

	offset := min(first-1, len(all))
	end := len(all)
	if rows != filter.AllRows && rows < len(all)-offset {
		end = offset + rows
	}

	return &ListNamedFiltersResponse{
		Filters:   all[offset:end],
		Filter:    query.String(),
		First:     first,
		Rows:      rows,
		TotalSize: len(all),
	}, nil
}

func (s *FilterService) UpdateNamedFilter(ctx context.Context, req *UpdateNamedFilterRequest) (*store.NamedFilter, error) {
	nf := req.Filter
	if nf == nil {
		return nil, status.Error(codes.InvalidArgument, "filter is required")
	}
	if err := validation.ValidateFilterID(nf.ID); err != nil {
		return nil, err
	}

	// Validate the record as it will look after the update.
	existing, err := s.store.GetNamedFilter(ctx, nf.ID)
	if err != nil {
		return nil, err
	}
	merged := *existing
	paths := req.UpdateMask.GetPaths()
	if len(paths) == 0 {
		paths = []string{"name", "comment", "type", "term"}
	}
	for _, p := range paths {
		switch p {
		case "name":
			merged.Name = nf.Name
		case "comment":
			merged.Comment = nf.Comment
		case "type":
			merged.EntityType = nf.EntityType
		case "term":
			merged.Term = nf.Term
		default:
			return nil, validation.FieldError("update_mask", "unknown field %q", p)
		}
	}
	valid, err := validation.ValidateNamedFilter(&merged, s.keywords)
	if err != nil {
		return nil, err
	}

	// The store merges only the masked fields.
	patch := *nf
	patch.Term = valid.Term
	updated, err := s.store.UpdateNamedFilter(ctx, &patch, &fieldmaskpb.FieldMask{Paths: paths})
	if err != nil {
		return nil, err
	}
	s.logger.Info("named filter updated", "id", updated.ID, "fields", paths)
	return updated, nil
}

func (s *FilterService) DeleteNamedFilter(ctx context.Context, id string) error {
	if err := validation.ValidateFilterID(id); err != nil {
		return err
	}
	if err := s.store.DeleteNamedFilter(ctx, id); err != nil {
		return err
	}
	s.logger.Info("named filter deleted", "id", id)
	return nil
}

func (s *FilterService) ListEntityTypes(_ context.Context) *EntityTypesResponse {
	return &EntityTypesResponse{Types: s.keywords.EntityTypes()}
}

func (s *FilterService) ListKeywords(_ context.Context, entity string) (*KeywordsResponse, error) {
	kws, ok := s.keywords.Lookup(entity)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "entity type %q not found", entity)
	}
	return &KeywordsResponse{Type: entity, Keywords: kws}, nil
}
