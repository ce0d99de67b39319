package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/status"

	"github.com/ata-marzban/scanfilter/internal/store"
)

// Creator validates and stores a named filter.
type Creator interface {
	CreateNamedFilter(ctx context.Context, nf *store.NamedFilter) (*store.NamedFilter, error)
}

// NewHandler returns an HTTP handler for the admin API.
func NewHandler(s store.Store, c Creator, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/reset", handleReset(s, logger))
	mux.HandleFunc("GET /admin/state", handleState(s))
	mux.HandleFunc("POST /admin/seed", handleSeed(c, logger))
	return mux
}

func handleReset(s store.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Reset()
		logger.Info("store reset")
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleState(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := s.State()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(state)
	}
}

type seedResult struct {
	Created []*store.NamedFilter `json:"created"`
	Errors  []string             `json:"errors,omitempty"`
}

// handleSeed creates every named filter in the request body. Invalid entries
// are reported and skipped.
func handleSeed(c Creator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filters []*store.NamedFilter
		if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
			http.Error(w, "invalid seed body", http.StatusBadRequest)
			return
		}

		res := seedResult{Created: []*store.NamedFilter{}}
		for _, nf := range filters {
			created, err := c.CreateNamedFilter(r.Context(), nf)
			if err != nil {
				res.Errors = append(res.Errors, status.Convert(err).Message())
				continue
			}
			res.Created = append(res.Created, created)
		}
		logger.Info("seeded named filters", "created", len(res.Created), "failed", len(res.Errors))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}
