package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ata-marzban/scanfilter/internal/keywords"
	"github.com/ata-marzban/scanfilter/internal/server"
	"github.com/ata-marzban/scanfilter/internal/store"
)

func newHandler(s store.Store) http.Handler {
	svc := server.NewFilterService(s, keywords.Default())
	return NewHandler(s, svc, slog.New(slog.DiscardHandler))
}

func seedData(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	for _, nf := range []*store.NamedFilter{
		{Name: "a", EntityType: "task", Term: "rows=10"},
		{Name: "b", EntityType: "result", Term: "severity>5"},
	} {
		if _, err := s.CreateNamedFilter(ctx, nf); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReset(t *testing.T) {
	s := store.NewMemoryStore()
	seedData(t, s)

	handler := newHandler(s)

	// Verify state has data.
	state := s.State()
	if state["named_filters"].(int) != 2 {
		t.Fatal("expected 2 named filters before reset")
	}

	// POST /admin/reset
	req := httptest.NewRequest("POST", "/admin/reset", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("got status %d, want 204", w.Code)
	}

	// Verify data is gone.
	state = s.State()
	if state["named_filters"].(int) != 0 {
		t.Error("expected 0 named filters after reset")
	}
}

func TestState(t *testing.T) {
	s := store.NewMemoryStore()
	seedData(t, s)

	handler := newHandler(s)

	req := httptest.NewRequest("GET", "/admin/state", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("got content-type %q, want application/json", w.Header().Get("Content-Type"))
	}

	var state map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state["named_filters"].(float64) != 2 {
		t.Errorf("expected 2 named filters, got %v", state["named_filters"])
	}
}

func TestSeed(t *testing.T) {
	s := store.NewMemoryStore()
	handler := newHandler(s)

	body := `[
		{"name":"High","type":"result","term":"severity>7  sort-reverse=severity"},
		{"name":"","type":"task","term":"rows=5"},
		{"name":"Broken","type":"task","term":"\"loose\""}
	]`
	req := httptest.NewRequest("POST", "/admin/seed", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", w.Code, w.Body)
	}
	var res seedResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 1 || len(res.Errors) != 2 {
		t.Fatalf("got %d created, %d errors: %v", len(res.Created), len(res.Errors), res.Errors)
	}
	if res.Created[0].Term != "severity>7 sort-reverse=severity" {
		t.Errorf("term = %q", res.Created[0].Term)
	}
	if s.State()["named_filters"].(int) != 1 {
		t.Error("expected 1 stored filter")
	}

	req = httptest.NewRequest("POST", "/admin/seed", strings.NewReader("{"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", w.Code)
	}
}
