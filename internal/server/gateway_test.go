package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"github.com/ata-marzban/scanfilter/internal/metrics"
	"github.com/ata-marzban/scanfilter/internal/store"
)

func newGateway(t *testing.T) http.Handler {
	t.Helper()
	mux := runtime.NewServeMux()
	if err := RegisterFilterHandlers(mux, newFilterSvc()); err != nil {
		t.Fatal(err)
	}
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGatewayParse(t *testing.T) {
	h := newGateway(t)

	w := do(t, h, "POST", "/v1/filters:parse", `{"filter":"name=foo  sort=name rows=5"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", w.Code, w.Body)
	}
	var resp ParseFilterResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filter != "name=foo sort=name rows=5" || resp.SortBy != "name" || resp.Rows != 5 {
		t.Errorf("got %+v", resp)
	}
}

func TestGatewayAnd(t *testing.T) {
	h := newGateway(t)

	w := do(t, h, "POST", "/v1/filters:and", `{"filter":"a=1","other":"a=2 b=3"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", w.Code, w.Body)
	}
	var resp FilterResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Filter != "a=1 b=3" {
		t.Errorf("got %q", resp.Filter)
	}
}

func TestGatewayBadBody(t *testing.T) {
	h := newGateway(t)

	w := do(t, h, "POST", "/v1/filters:parse", `{"filter": 12}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d", w.Code)
	}
	w = do(t, h, "POST", "/v1/filters:parse", `{"unknown":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d", w.Code)
	}
}

func TestGatewayNamedFilterCRUD(t *testing.T) {
	h := newGateway(t)

	// Create
	w := do(t, h, "POST", "/v1/filters", `{"name":"High","type":"result","term":"severity>7   rows=10"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got status %d: %s", w.Code, w.Body)
	}
	var created store.NamedFilter
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Term != "severity>7 rows=10" {
		t.Errorf("created = %+v", created)
	}

	// Get
	w = do(t, h, "GET", "/v1/filters/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: got status %d: %s", w.Code, w.Body)
	}

	// List
	w = do(t, h, "GET", "/v1/filters?filter=type%3Dresult", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: got status %d: %s", w.Code, w.Body)
	}
	var list ListNamedFiltersResponse
	json.NewDecoder(w.Body).Decode(&list)
	if list.TotalSize != 1 || len(list.Filters) != 1 || list.Filter != "type=result" {
		t.Errorf("list = %+v", list)
	}

	// Update
	w = do(t, h, "PATCH", "/v1/filters/"+created.ID+"?update_mask=name", `{"name":"Critical"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got status %d: %s", w.Code, w.Body)
	}
	var updated store.NamedFilter
	json.NewDecoder(w.Body).Decode(&updated)
	if updated.Name != "Critical" || updated.Term != "severity>7 rows=10" {
		t.Errorf("updated = %+v", updated)
	}

	// Params prefer the stored id.
	w = do(t, h, "POST", "/v1/filters:params", `{"filter":"name=x","filter_id":"`+created.ID+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("params: got status %d: %s", w.Code, w.Body)
	}
	var params ParamsResponse
	json.NewDecoder(w.Body).Decode(&params)
	if params.Params["filter_id"] != created.ID {
		t.Errorf("params = %v", params.Params)
	}

	// Delete
	w = do(t, h, "DELETE", "/v1/filters/"+created.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: got status %d: %s", w.Code, w.Body)
	}
	w = do(t, h, "GET", "/v1/filters/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: got status %d", w.Code)
	}
}

func TestGatewayErrorBody(t *testing.T) {
	h := newGateway(t)

	w := do(t, h, "POST", "/v1/filters", `{"name":"x","type":"task","term":"sort=target"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != float64(3) {
		t.Errorf("code = %v", body["code"])
	}
	details, _ := body["details"].([]any)
	if len(details) != 1 {
		t.Fatalf("details = %v", body["details"])
	}
	d := details[0].(map[string]any)
	if d["@type"] != "type.googleapis.com/google.rpc.BadRequest" {
		t.Errorf("detail type = %v", d["@type"])
	}
}

func TestGatewayKeywords(t *testing.T) {
	h := newGateway(t)

	w := do(t, h, "GET", "/v1/keywords", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	var types EntityTypesResponse
	json.NewDecoder(w.Body).Decode(&types)
	if len(types.Types) == 0 {
		t.Error("no entity types")
	}

	w = do(t, h, "GET", "/v1/keywords/task", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	var kws KeywordsResponse
	json.NewDecoder(w.Body).Decode(&kws)
	if kws.Type != "task" || len(kws.Keywords) == 0 || kws.Keywords[0].Name != "name" {
		t.Errorf("got %+v", kws)
	}

	w = do(t, h, "GET", "/v1/keywords/none", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %d", w.Code)
	}
}

func TestInstrument(t *testing.T) {
	m := metrics.New()
	h := Instrument("/v1/", newGateway(t), slog.New(slog.DiscardHandler), m)

	w := do(t, h, "GET", "/v1/keywords/none", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d", w.Code)
	}

	mw := httptest.NewRecorder()
	m.Handler().ServeHTTP(mw, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(mw.Body.String(), `scanfilter_http_requests_total{code="404",route="/v1/"} 1`) {
		t.Errorf("request not recorded:\n%s", mw.Body)
	}
}
