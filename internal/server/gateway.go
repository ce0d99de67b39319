package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/ata-marzban/scanfilter/internal/store"
)

const maxBodyBytes = 1 << 20

// RegisterFilterHandlers binds the REST routes of svc on mux.
//
// Routes:
//
//	POST   /v1/filters:parse
//	POST   /v1/filters:and
//	POST   /v1/filters:params
//	POST   /v1/filters
//	GET    /v1/filters
//	GET    /v1/filters/{id}
//	PATCH  /v1/filters/{id}
//	DELETE /v1/filters/{id}
//	GET    /v1/keywords
//	GET    /v1/keywords/{type}
func RegisterFilterHandlers(mux *runtime.ServeMux, svc *FilterService) error {
	routes := []struct {
		method, pattern string
		h               runtime.HandlerFunc
	}{
		{"POST", "/v1/filters:parse", handleParse(svc)},
		{"POST", "/v1/filters:and", handleAnd(svc)},
		{"POST", "/v1/filters:params", handleParams(svc)},
		{"POST", "/v1/filters", handleCreate(svc)},
		{"GET", "/v1/filters", handleList(svc)},
		{"GET", "/v1/filters/{id}", handleGet(svc)},
		{"PATCH", "/v1/filters/{id}", handleUpdate(svc)},
		{"DELETE", "/v1/filters/{id}", handleDelete(svc)},
		{"GET", "/v1/keywords", handleEntityTypes(svc)},
		{"GET", "/v1/keywords/{type}", handleKeywords(svc)},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.h); err != nil {
			return err
		}
	}
	return nil
}

func handleParse(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var req ParseFilterRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := svc.ParseFilter(r.Context(), &req)
		respond(w, http.StatusOK, resp, err)
	}
}

func handleAnd(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var req AndFiltersRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := svc.AndFilters(r.Context(), &req)
		respond(w, http.StatusOK, resp, err)
	}
}

func handleParams(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var req ParamsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, err := svc.BuildParams(r.Context(), &req)
		respond(w, http.StatusOK, resp, err)
	}
}

func handleCreate(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var nf store.NamedFilter
		if !decodeBody(w, r, &nf) {
			return
		}
		resp, err := svc.CreateNamedFilter(r.Context(), &nf)
		respond(w, http.StatusCreated, resp, err)
	}
}

func handleList(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		req := &ListNamedFiltersRequest{Filter: r.URL.Query().Get("filter")}
		resp, err := svc.ListNamedFilters(r.Context(), req)
		respond(w, http.StatusOK, resp, err)
	}
}

func handleGet(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		resp, err := svc.GetNamedFilter(r.Context(), params["id"])
		respond(w, http.StatusOK, resp, err)
	}
}

func handleUpdate(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		var nf store.NamedFilter
		if !decodeBody(w, r, &nf) {
			return
		}
		nf.ID = params["id"]

		var mask *fieldmaskpb.FieldMask
		if m := r.URL.Query().Get("update_mask"); m != "" {
			mask = &fieldmaskpb.FieldMask{Paths: strings.Split(m, ",")}
		}
		resp, err := svc.UpdateNamedFilter(r.Context(), &UpdateNamedFilterRequest{Filter: &nf, UpdateMask: mask})
		respond(w, http.StatusOK, resp, err)
	}
}

func handleDelete(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		if err := svc.DeleteNamedFilter(r.Context(), params["id"]); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleEntityTypes(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		respond(w, http.StatusOK, svc.ListEntityTypes(r.Context()), nil)
	}
}

func handleKeywords(svc *FilterService) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		resp, err := svc.ListKeywords(r.Context(), params["type"])
		respond(w, http.StatusOK, resp, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, status.Errorf(codes.InvalidArgument, "invalid request body: %v", err))
		return false
	}
	return true
}

func respond(w http.ResponseWriter, code int, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as a google.rpc.Status body with the HTTP status
// grpc-gateway uses for its code.
func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	body, merr := protojson.Marshal(st.Proto())
	if merr != nil {
		body = []byte(`{"code":13,"message":"failed to marshal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(runtime.HTTPStatusFromCode(st.Code()))
	w.Write(body)
}
