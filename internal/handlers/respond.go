package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/maneesh/chatrecords/internal/apperr"
	"github.com/maneesh/chatrecords/internal/server"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("chatrecords-handlers")

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// route registers fn on the API subrouter, wrapped in an otelhttp handler
// named after the method and full path template
func route(r *mux.Router, method, path string, fn http.HandlerFunc) {
	r.Handle(path, otelhttp.NewHandler(fn, method+" "+server.APIPrefix+path)).Methods(method)
}

// startWithID opens a span tagged with the {id} path variable under attr
func startWithID(r *http.Request, name, attr string) (context.Context, trace.Span) {
	return tracer.Start(r.Context(), name,
		trace.WithAttributes(attribute.String(attr, mux.Vars(r)["id"])),
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, span trace.Span, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		span.RecordError(err)
	}
	writeJSON(w, status, ErrorResponse{Error: apperr.Message(err)})
}

// queryParam returns nil when the parameter is absent or empty
func queryParam(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	return &v
}

// limitParam parses ?limit. Absent means nil; a non-integer is rejected.
func limitParam(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.InvalidArgument(fmt.Sprintf("invalid limit %q", raw))
	}
	return &n, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &apperr.Error{
			Kind:    apperr.KindInvalidArgument,
			Message: fmt.Sprintf("invalid request body: %v", err),
			Err:     err,
		}
	}
	return nil
}
