package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/maneesh/chatrecords/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	// APIPrefix is the path every record route lives under
	APIPrefix = "/api/v1"

	healthTimeout   = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Error   string `json:"error,omitempty"`
}

// NewRouter builds the root handler with /health. Record routes are registered
// on the returned API subrouter. The middleware wraps the whole router so
// unmatched routes are logged too.
func NewRouter(service string, logger *logrus.Logger, db storage.Pinger) (http.Handler, *mux.Router) {
	root := mux.NewRouter()

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})

	root.HandleFunc("/health", healthHandler(service, logger, db)).Methods(http.MethodGet)

	api := root.PathPrefix(APIPrefix).Subrouter()

	var handler http.Handler = root
	handler = Recoverer(handler)
	handler = RequestLogger(logger)(handler)
	handler = middleware.RealIP(handler)
	return handler, api
}

func healthHandler(service string, logger *logrus.Logger, db storage.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.WithError(err).Warn("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Service: service, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: service})
	}
}

// NewHTTPServer applies the listener timeouts used by both services
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully within 10s
func Run(ctx context.Context, srv *http.Server, logger *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
