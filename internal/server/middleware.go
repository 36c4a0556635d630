package server

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// requestLogFormatter adapts chi's request logger to logrus
type requestLogFormatter struct {
	logger *logrus.Logger
}

// NewLogEntry starts the access-log entry for r
func (f *requestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{
		entry: f.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"raw_query":  r.URL.RawQuery,
			"client_ip":  clientIP(r),
			"user_agent": r.UserAgent(),
		}),
	}
}

type requestLogEntry struct {
	entry    *logrus.Entry
	panicked bool
}

// Write runs once the request finishes, including after a recovered panic
func (e *requestLogEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	entry := e.entry.WithFields(logrus.Fields{
		"status":  status,
		"latency": elapsed.String(),
		"bytes":   bytes,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("HTTP Request")
		return
	}
	entry.Info("HTTP Request")
}

// Panic is called by chi's recoverer before it answers 500
func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.panicked = true
	e.entry.WithFields(logrus.Fields{
		"panic": v,
		"stack": string(stack),
	}).Error("Recovered from handler panic")
}

// RequestLogger logs one entry per request, matched or not
func RequestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&requestLogFormatter{logger: logger})
}

// Recoverer is chi's recoverer with the 500 reshaped into the JSON error body.
// It must run inside RequestLogger so the panic is reported on the request's log entry.
func Recoverer(next http.Handler) http.Handler {
	recoverer := middleware.Recoverer(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry, _ := middleware.GetLogEntry(r).(*requestLogEntry)
		recoverer.ServeHTTP(&panicBodyWriter{ResponseWriter: w, entry: entry}, r)
	})
}

// panicBodyWriter adds the error body to the bare 500 chi writes after a panic
type panicBodyWriter struct {
	http.ResponseWriter
	entry       *requestLogEntry
	wroteHeader bool
}

func (w *panicBodyWriter) WriteHeader(code int) {
	if !w.wroteHeader && w.entry != nil && w.entry.panicked && code == http.StatusInternalServerError {
		w.wroteHeader = true
		writeJSON(w.ResponseWriter, code, map[string]string{"error": "internal server error"})
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *panicBodyWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// clientIP strips the port; middleware.RealIP has already applied proxy headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
