package logger

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/term"
)

func NewLogger(service string) *slog.Logger {

	// Create handler based on TTY environment.
	var h slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		h = slog.NewTextHandler(os.Stderr, nil)
	} else {
		h = slog.NewJSONHandler(os.Stderr, nil)
	}
	l := slog.New(h.WithAttrs([]slog.Attr{{Key: "service", Value: slog.StringValue(service)}}))
	return l
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attributes := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("user-agent", r.UserAgent()),
				slog.String("path", r.URL.Path),
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(sw, r)

			attributes = append(attributes,
				slog.Int("status", sw.status),
				slog.String("latency", time.Since(start).String()),
			)

			logger.WithGroup("http").LogAttrs(r.Context(), slog.LevelInfo, "Handled request", attributes...)
		})
	}
}
