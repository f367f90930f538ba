package simulator

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	identityKey
)

// RequestID returns the request ID from the context.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Identity returns the caller's access key id from the context.
func Identity(ctx context.Context) string {
	if v, ok := ctx.Value(identityKey).(string); ok {
		return v
	}
	return "anonymous"
}

// RequestIDMiddleware generates a unique request ID, stores it in the
// context and echoes it in the x-amzn-RequestId header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := NewRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("x-amzn-RequestId", id)
		w.Header().Set("x-amz-request-id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs each request with zerolog.
func LoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			event := logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Str("request_id", RequestID(r.Context()))
			if target := r.Header.Get("X-Amz-Target"); target != "" {
				event.Str("amz_target", target)
			}
			event.Msg("request")
		})
	}
}

// AuthPassthroughMiddleware extracts the access key id from a SigV4
// Authorization header without validating the signature. Requests without
// auth headers are accepted.
func AuthPassthroughMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), identityKey, extractAccessKey(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractAccessKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "anonymous"
	}
	// "AWS4-HMAC-SHA256 Credential=AKID/date/region/service/aws4_request, ..."
	if strings.HasPrefix(auth, "AWS4-HMAC-SHA256") {
		if idx := strings.Index(auth, "Credential="); idx >= 0 {
			cred := auth[idx+len("Credential="):]
			if slash := strings.Index(cred, "/"); slash > 0 {
				return cred[:slash]
			}
		}
	}
	return "aws-user"
}

// NewRequestID returns a random UUID identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
