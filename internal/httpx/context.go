package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	emailKey     contextKey = "email"
	requestIDKey contextKey = "requestID"
)

// EmailFrom retrieves the verified caller email from the request context.
// Empty when the request did not pass the token gate.
func EmailFrom(r *http.Request) string {
	if v, ok := r.Context().Value(emailKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithEmail returns a new context carrying the verified caller email.
func ContextWithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// RequestIDFrom retrieves the request ID from the request context.
func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithRequestID returns a new context carrying the request ID.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}
