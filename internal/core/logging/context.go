package logging

import (
	"context"

	"github.com/colonyops/grader/internal/core/snapshot"
)

type contextKey string

const (
	selectionKey contextKey = "selection"
	requestIDKey contextKey = "request_id"
)

// WithSelection adds the submission key under review to the context.
func WithSelection(ctx context.Context, key snapshot.Key) context.Context {
	return context.WithValue(ctx, selectionKey, key)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetSelection retrieves the submission key from the context.
// The boolean is false if no key was set.
func GetSelection(ctx context.Context) (snapshot.Key, bool) {
	key, ok := ctx.Value(selectionKey).(snapshot.Key)
	return key, ok
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
