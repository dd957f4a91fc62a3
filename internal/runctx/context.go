package runctx

import (
	"context"
	"errors"
)

// Key for run-scoped values in context
type contextKey string

const (
	runIDKey     contextKey = "runID"
	batchKindKey contextKey = "batchKind"
)

// ErrRunIDNotFound is returned when no run ID is found in context
var ErrRunIDNotFound = errors.New("run ID not found in context")

// WithRunID adds a reconciliation run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// FromContext extracts the run ID from the context
func FromContext(ctx context.Context) (string, error) {
	runID, ok := ctx.Value(runIDKey).(string)
	if !ok || runID == "" {
		return "", ErrRunIDNotFound
	}
	return runID, nil
}

// MustFromContext extracts the run ID from the context or panics
func MustFromContext(ctx context.Context) string {
	runID, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return runID
}

// WithBatchKind tags the context with the batch kind being processed
// (e.g. "agent" or "campaign")
func WithBatchKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, batchKindKey, kind)
}

// BatchKindFromContext extracts the batch kind from the context, if any
func BatchKindFromContext(ctx context.Context) string {
	kind, _ := ctx.Value(batchKindKey).(string)
	return kind
}
