// Package ctxutil carries batch-run identity through a context so that log
// records of one run can be correlated.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	runIDKey ctxKey = "run_id"
	jobKey   ctxKey = "job"
)

// WithRun stores the run ID and job name ("push", "pull") in the context.
func WithRun(ctx context.Context, job string, id uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, jobKey, job)
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromCtx extracts the run ID from the context.
// Returns uuid.Nil and false if the value is missing, nil UUID, or wrong type.
func RunIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// JobFromCtx extracts the job name from the context.
// Returns an empty string if absent.
func JobFromCtx(ctx context.Context) string {
	job, _ := ctx.Value(jobKey).(string)
	return job
}
