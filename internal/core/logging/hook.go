package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts the selection and request ID from the event context
// and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if key, ok := GetSelection(ctx); ok {
		e.Int64("classroom_id", key.ClassroomID).
			Int64("assignment_id", key.AssignmentID).
			Int64("submission_id", key.SubmissionID)
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		e.Str("request_id", requestID)
	}
}
