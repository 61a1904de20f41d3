// Package grading implements the review session: the state machine that
// tracks which submission and file are under review and keeps cached file
// content consistent with that selection.
package grading

import (
	"context"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/snapshot"
)

// Backend is the grading backend the session reads from. Implementations
// wrap errors with ErrNetworkFailure, ErrNotFound or ErrMalformedResponse.
type Backend interface {
	feedback.Store

	// FirstSubmission returns the first submission in the assignment's order.
	FirstSubmission(ctx context.Context, classroomID, assignmentID int64) (snapshot.SubmissionRef, error)

	// Submission returns the reference for one submission, including its neighbours.
	Submission(ctx context.Context, key snapshot.Key) (snapshot.SubmissionRef, error)

	// Tree returns the flat repository listing of a submission.
	Tree(ctx context.Context, key snapshot.Key) ([]snapshot.Entry, error)

	// FileContent returns the text of one file in a submission.
	FileContent(ctx context.Context, key snapshot.Key, path string) (snapshot.FileContent, error)
}

// ContentCache holds file content per submission key. Invalidate drops every
// file of a key at once.
type ContentCache interface {
	Get(key snapshot.Key, path string) (snapshot.FileContent, bool)
	Put(key snapshot.Key, path string, content snapshot.FileContent)
	Invalidate(key snapshot.Key)
}
