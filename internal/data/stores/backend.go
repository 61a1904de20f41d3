package stores

import (
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/data/db"
)

// Backend serves the full grading backend from one database.
type Backend struct {
	*SubmissionStore
	*FeedbackStore
}

var _ grading.Backend = Backend{}

// NewBackend creates the SQLite-backed grading backend.
func NewBackend(database *db.DB) Backend {
	return Backend{
		SubmissionStore: NewSubmissionStore(database),
		FeedbackStore:   NewFeedbackStore(database),
	}
}
