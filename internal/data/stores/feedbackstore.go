package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/data/db"
)

var (
	// ErrInvalidFeedback is returned for actions with missing or bad fields.
	ErrInvalidFeedback = errors.New("invalid feedback")
	// ErrConflict is returned when a comment was changed by another writer.
	ErrConflict = errors.New("feedback comment was modified concurrently")
)

// FeedbackStore implements feedback.Store using SQLite. Every version of a
// comment is kept as a row; edits never overwrite.
type FeedbackStore struct {
	db  *db.DB
	now func() time.Time
}

var _ feedback.Store = (*FeedbackStore)(nil)

// NewFeedbackStore creates a new SQLite-backed feedback store.
func NewFeedbackStore(db *db.DB) *FeedbackStore {
	return &FeedbackStore{db: db, now: time.Now}
}

// ListFeedback returns every comment on a submission, tombstones included.
func (s *FeedbackStore) ListFeedback(ctx context.Context, key snapshot.Key) ([]feedback.Record, error) {
	q := s.db.Queries()
	k := submissionKey(key)

	if _, err := q.GetSubmission(ctx, k); err != nil {
		if IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: submission %s", grading.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	rows, err := q.ListFeedbackComments(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return groupRecords(rows), nil
}

// SaveFeedback applies an action and returns the resulting comment with its
// history, most recent first.
func (s *FeedbackStore) SaveFeedback(ctx context.Context, key snapshot.Key, action feedback.Action, snap feedback.Snapshot) (feedback.Record, error) {
	var rec feedback.Record
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		var (
			commentID int64
			err       error
		)
		switch action {
		case feedback.ActionCreate:
			commentID, err = s.create(ctx, q, key, snap)
		case feedback.ActionEdit, feedback.ActionDelete:
			commentID, err = s.amend(ctx, q, key, action, snap)
		default:
			err = fmt.Errorf("%w: unknown action %q", ErrInvalidFeedback, action)
		}
		if err != nil {
			return err
		}

		rows, err := q.ListFeedbackComments(ctx, submissionKey(key))
		if err != nil {
			return fmt.Errorf("reload feedback: %w", err)
		}
		for _, r := range groupRecords(rows) {
			if r.Current.CommentID == commentID {
				rec = r
				return nil
			}
		}
		return fmt.Errorf("comment %d missing after save", commentID)
	})
	if err != nil {
		return feedback.Record{}, fmt.Errorf("failed to save feedback: %w", err)
	}
	return rec, nil
}

func (s *FeedbackStore) create(ctx context.Context, q *db.Queries, key snapshot.Key, snap feedback.Snapshot) (int64, error) {
	k := submissionKey(key)

	if strings.TrimSpace(snap.Body) == "" {
		return 0, fmt.Errorf("%w: body is required", ErrInvalidFeedback)
	}
	if snap.Line < 1 {
		return 0, fmt.Errorf("%w: line must be positive", ErrInvalidFeedback)
	}

	if _, err := q.GetSubmission(ctx, k); err != nil {
		if IsNotFoundError(err) {
			return 0, fmt.Errorf("%w: submission %s", grading.ErrNotFound, key)
		}
		return 0, err
	}
	entry, err := q.GetEntry(ctx, k, snap.Path)
	if IsNotFoundError(err) || (err == nil && entry.Kind != snapshot.KindFile.String()) {
		return 0, fmt.Errorf("%w: %q is not a file in the submission", ErrInvalidFeedback, snap.Path)
	}
	if err != nil {
		return 0, err
	}

	now := s.now().UnixNano()
	row := snapshotToRow(key, snap)
	row.CommentID = 0
	row.CreatedAt = now
	row.UpdatedAt = now
	row.Deleted = false

	id, err := q.InsertFeedbackComment(ctx, row)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	if err := q.SetFeedbackCommentID(ctx, id); err != nil {
		return 0, fmt.Errorf("set comment id: %w", err)
	}
	return id, nil
}

func (s *FeedbackStore) amend(ctx context.Context, q *db.Queries, key snapshot.Key, action feedback.Action, snap feedback.Snapshot) (int64, error) {
	if snap.CommentID == 0 {
		return 0, fmt.Errorf("%w: feedback_comment_id is required", ErrInvalidFeedback)
	}

	live, err := q.GetLiveFeedbackComment(ctx, submissionKey(key), snap.CommentID)
	if IsNotFoundError(err) {
		return 0, fmt.Errorf("%w: %w: %d", grading.ErrNotFound, feedback.ErrCommentNotFound, snap.CommentID)
	}
	if err != nil {
		return 0, fmt.Errorf("get comment: %w", err)
	}
	if live.Deleted {
		return 0, fmt.Errorf("%w: %d", feedback.ErrCommentDeleted, snap.CommentID)
	}

	next := live
	next.UpdatedAt = s.now().UnixNano()
	switch action {
	case feedback.ActionEdit:
		if strings.TrimSpace(snap.Body) == "" {
			return 0, fmt.Errorf("%w: body is required", ErrInvalidFeedback)
		}
		next.Body = snap.Body
		next.Points = int64(snap.Points)
	case feedback.ActionDelete:
		next.Deleted = true
	}

	id, err := q.InsertFeedbackComment(ctx, next)
	if err != nil {
		return 0, fmt.Errorf("insert version: %w", err)
	}
	n, err := q.SupersedeFeedbackComment(ctx, live.ID, id)
	if err != nil {
		return 0, fmt.Errorf("supersede version: %w", err)
	}
	if n != 1 {
		return 0, fmt.Errorf("%w: %d", ErrConflict, snap.CommentID)
	}
	return live.CommentID, nil
}

// groupRecords folds version rows, ordered by comment and newest first, into
// records. The newest row of each comment is its current state.
func groupRecords(rows []db.FeedbackComment) []feedback.Record {
	var out []feedback.Record
	for _, row := range rows {
		snap := rowToSnapshot(row)
		if n := len(out); n > 0 && out[n-1].Current.CommentID == row.CommentID {
			out[n-1].History = append(out[n-1].History, snap)
			continue
		}
		out = append(out, feedback.Record{Current: snap})
	}
	return out
}

func rowToSnapshot(row db.FeedbackComment) feedback.Snapshot {
	s := feedback.Snapshot{
		ID:        feedback.FormatID(row.CommentID),
		CommentID: row.CommentID,
		Path:      row.Path,
		Line:      int(row.Line),
		Body:      row.Body,
		Points:    int(row.Points),
		Author:    row.TaUsername,
		CreatedAt: time.Unix(0, row.CreatedAt),
		Deleted:   row.Deleted,
	}
	if row.RubricItemID.Valid {
		s.RubricItemID = row.RubricItemID.Int64
	}
	return s
}

func snapshotToRow(key snapshot.Key, s feedback.Snapshot) db.FeedbackComment {
	row := db.FeedbackComment{
		CommentID:    s.CommentID,
		ClassroomID:  key.ClassroomID,
		AssignmentID: key.AssignmentID,
		SubmissionID: key.SubmissionID,
		Path:         s.Path,
		Line:         int64(s.Line),
		Body:         s.Body,
		Points:       int64(s.Points),
		TaUsername:   s.Author,
		Deleted:      s.Deleted,
	}
	if s.RubricItemID != 0 {
		row.RubricItemID = sql.NullInt64{Int64: s.RubricItemID, Valid: true}
	}
	return row
}
