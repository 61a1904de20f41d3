package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/grader/internal/core/diffindex"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/data/db"
	"github.com/colonyops/grader/pkg/compress"
)

// Assignment is the write shape of one assignment and its ordered submissions.
type Assignment struct {
	ClassroomID int64
	ID          int64
	Name        string
	Submissions []Submission
}

// Submission is one student work with its listing and file contents.
type Submission struct {
	ID           int64
	Contributors []string
	CreatedAt    time.Time
	Entries      []snapshot.Entry
	Files        []File
}

// File is the text of one file in a submission.
type File struct {
	Path     string
	Language string
	Content  string
}

// SubmissionStore serves submissions, trees and file contents from SQLite.
type SubmissionStore struct {
	db *db.DB
}

// NewSubmissionStore creates a new SQLite-backed submission store.
func NewSubmissionStore(db *db.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

// PutAssignment replaces an assignment and everything under it, feedback
// included. Submission order follows a.Submissions.
func (s *SubmissionStore) PutAssignment(ctx context.Context, a Assignment) error {
	err := s.db.WithTx(ctx, func(q *db.Queries) error {
		if err := q.DeleteAssignment(ctx, a.ClassroomID, a.ID); err != nil {
			return fmt.Errorf("delete assignment: %w", err)
		}
		if err := q.UpsertAssignment(ctx, db.Assignment{ClassroomID: a.ClassroomID, ID: a.ID, Name: a.Name}); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		for pos, sub := range a.Submissions {
			if err := putSubmission(ctx, q, a, pos, sub); err != nil {
				return fmt.Errorf("submission %d: %w", sub.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put assignment %d: %w", a.ID, err)
	}
	return nil
}

func putSubmission(ctx context.Context, q *db.Queries, a Assignment, pos int, sub Submission) error {
	contributors, err := json.Marshal(nonNil(sub.Contributors))
	if err != nil {
		return err
	}
	created := sub.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	err = q.InsertSubmission(ctx, db.Submission{
		ClassroomID:  a.ClassroomID,
		AssignmentID: a.ID,
		ID:           sub.ID,
		Position:     int64(pos),
		Contributors: string(contributors),
		CreatedAt:    created.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	for i, e := range sub.Entries {
		ranges, err := json.Marshal(nonNil(e.ChangeRanges))
		if err != nil {
			return err
		}
		err = q.InsertEntry(ctx, db.Entry{
			ClassroomID:  a.ClassroomID,
			AssignmentID: a.ID,
			SubmissionID: sub.ID,
			Path:         e.Path,
			Kind:         e.Kind.String(),
			ContentID:    e.ContentID,
			Status:       string(e.Status),
			Ranges:       string(ranges),
			Position:     int64(i),
		})
		if err != nil {
			return fmt.Errorf("insert entry %q: %w", e.Path, err)
		}
	}

	for _, f := range sub.Files {
		content, err := compress.Encode([]byte(f.Content))
		if err != nil {
			return fmt.Errorf("compress %q: %w", f.Path, err)
		}
		err = q.InsertFile(ctx, db.File{
			ClassroomID:  a.ClassroomID,
			AssignmentID: a.ID,
			SubmissionID: sub.ID,
			Path:         f.Path,
			Language:     f.Language,
			Content:      content,
		})
		if err != nil {
			return fmt.Errorf("insert file %q: %w", f.Path, err)
		}
	}
	return nil
}

// Assignments lists the assignments of a classroom.
func (s *SubmissionStore) Assignments(ctx context.Context, classroomID int64) ([]db.Assignment, error) {
	rows, err := s.db.Queries().ListAssignments(ctx, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return rows, nil
}

// FirstSubmission returns the first submission of an assignment.
func (s *SubmissionStore) FirstSubmission(ctx context.Context, classroomID, assignmentID int64) (snapshot.SubmissionRef, error) {
	return s.ref(ctx, classroomID, assignmentID, func(rows []db.Submission) int {
		if len(rows) == 0 {
			return -1
		}
		return 0
	})
}

// Submission returns a submission with its neighbours in assignment order.
func (s *SubmissionStore) Submission(ctx context.Context, key snapshot.Key) (snapshot.SubmissionRef, error) {
	return s.ref(ctx, key.ClassroomID, key.AssignmentID, func(rows []db.Submission) int {
		for i, r := range rows {
			if r.ID == key.SubmissionID {
				return i
			}
		}
		return -1
	})
}

func (s *SubmissionStore) ref(ctx context.Context, classroomID, assignmentID int64, pick func([]db.Submission) int) (snapshot.SubmissionRef, error) {
	q := s.db.Queries()

	a, err := q.GetAssignment(ctx, classroomID, assignmentID)
	if IsNotFoundError(err) {
		return snapshot.SubmissionRef{}, fmt.Errorf("%w: assignment %d", grading.ErrNotFound, assignmentID)
	}
	if err != nil {
		return snapshot.SubmissionRef{}, fmt.Errorf("failed to get assignment: %w", err)
	}

	rows, err := q.ListSubmissions(ctx, classroomID, assignmentID)
	if err != nil {
		return snapshot.SubmissionRef{}, fmt.Errorf("failed to list submissions: %w", err)
	}

	i := pick(rows)
	if i < 0 {
		return snapshot.SubmissionRef{}, fmt.Errorf("%w: submission in assignment %d", grading.ErrNotFound, assignmentID)
	}

	row := rows[i]
	ref := snapshot.SubmissionRef{
		ID:             row.ID,
		AssignmentID:   assignmentID,
		AssignmentName: a.Name,
		RowNumber:      i + 1,
		TotalCount:     len(rows),
	}
	if i > 0 {
		ref.PreviousID = rows[i-1].ID
	}
	if i < len(rows)-1 {
		ref.NextID = rows[i+1].ID
	}
	if err := json.Unmarshal([]byte(row.Contributors), &ref.Contributors); err != nil {
		return snapshot.SubmissionRef{}, fmt.Errorf("failed to decode contributors: %w", err)
	}
	return ref, nil
}

// Tree returns the submission's repository listing.
func (s *SubmissionStore) Tree(ctx context.Context, key snapshot.Key) ([]snapshot.Entry, error) {
	q := s.db.Queries()
	k := submissionKey(key)

	if _, err := q.GetSubmission(ctx, k); err != nil {
		if IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: submission %s", grading.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	rows, err := q.ListEntries(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	entries := make([]snapshot.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := rowToEntry(row)
		if err != nil {
			return nil, fmt.Errorf("failed to convert entry %q: %w", row.Path, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FileContent returns a file split into lines. The memo marks the lines
// covered by the entry's change ranges; it is omitted for unchanged files.
func (s *SubmissionStore) FileContent(ctx context.Context, key snapshot.Key, path string) (snapshot.FileContent, error) {
	q := s.db.Queries()
	k := submissionKey(key)

	row, err := q.GetFile(ctx, k, path)
	if IsNotFoundError(err) {
		return snapshot.FileContent{}, fmt.Errorf("%w: file %q", grading.ErrNotFound, path)
	}
	if err != nil {
		return snapshot.FileContent{}, fmt.Errorf("failed to get file: %w", err)
	}

	raw, err := compress.Decode(row.Content)
	if err != nil {
		return snapshot.FileContent{}, fmt.Errorf("failed to decompress %q: %w", path, err)
	}

	content := snapshot.FileContent{
		Path:     row.Path,
		Lines:    SplitLines(string(raw)),
		Language: row.Language,
	}

	entryRow, err := q.GetEntry(ctx, k, path)
	switch {
	case IsNotFoundError(err):
		return content, nil
	case err != nil:
		return snapshot.FileContent{}, fmt.Errorf("failed to get entry: %w", err)
	}

	entry, err := rowToEntry(entryRow)
	if err != nil {
		return snapshot.FileContent{}, fmt.Errorf("failed to convert entry %q: %w", path, err)
	}
	if len(entry.ChangeRanges) > 0 {
		content.Memo = memo(diffindex.Build(entry.ChangeRanges), len(content.Lines))
	}
	return content, nil
}

// SplitLines splits text on newlines. A trailing newline does not start an
// extra line.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func memo(idx diffindex.Index, n int) []int {
	out := make([]int, n)
	for i, changed := range idx.Sweep(n) {
		if changed {
			out[i] = 1
		}
	}
	return out
}

func rowToEntry(row db.Entry) (snapshot.Entry, error) {
	e := snapshot.Entry{
		Path:      row.Path,
		Kind:      snapshot.KindFile,
		ContentID: row.ContentID,
		Status:    snapshot.ParseChangeStatus(row.Status),
	}
	if row.Kind == snapshot.KindDirectory.String() {
		e.Kind = snapshot.KindDirectory
	}
	if err := json.Unmarshal([]byte(row.Ranges), &e.ChangeRanges); err != nil {
		return snapshot.Entry{}, err
	}
	if len(e.ChangeRanges) == 0 {
		e.ChangeRanges = nil
	}
	return e, nil
}

func submissionKey(key snapshot.Key) db.SubmissionKey {
	return db.SubmissionKey{
		ClassroomID:  key.ClassroomID,
		AssignmentID: key.AssignmentID,
		SubmissionID: key.SubmissionID,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
