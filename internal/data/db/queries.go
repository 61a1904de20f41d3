package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// SubmissionKey addresses one submission.
type SubmissionKey struct {
	ClassroomID  int64
	AssignmentID int64
	SubmissionID int64
}

const upsertAssignment = `-- name: UpsertAssignment :exec
INSERT INTO assignments (classroom_id, id, name)
VALUES (?, ?, ?)
ON CONFLICT (classroom_id, id) DO UPDATE SET name = excluded.name
`

func (q *Queries) UpsertAssignment(ctx context.Context, arg Assignment) error {
	_, err := q.db.ExecContext(ctx, upsertAssignment, arg.ClassroomID, arg.ID, arg.Name)
	return err
}

const getAssignment = `-- name: GetAssignment :one
SELECT classroom_id, id, name FROM assignments
WHERE classroom_id = ? AND id = ?
`

func (q *Queries) GetAssignment(ctx context.Context, classroomID, id int64) (Assignment, error) {
	row := q.db.QueryRowContext(ctx, getAssignment, classroomID, id)
	var i Assignment
	err := row.Scan(&i.ClassroomID, &i.ID, &i.Name)
	return i, err
}

const listAssignments = `-- name: ListAssignments :many
SELECT classroom_id, id, name FROM assignments
WHERE classroom_id = ?
ORDER BY id
`

func (q *Queries) ListAssignments(ctx context.Context, classroomID int64) ([]Assignment, error) {
	rows, err := q.db.QueryContext(ctx, listAssignments, classroomID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Assignment
	for rows.Next() {
		var i Assignment
		if err := rows.Scan(&i.ClassroomID, &i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteAssignment = `-- name: DeleteAssignment :exec
DELETE FROM assignments WHERE classroom_id = ? AND id = ?
`

func (q *Queries) DeleteAssignment(ctx context.Context, classroomID, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteAssignment, classroomID, id)
	return err
}

const insertSubmission = `-- name: InsertSubmission :exec
INSERT INTO submissions (classroom_id, assignment_id, id, position, contributors, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertSubmission(ctx context.Context, arg Submission) error {
	_, err := q.db.ExecContext(ctx, insertSubmission,
		arg.ClassroomID, arg.AssignmentID, arg.ID, arg.Position, arg.Contributors, arg.CreatedAt,
	)
	return err
}

const getSubmission = `-- name: GetSubmission :one
SELECT classroom_id, assignment_id, id, position, contributors, created_at FROM submissions
WHERE classroom_id = ? AND assignment_id = ? AND id = ?
`

func (q *Queries) GetSubmission(ctx context.Context, arg SubmissionKey) (Submission, error) {
	row := q.db.QueryRowContext(ctx, getSubmission, arg.ClassroomID, arg.AssignmentID, arg.SubmissionID)
	var i Submission
	err := row.Scan(&i.ClassroomID, &i.AssignmentID, &i.ID, &i.Position, &i.Contributors, &i.CreatedAt)
	return i, err
}

const listSubmissions = `-- name: ListSubmissions :many
SELECT classroom_id, assignment_id, id, position, contributors, created_at FROM submissions
WHERE classroom_id = ? AND assignment_id = ?
ORDER BY position, id
`

func (q *Queries) ListSubmissions(ctx context.Context, classroomID, assignmentID int64) ([]Submission, error) {
	rows, err := q.db.QueryContext(ctx, listSubmissions, classroomID, assignmentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Submission
	for rows.Next() {
		var i Submission
		if err := rows.Scan(&i.ClassroomID, &i.AssignmentID, &i.ID, &i.Position, &i.Contributors, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertEntry = `-- name: InsertEntry :exec
INSERT INTO entries (classroom_id, assignment_id, submission_id, path, kind, content_id, status, ranges, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertEntry(ctx context.Context, arg Entry) error {
	_, err := q.db.ExecContext(ctx, insertEntry,
		arg.ClassroomID, arg.AssignmentID, arg.SubmissionID,
		arg.Path, arg.Kind, arg.ContentID, arg.Status, arg.Ranges, arg.Position,
	)
	return err
}

const listEntries = `-- name: ListEntries :many
SELECT classroom_id, assignment_id, submission_id, path, kind, content_id, status, ranges, position FROM entries
WHERE classroom_id = ? AND assignment_id = ? AND submission_id = ?
ORDER BY position
`

func (q *Queries) ListEntries(ctx context.Context, arg SubmissionKey) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, listEntries, arg.ClassroomID, arg.AssignmentID, arg.SubmissionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Entry
	for rows.Next() {
		var i Entry
		if err := scanEntry(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getEntry = `-- name: GetEntry :one
SELECT classroom_id, assignment_id, submission_id, path, kind, content_id, status, ranges, position FROM entries
WHERE classroom_id = ? AND assignment_id = ? AND submission_id = ? AND path = ?
`

func (q *Queries) GetEntry(ctx context.Context, key SubmissionKey, path string) (Entry, error) {
	row := q.db.QueryRowContext(ctx, getEntry, key.ClassroomID, key.AssignmentID, key.SubmissionID, path)
	var i Entry
	err := scanEntry(row, &i)
	return i, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner, i *Entry) error {
	return s.Scan(
		&i.ClassroomID, &i.AssignmentID, &i.SubmissionID,
		&i.Path, &i.Kind, &i.ContentID, &i.Status, &i.Ranges, &i.Position,
	)
}

const insertFile = `-- name: InsertFile :exec
INSERT INTO files (classroom_id, assignment_id, submission_id, path, language, content)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertFile(ctx context.Context, arg File) error {
	_, err := q.db.ExecContext(ctx, insertFile,
		arg.ClassroomID, arg.AssignmentID, arg.SubmissionID, arg.Path, arg.Language, arg.Content,
	)
	return err
}

const getFile = `-- name: GetFile :one
SELECT classroom_id, assignment_id, submission_id, path, language, content FROM files
WHERE classroom_id = ? AND assignment_id = ? AND submission_id = ? AND path = ?
`

func (q *Queries) GetFile(ctx context.Context, key SubmissionKey, path string) (File, error) {
	row := q.db.QueryRowContext(ctx, getFile, key.ClassroomID, key.AssignmentID, key.SubmissionID, path)
	var i File
	err := row.Scan(&i.ClassroomID, &i.AssignmentID, &i.SubmissionID, &i.Path, &i.Language, &i.Content)
	return i, err
}

const feedbackColumns = `id, comment_id, classroom_id, assignment_id, submission_id, rubric_item_id,
	path, line, body, points, ta_username, created_at, updated_at, deleted, superseded_by`

func scanFeedbackComment(s scanner, i *FeedbackComment) error {
	return s.Scan(
		&i.ID, &i.CommentID, &i.ClassroomID, &i.AssignmentID, &i.SubmissionID, &i.RubricItemID,
		&i.Path, &i.Line, &i.Body, &i.Points, &i.TaUsername, &i.CreatedAt, &i.UpdatedAt,
		&i.Deleted, &i.SupersededBy,
	)
}

const insertFeedbackComment = `-- name: InsertFeedbackComment :one
INSERT INTO feedback_comments (
	comment_id, classroom_id, assignment_id, submission_id, rubric_item_id,
	path, line, body, points, ta_username, created_at, updated_at, deleted
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

// InsertFeedbackComment inserts a version row and returns its id. ID and
// SupersededBy on arg are ignored.
func (q *Queries) InsertFeedbackComment(ctx context.Context, arg FeedbackComment) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertFeedbackComment,
		arg.CommentID, arg.ClassroomID, arg.AssignmentID, arg.SubmissionID, arg.RubricItemID,
		arg.Path, arg.Line, arg.Body, arg.Points, arg.TaUsername, arg.CreatedAt, arg.UpdatedAt, arg.Deleted,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const setFeedbackCommentID = `-- name: SetFeedbackCommentID :exec
UPDATE feedback_comments SET comment_id = id WHERE id = ?
`

func (q *Queries) SetFeedbackCommentID(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, setFeedbackCommentID, id)
	return err
}

const getLiveFeedbackComment = `-- name: GetLiveFeedbackComment :one
SELECT ` + feedbackColumns + ` FROM feedback_comments
WHERE classroom_id = ? AND assignment_id = ? AND submission_id = ? AND comment_id = ?
  AND superseded_by IS NULL
`

func (q *Queries) GetLiveFeedbackComment(ctx context.Context, key SubmissionKey, commentID int64) (FeedbackComment, error) {
	row := q.db.QueryRowContext(ctx, getLiveFeedbackComment,
		key.ClassroomID, key.AssignmentID, key.SubmissionID, commentID,
	)
	var i FeedbackComment
	err := scanFeedbackComment(row, &i)
	return i, err
}

const supersedeFeedbackComment = `-- name: SupersedeFeedbackComment :exec
UPDATE feedback_comments SET superseded_by = ? WHERE id = ? AND superseded_by IS NULL
`

func (q *Queries) SupersedeFeedbackComment(ctx context.Context, id, supersededBy int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, supersedeFeedbackComment, supersededBy, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listFeedbackComments = `-- name: ListFeedbackComments :many
SELECT ` + feedbackColumns + ` FROM feedback_comments
WHERE classroom_id = ? AND assignment_id = ? AND submission_id = ?
ORDER BY comment_id, id DESC
`

// ListFeedbackComments returns every version row of a submission's comments,
// grouped by comment and newest version first.
func (q *Queries) ListFeedbackComments(ctx context.Context, key SubmissionKey) ([]FeedbackComment, error) {
	rows, err := q.db.QueryContext(ctx, listFeedbackComments, key.ClassroomID, key.AssignmentID, key.SubmissionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []FeedbackComment
	for rows.Next() {
		var i FeedbackComment
		if err := scanFeedbackComment(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
