package db

import "database/sql"

type Assignment struct {
	ClassroomID int64
	ID          int64
	Name        string
}

type Submission struct {
	ClassroomID  int64
	AssignmentID int64
	ID           int64
	Position     int64
	Contributors string
	CreatedAt    int64
}

type Entry struct {
	ClassroomID  int64
	AssignmentID int64
	SubmissionID int64
	Path         string
	Kind         string
	ContentID    string
	Status       string
	Ranges       string
	Position     int64
}

type File struct {
	ClassroomID  int64
	AssignmentID int64
	SubmissionID int64
	Path         string
	Language     string
	Content      []byte
}

type FeedbackComment struct {
	ID           int64
	CommentID    int64
	ClassroomID  int64
	AssignmentID int64
	SubmissionID int64
	RubricItemID sql.NullInt64
	Path         string
	Line         int64
	Body         string
	Points       int64
	TaUsername   string
	CreatedAt    int64
	UpdatedAt    int64
	Deleted      bool
	SupersededBy sql.NullInt64
}
