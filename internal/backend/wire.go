package backend

import (
	"fmt"
	"strconv"
	"time"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/snapshot"
)

// Entry types used on the wire.
const (
	EntryTypeFile = "file"
	EntryTypeDir  = "dir"
)

// TreeResponse is the body of GET .../tree.
type TreeResponse struct {
	Tree []TreeItem `json:"tree"`
}

type TreeItem struct {
	Status TreeStatus `json:"status"`
	Entry  TreeEntry  `json:"entry"`
}

type TreeStatus struct {
	Status string           `json:"status"`
	Diff   []snapshot.Range `json:"diff"`
}

type TreeEntry struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	SHA    string `json:"sha"`
	Status string `json:"status"`
}

// SubmissionResponse is the body of GET .../works/{wid} and .../works/first.
type SubmissionResponse struct {
	StudentWork *StudentWork `json:"student_work"`
}

type StudentWork struct {
	ID                    int64         `json:"id"`
	AssignmentID          int64         `json:"assignment_id"`
	AssignmentName        string        `json:"assignment_name"`
	RowNum                int           `json:"row_num"`
	TotalStudentWorks     int           `json:"total_student_works"`
	PreviousStudentWorkID *int64        `json:"previous_student_work_id"`
	NextStudentWorkID     *int64        `json:"next_student_work_id"`
	Contributors          []Contributor `json:"contributors"`
}

type Contributor struct {
	FullName       string `json:"full_name"`
	GithubUsername string `json:"github_username"`
}

// FileResponse is the body of GET .../file.
type FileResponse struct {
	Path     string   `json:"path"`
	Lines    []string `json:"lines"`
	Memo     []int    `json:"memo"`
	Language string   `json:"language"`
}

// FeedbackResponse is the body of GET .../feedback, keyed by comment id.
type FeedbackResponse struct {
	Feedback map[string]FeedbackComment `json:"feedback"`
}

type FeedbackComment struct {
	FeedbackCommentID int64             `json:"feedback_comment_id"`
	RubricItemID      *int64            `json:"rubric_item_id"`
	Path              string            `json:"path"`
	Line              int               `json:"line"`
	Body              string            `json:"body"`
	Points            int               `json:"points"`
	TAUsername        string            `json:"ta_username"`
	CreatedAt         time.Time         `json:"created_at"`
	Deleted           bool              `json:"deleted"`
	History           []FeedbackComment `json:"history,omitempty"`
}

// FeedbackAction is the body of POST .../feedback.
type FeedbackAction struct {
	Action            feedback.Action `json:"action"`
	FeedbackCommentID int64           `json:"feedback_comment_id,omitempty"`
	RubricItemID      *int64          `json:"rubric_item_id,omitempty"`
	Path              string          `json:"path,omitempty"`
	Line              int             `json:"line,omitempty"`
	Body              string          `json:"body,omitempty"`
	Points            int             `json:"points"`
	TAUsername        string          `json:"ta_username,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", grading.ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// Entries converts a tree response. A missing tree is malformed; entries of
// an unknown type are skipped with a warning.
func (r TreeResponse) Entries() ([]snapshot.Entry, error) {
	if r.Tree == nil {
		return nil, malformed("tree response has no tree")
	}

	out := make([]snapshot.Entry, 0, len(r.Tree))
	for _, item := range r.Tree {
		var kind snapshot.Kind
		switch item.Entry.Type {
		case EntryTypeFile, "blob":
			kind = snapshot.KindFile
		case EntryTypeDir, "tree":
			kind = snapshot.KindDirectory
		default:
			logger := logging.Component("backend")
			logger.Warn().
				Str("path", item.Entry.Path).
				Str("type", item.Entry.Type).
				Msg("skipping tree entry of unknown type")
			continue
		}

		status := item.Status.Status
		if status == "" {
			status = item.Entry.Status
		}
		out = append(out, snapshot.Entry{
			Path:         item.Entry.Path,
			Kind:         kind,
			ContentID:    item.Entry.SHA,
			Status:       snapshot.ParseChangeStatus(status),
			ChangeRanges: item.Status.Diff,
		})
	}
	return out, nil
}

// NewTreeResponse converts entries to their wire shape.
func NewTreeResponse(entries []snapshot.Entry) TreeResponse {
	items := make([]TreeItem, 0, len(entries))
	for _, e := range entries {
		typ := EntryTypeFile
		if e.Kind == snapshot.KindDirectory {
			typ = EntryTypeDir
		}
		items = append(items, TreeItem{
			Status: TreeStatus{Status: string(e.Status), Diff: e.ChangeRanges},
			Entry:  TreeEntry{Type: typ, Path: e.Path, SHA: e.ContentID, Status: string(e.Status)},
		})
	}
	return TreeResponse{Tree: items}
}

// Ref converts a submission response.
func (r SubmissionResponse) Ref() (snapshot.SubmissionRef, error) {
	w := r.StudentWork
	if w == nil {
		return snapshot.SubmissionRef{}, malformed("submission response has no student_work")
	}
	if w.ID == 0 {
		return snapshot.SubmissionRef{}, malformed("student_work has no id")
	}

	ref := snapshot.SubmissionRef{
		ID:             w.ID,
		AssignmentID:   w.AssignmentID,
		AssignmentName: w.AssignmentName,
		RowNumber:      w.RowNum,
		TotalCount:     w.TotalStudentWorks,
	}
	if w.PreviousStudentWorkID != nil {
		ref.PreviousID = *w.PreviousStudentWorkID
	}
	if w.NextStudentWorkID != nil {
		ref.NextID = *w.NextStudentWorkID
	}
	for _, c := range w.Contributors {
		name := c.GithubUsername
		if name == "" {
			name = c.FullName
		}
		ref.Contributors = append(ref.Contributors, name)
	}
	return ref, nil
}

// NewSubmissionResponse converts a reference to its wire shape.
func NewSubmissionResponse(ref snapshot.SubmissionRef) SubmissionResponse {
	w := &StudentWork{
		ID:                ref.ID,
		AssignmentID:      ref.AssignmentID,
		AssignmentName:    ref.AssignmentName,
		RowNum:            ref.RowNumber,
		TotalStudentWorks: ref.TotalCount,
		Contributors:      make([]Contributor, 0, len(ref.Contributors)),
	}
	if ref.HasPrevious() {
		w.PreviousStudentWorkID = &ref.PreviousID
	}
	if ref.HasNext() {
		w.NextStudentWorkID = &ref.NextID
	}
	for _, c := range ref.Contributors {
		w.Contributors = append(w.Contributors, Contributor{GithubUsername: c})
	}
	return SubmissionResponse{StudentWork: w}
}

// Content converts a file response.
func (r FileResponse) Content() (snapshot.FileContent, error) {
	if r.Lines == nil {
		return snapshot.FileContent{}, malformed("file %q has no lines", r.Path)
	}
	return snapshot.FileContent{
		Path:     r.Path,
		Lines:    r.Lines,
		Memo:     r.Memo,
		Language: r.Language,
	}, nil
}

// NewFileResponse converts content to its wire shape.
func NewFileResponse(c snapshot.FileContent) FileResponse {
	lines := c.Lines
	if lines == nil {
		lines = []string{}
	}
	return FileResponse{Path: c.Path, Lines: lines, Memo: c.Memo, Language: c.Language}
}

// Records converts a feedback response.
func (r FeedbackResponse) Records() ([]feedback.Record, error) {
	if r.Feedback == nil {
		return nil, malformed("feedback response has no feedback")
	}

	out := make([]feedback.Record, 0, len(r.Feedback))
	for id, c := range r.Feedback {
		rec, err := c.Record()
		if err != nil {
			return nil, err
		}
		if id != feedback.FormatID(rec.Current.CommentID) {
			return nil, malformed("feedback key %q does not match comment %d", id, rec.Current.CommentID)
		}
		out = append(out, rec)
	}
	return out, nil
}

// NewFeedbackResponse converts records to their wire shape.
func NewFeedbackResponse(records []feedback.Record) FeedbackResponse {
	out := FeedbackResponse{Feedback: make(map[string]FeedbackComment, len(records))}
	for _, r := range records {
		out.Feedback[strconv.FormatInt(r.Current.CommentID, 10)] = NewFeedbackComment(r)
	}
	return out
}

// Record converts a comment and its history.
func (c FeedbackComment) Record() (feedback.Record, error) {
	if c.FeedbackCommentID == 0 {
		return feedback.Record{}, malformed("feedback comment has no id")
	}

	rec := feedback.Record{Current: c.snapshot()}
	for _, h := range c.History {
		prev := h.snapshot()
		prev.CommentID = c.FeedbackCommentID
		prev.ID = rec.Current.ID
		rec.History = append(rec.History, prev)
	}
	return rec, nil
}

func (c FeedbackComment) snapshot() feedback.Snapshot {
	s := feedback.Snapshot{
		ID:        feedback.FormatID(c.FeedbackCommentID),
		CommentID: c.FeedbackCommentID,
		Path:      c.Path,
		Line:      c.Line,
		Body:      c.Body,
		Points:    c.Points,
		Author:    c.TAUsername,
		CreatedAt: c.CreatedAt,
		Deleted:   c.Deleted,
	}
	if c.RubricItemID != nil {
		s.RubricItemID = *c.RubricItemID
	}
	return s
}

// NewFeedbackComment converts a record to its wire shape.
func NewFeedbackComment(r feedback.Record) FeedbackComment {
	c := newFeedbackComment(r.Current)
	for _, h := range r.History {
		c.History = append(c.History, newFeedbackComment(h))
	}
	return c
}

func newFeedbackComment(s feedback.Snapshot) FeedbackComment {
	c := FeedbackComment{
		FeedbackCommentID: s.CommentID,
		Path:              s.Path,
		Line:              s.Line,
		Body:              s.Body,
		Points:            s.Points,
		TAUsername:        s.Author,
		CreatedAt:         s.CreatedAt,
		Deleted:           s.Deleted,
	}
	if s.RubricItemID != 0 {
		id := s.RubricItemID
		c.RubricItemID = &id
	}
	return c
}

// NewFeedbackAction builds the request body for an action.
func NewFeedbackAction(action feedback.Action, s feedback.Snapshot) FeedbackAction {
	a := FeedbackAction{
		Action:            action,
		FeedbackCommentID: s.CommentID,
		Path:              s.Path,
		Line:              s.Line,
		Body:              s.Body,
		Points:            s.Points,
		TAUsername:        s.Author,
	}
	if s.RubricItemID != 0 {
		id := s.RubricItemID
		a.RubricItemID = &id
	}
	return a
}

// Snapshot returns the comment fields carried by an action.
func (a FeedbackAction) Snapshot() feedback.Snapshot {
	s := feedback.Snapshot{
		CommentID: a.FeedbackCommentID,
		Path:      a.Path,
		Line:      a.Line,
		Body:      a.Body,
		Points:    a.Points,
		Author:    a.TAUsername,
	}
	if a.RubricItemID != nil {
		s.RubricItemID = *a.RubricItemID
	}
	return s
}
