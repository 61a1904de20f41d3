package grading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/colonyops/grader/internal/core/feedback"
)

var (
	// ErrNoFileSelected is returned when feedback is added without a file.
	ErrNoFileSelected = errors.New("no file selected")
	// ErrCommentPending is returned when a draft is changed before its first save completes.
	ErrCommentPending = errors.New("feedback comment is still being saved")
	// ErrInvalidComment is returned for empty bodies or out-of-range lines.
	ErrInvalidComment = errors.New("invalid feedback comment")
	// ErrFeedbackLoading is returned when feedback is changed before the
	// submission's existing comments have loaded.
	ErrFeedbackLoading = errors.New("feedback is still loading")
)

// Comments returns the live comments on path.
func (s *Session) Comments(path string) []feedback.Comment {
	return s.ledger.CurrentFor(path)
}

// AllComments returns every comment on the submission, tombstones included.
func (s *Session) AllComments() []feedback.Comment {
	return s.ledger.All()
}

// Comment returns one comment by ledger ID.
func (s *Session) Comment(id string) (feedback.Comment, bool) {
	return s.ledger.Get(id)
}

// AddFeedback records a comment on a line of the selected file and returns
// the fetch that persists it.
func (s *Session) AddFeedback(line int, body string, points int, rubricItemID int64) (feedback.Comment, []Fetch, error) {
	if s.sel.FilePath == "" {
		return feedback.Comment{}, nil, ErrNoFileSelected
	}
	if err := s.checkComment(line, body); err != nil {
		return feedback.Comment{}, nil, err
	}
	if s.feedback.is(PhaseLoading) {
		return feedback.Comment{}, nil, ErrFeedbackLoading
	}

	c := s.ledger.Upsert(feedback.Snapshot{
		Path:         s.sel.FilePath,
		Line:         line,
		Body:         body,
		Points:       points,
		RubricItemID: rubricItemID,
		Author:       s.author,
	})
	return c, s.persist(feedback.ActionCreate, c, feedback.Comment{}, false), nil
}

// EditFeedback replaces the body and points of a comment.
func (s *Session) EditFeedback(id, body string, points int) (feedback.Comment, []Fetch, error) {
	if strings.TrimSpace(body) == "" {
		return feedback.Comment{}, nil, fmt.Errorf("%w: empty body", ErrInvalidComment)
	}
	prior, err := s.checkPersisted(id)
	if err != nil {
		return feedback.Comment{}, nil, err
	}

	c, err := s.ledger.RecordEdit(id, body, points)
	if err != nil {
		return feedback.Comment{}, nil, err
	}
	return c, s.persist(feedback.ActionEdit, c, prior, true), nil
}

// DeleteFeedback tombstones a comment.
func (s *Session) DeleteFeedback(id string) (feedback.Comment, []Fetch, error) {
	prior, err := s.checkPersisted(id)
	if err != nil {
		return feedback.Comment{}, nil, err
	}

	c, err := s.ledger.RecordDeletion(id)
	if err != nil {
		return feedback.Comment{}, nil, err
	}
	return c, s.persist(feedback.ActionDelete, c, prior, true), nil
}

func (s *Session) checkComment(line int, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidComment)
	}
	if line < 1 {
		return fmt.Errorf("%w: line %d", ErrInvalidComment, line)
	}
	if s.file.is(PhaseReady) && line > len(s.file.content.Lines) {
		return fmt.Errorf("%w: line %d past end of file", ErrInvalidComment, line)
	}
	return nil
}

func (s *Session) checkPersisted(id string) (feedback.Comment, error) {
	if s.feedback.is(PhaseLoading) {
		return feedback.Comment{}, ErrFeedbackLoading
	}
	c, ok := s.ledger.Get(id)
	if !ok {
		return feedback.Comment{}, fmt.Errorf("%w: %s", feedback.ErrCommentNotFound, id)
	}
	if !c.Persisted() {
		return feedback.Comment{}, fmt.Errorf("%w: %s", ErrCommentPending, id)
	}
	return c, nil
}

// persist issues the save for a ledger change. prior is what the ledger held
// before it, restored if the backend rejects the change.
func (s *Session) persist(action feedback.Action, after, prior feedback.Comment, existed bool) []Fetch {
	t := s.ticket(FetchSaveFeedback, after.Path)
	t.CommentID = after.ID
	t.undo = &undo{after: after, prior: prior, existed: existed}
	return []Fetch{s.fetchSaveFeedback(t, action, after.Snapshot)}
}

func (s *Session) applySave(r Result) {
	if r.Err != nil {
		if u := r.undo; u != nil && !s.ledger.Rollback(u.after, u.prior, u.existed) {
			s.logger.Warn().Str("comment", r.CommentID).Msg("comment changed again before its failed save was reported")
		}
		s.feedback.fail(fmt.Errorf("saving comment %s: %w", r.CommentID, r.Err))
		return
	}

	saved := r.Saved
	if saved.Current.CommentID == 0 {
		s.feedback.fail(fmt.Errorf("%w: saved comment has no id", ErrMalformedResponse))
		return
	}
	if r.CommentID != feedback.FormatID(saved.Current.CommentID) {
		if _, err := s.ledger.MarkPersisted(r.CommentID, saved.Current.CommentID); err != nil {
			s.logger.Warn().Err(err).Str("comment", r.CommentID).Msg("saved comment missing from ledger")
		}
	}
	saved.Current.ID = ""
	s.ledger.Apply(saved)
}
