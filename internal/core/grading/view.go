package grading

import (
	"github.com/colonyops/grader/internal/core/diffindex"
	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/repotree"
	"github.com/colonyops/grader/internal/core/snapshot"
)

// Status is the composite state shown to the reviewer.
type Status int

const (
	StatusNoSelection Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusNoSelection:
		return "no selection"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// View is a read-only snapshot of the session for rendering.
type View struct {
	Status     Status
	Err        error
	Selection  Selection
	Submission *snapshot.SubmissionRef
	Tree       *repotree.Directory
	File       *FileView
	// FeedbackLoaded is false until the submission's comments have arrived.
	FeedbackLoaded bool
}

// FileView is the selected file. Content and Diff are only set once Phase
// is PhaseReady.
type FileView struct {
	Path     string
	Phase    Phase
	Err      error
	Content  snapshot.FileContent
	Diff     diffindex.Index
	Comments []feedback.Comment
}

// IsChanged reports whether a 1-based line of the file is diff-relevant.
func (f *FileView) IsChanged(line int) bool {
	return f.Diff.IsChanged(line)
}

// View returns the current state. Errors take precedence over loading, so a
// failed tree is reported even while feedback is still in flight.
func (s *Session) View() View {
	v := View{
		Selection:      s.sel,
		Tree:           s.Tree(),
		FeedbackLoaded: s.feedback.is(PhaseReady),
	}
	if s.submission.is(PhaseReady) {
		ref := s.ref
		v.Submission = &ref
	}
	if s.sel.FilePath != "" {
		v.File = &FileView{
			Path:    s.sel.FilePath,
			Phase:   s.file.phase,
			Err:     s.file.err,
			Content: s.file.content,
			Diff:    s.file.diff,
		}
		if s.feedback.is(PhaseReady) {
			v.File.Comments = s.ledger.CurrentFor(s.sel.FilePath)
		}
	}

	v.Status, v.Err = s.status()
	return v
}

func (s *Session) status() (Status, error) {
	if s.sel.AssignmentID == 0 {
		return StatusNoSelection, nil
	}
	for _, p := range []part{s.first, s.submission, s.tree, s.feedback, s.file.part} {
		if p.is(PhaseError) {
			return StatusError, p.err
		}
	}
	if s.first.is(PhaseLoading) {
		return StatusLoading, nil
	}
	if s.sel.SubmissionID == 0 {
		return StatusNoSelection, nil
	}
	if s.submission.is(PhaseLoading) || s.tree.is(PhaseLoading) || s.file.is(PhaseLoading) {
		return StatusLoading, nil
	}
	return StatusReady, nil
}
