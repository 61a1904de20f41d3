package grading

import (
	"context"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/snapshot"
)

// FetchKind identifies what a fetch loads.
type FetchKind int

const (
	FetchFirstSubmission FetchKind = iota
	FetchSubmission
	FetchTree
	FetchFile
	FetchFeedback
	FetchSaveFeedback
)

func (k FetchKind) String() string {
	switch k {
	case FetchFirstSubmission:
		return "first-submission"
	case FetchSubmission:
		return "submission"
	case FetchTree:
		return "tree"
	case FetchFile:
		return "file"
	case FetchFeedback:
		return "feedback"
	case FetchSaveFeedback:
		return "save-feedback"
	default:
		return "unknown"
	}
}

// Ticket tags a fetch with the selection that was active when it was issued.
// The session discards results whose ticket no longer matches.
type Ticket struct {
	Kind  FetchKind
	Epoch uint64
	Key   snapshot.Key
	Path  string
	// CommentID is the ledger ID a save was issued for.
	CommentID string

	undo *undo
}

// undo is the ledger state to restore when a save fails.
type undo struct {
	after   feedback.Comment
	prior   feedback.Comment
	existed bool
}

// Result is the outcome of a fetch. Only the field matching Ticket.Kind is set.
type Result struct {
	Ticket
	Submission snapshot.SubmissionRef
	Entries    []snapshot.Entry
	Content    snapshot.FileContent
	Feedback   []feedback.Record
	Saved      feedback.Record
	Err        error
}

// Fetch is a pending backend call. Run may be called from any goroutine; the
// Result must be handed back to Session.Apply on the control thread.
type Fetch struct {
	Ticket Ticket
	run    func(ctx context.Context) Result
}

// Run performs the call. The ticket's key is attached to ctx for logging.
func (f Fetch) Run(ctx context.Context) Result {
	ctx = logging.WithSelection(ctx, f.Ticket.Key)
	r := f.run(ctx)
	r.Ticket = f.Ticket
	return r
}

func (s *Session) fetchFirstSubmission(t Ticket) Fetch {
	b := s.backend
	return Fetch{Ticket: t, run: func(ctx context.Context) Result {
		ref, err := b.FirstSubmission(ctx, t.Key.ClassroomID, t.Key.AssignmentID)
		return Result{Submission: ref, Err: err}
	}}
}

func (s *Session) fetchSubmission(t Ticket) Fetch {
	b := s.backend
	return Fetch{Ticket: t, run: func(ctx context.Context) Result {
		ref, err := b.Submission(ctx, t.Key)
		return Result{Submission: ref, Err: err}
	}}
}

func (s *Session) fetchTree(t Ticket) Fetch {
	b := s.backend
	return Fetch{Ticket: t, run: func(ctx context.Context) Result {
		entries, err := b.Tree(ctx, t.Key)
		return Result{Entries: entries, Err: err}
	}}
}

func (s *Session) fetchFile(t Ticket) Fetch {
	b := s.backend
	return Fetch{Ticket: t, run: func(ctx context.Context) Result {
		content, err := b.FileContent(ctx, t.Key, t.Path)
		return Result{Content: content, Err: err}
	}}
}

func (s *Session) fetchFeedback(t Ticket) Fetch {
	b := s.backend
	return Fetch{Ticket: t, run: func(ctx context.Context) Result {
		records, err := b.ListFeedback(ctx, t.Key)
		return Result{Feedback: records, Err: err}
	}}
}

func (s *Session) fetchSaveFeedback(t Ticket, action feedback.Action, snap feedback.Snapshot) Fetch {
	b := s.backend
	return Fetch{Ticket: t, run: func(ctx context.Context) Result {
		saved, err := b.SaveFeedback(ctx, t.Key, action, snap)
		return Result{Saved: saved, Err: err}
	}}
}
