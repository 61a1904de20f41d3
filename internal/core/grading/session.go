package grading

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/grader/internal/core/diffindex"
	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/repotree"
	"github.com/colonyops/grader/internal/core/snapshot"
)

// Phase is the load state of one piece of the session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Selection is what the reviewer is currently looking at. Zero fields mean
// nothing is selected at that level.
type Selection struct {
	AssignmentID int64
	SubmissionID int64
	FilePath     string
}

// Options configures a Session.
type Options struct {
	ClassroomID int64
	// Author is recorded on feedback created in this session.
	Author string
	// Hide lists doublestar patterns; matching entries are left out of the tree.
	Hide []string
}

type part struct {
	phase Phase
	err   error
}

func (p *part) loading()        { p.phase, p.err = PhaseLoading, nil }
func (p *part) ready()          { p.phase, p.err = PhaseReady, nil }
func (p *part) fail(err error)  { p.phase, p.err = PhaseError, err }
func (p part) is(ph Phase) bool { return p.phase == ph }

type fileState struct {
	part
	content snapshot.FileContent
	diff    diffindex.Index
}

// Session is the review state machine. It is driven from a single control
// thread: actions return Fetches, and each Fetch's Result is handed back via
// Apply. Fetches may run concurrently; Apply may not.
type Session struct {
	backend Backend
	cache   ContentCache
	filter  *Filter
	author  string
	logger  zerolog.Logger

	classroomID int64
	sel         Selection
	epoch       uint64

	first      part
	submission part
	ref        snapshot.SubmissionRef

	tree    part
	entries []snapshot.Entry
	root    *repotree.Directory

	// diffs memoizes the range-derived index per path for the current tree.
	diffs map[string]diffindex.Index

	file fileState

	feedback part
	ledger   *feedback.Ledger
}

// NewSession creates a session with nothing selected.
func NewSession(backend Backend, cache ContentCache, opts Options) (*Session, error) {
	filter, err := NewFilter(opts.Hide)
	if err != nil {
		return nil, err
	}

	return &Session{
		backend:     backend,
		cache:       cache,
		filter:      filter,
		author:      opts.Author,
		logger:      logging.Component("grading"),
		classroomID: opts.ClassroomID,
		diffs:       make(map[string]diffindex.Index),
		ledger:      feedback.NewLedger(),
	}, nil
}

// Selection returns the current selection.
func (s *Session) Selection() Selection {
	return s.sel
}

// Key returns the snapshot key of the selected submission.
func (s *Session) Key() snapshot.Key {
	return snapshot.Key{
		ClassroomID:  s.classroomID,
		AssignmentID: s.sel.AssignmentID,
		SubmissionID: s.sel.SubmissionID,
	}
}

// Epoch returns the current selection generation.
func (s *Session) Epoch() uint64 {
	return s.epoch
}

func (s *Session) ticket(kind FetchKind, path string) Ticket {
	return Ticket{Kind: kind, Epoch: s.epoch, Key: s.Key(), Path: path}
}

// transition moves to a new assignment/submission pair. Cached content of the
// previous key is invalidated before any fetch for the new key is issued.
func (s *Session) transition(assignmentID, submissionID int64) {
	if prev := s.Key(); !prev.IsZero() {
		s.cache.Invalidate(prev)
		s.logger.Debug().Stringer("key", prev).Msg("invalidated cached content")
	}

	s.epoch++
	s.sel = Selection{AssignmentID: assignmentID, SubmissionID: submissionID}
	s.first = part{}
	s.submission = part{}
	s.ref = snapshot.SubmissionRef{}
	s.tree = part{}
	s.entries = nil
	s.root = nil
	s.diffs = make(map[string]diffindex.Index)
	s.file = fileState{}
	s.feedback = part{}
	s.ledger.Reset()
}

// SelectAssignment clears the submission and loads the assignment's first
// submission. An assignment with no submissions ends in NoSelection.
func (s *Session) SelectAssignment(assignmentID int64) []Fetch {
	s.transition(assignmentID, 0)
	if assignmentID == 0 {
		return nil
	}

	s.first.loading()
	s.logger.Debug().Int64("assignment_id", assignmentID).Msg("selecting assignment")
	return []Fetch{s.fetchFirstSubmission(s.ticket(FetchFirstSubmission, ""))}
}

// SelectSubmission switches to another submission of the current assignment.
// Selecting the already selected submission reloads it.
func (s *Session) SelectSubmission(submissionID int64) []Fetch {
	if s.sel.AssignmentID == 0 || submissionID == 0 {
		s.logger.Warn().Int64("submission_id", submissionID).Msg("ignoring submission selection without assignment")
		return nil
	}
	return s.openSubmission(submissionID, nil)
}

func (s *Session) openSubmission(submissionID int64, ref *snapshot.SubmissionRef) []Fetch {
	s.transition(s.sel.AssignmentID, submissionID)

	fetches := make([]Fetch, 0, 3)
	if ref != nil {
		s.ref = *ref
		s.submission.ready()
	} else {
		s.submission.loading()
		fetches = append(fetches, s.fetchSubmission(s.ticket(FetchSubmission, "")))
	}

	s.tree.loading()
	s.feedback.loading()
	fetches = append(fetches,
		s.fetchTree(s.ticket(FetchTree, "")),
		s.fetchFeedback(s.ticket(FetchFeedback, "")),
	)

	s.logger.Debug().Stringer("key", s.Key()).Msg("selecting submission")
	return fetches
}

// SelectFile selects a file of the loaded tree. Paths that are not files in
// the tree are rejected with ErrNotFound and leave the selection unchanged.
// Cached content is used without a fetch.
func (s *Session) SelectFile(path string) ([]Fetch, error) {
	root := s.Tree()
	if root == nil {
		return nil, fmt.Errorf("%w: no tree loaded", ErrNotFound)
	}
	f, ok := root.File(path)
	if !ok {
		return nil, fmt.Errorf("%w: file %q", ErrNotFound, path)
	}
	path = f.Path()

	if path == s.sel.FilePath && (s.file.is(PhaseReady) || s.file.is(PhaseLoading)) {
		return nil, nil
	}

	s.sel.FilePath = path
	s.file = fileState{}

	if content, ok := s.cache.Get(s.Key(), path); ok {
		s.setFile(content)
		return nil, nil
	}

	s.file.loading()
	return []Fetch{s.fetchFile(s.ticket(FetchFile, path))}, nil
}

// NavigateNext selects the next submission, if the current one has one.
func (s *Session) NavigateNext() []Fetch {
	if !s.submission.is(PhaseReady) || !s.ref.HasNext() {
		return nil
	}
	return s.SelectSubmission(s.ref.NextID)
}

// NavigatePrevious selects the previous submission, if the current one has one.
func (s *Session) NavigatePrevious() []Fetch {
	if !s.submission.is(PhaseReady) || !s.ref.HasPrevious() {
		return nil
	}
	return s.SelectSubmission(s.ref.PreviousID)
}

// Retry re-issues the selection action that failed. A file failure only
// refetches the file; anything else reloads the submission or assignment.
func (s *Session) Retry() []Fetch {
	switch {
	case s.first.is(PhaseError):
		return s.SelectAssignment(s.sel.AssignmentID)
	case s.submission.is(PhaseError), s.tree.is(PhaseError), s.feedback.is(PhaseError):
		path := s.sel.FilePath
		fetches := s.SelectSubmission(s.sel.SubmissionID)
		s.sel.FilePath = path
		if path != "" {
			s.file.loading()
			fetches = append(fetches, s.fetchFile(s.ticket(FetchFile, path)))
		}
		return fetches
	case s.file.is(PhaseError):
		s.file.loading()
		return []Fetch{s.fetchFile(s.ticket(FetchFile, s.sel.FilePath))}
	default:
		return nil
	}
}

// Apply admits the result of a fetch and returns any follow-up fetches.
// Results issued under an earlier selection are discarded.
func (s *Session) Apply(r Result) []Fetch {
	if r.Epoch != s.epoch || r.Key != s.Key() {
		s.logger.Debug().
			Stringer("kind", r.Kind).
			Stringer("key", r.Key).
			Uint64("epoch", r.Epoch).
			Msg("discarding stale result")
		return nil
	}

	switch r.Kind {
	case FetchFirstSubmission:
		return s.applyFirstSubmission(r)
	case FetchSubmission:
		if r.Err != nil {
			s.submission.fail(r.Err)
			return nil
		}
		s.ref = r.Submission
		s.submission.ready()
	case FetchTree:
		if r.Err != nil {
			s.tree.fail(r.Err)
			return nil
		}
		s.entries = s.filter.Apply(r.Entries)
		s.root = nil
		s.diffs = make(map[string]diffindex.Index)
		s.tree.ready()
		s.refreshFileDiff()
	case FetchFile:
		s.applyFile(r)
	case FetchFeedback:
		if r.Err != nil {
			s.feedback.fail(r.Err)
			return nil
		}
		s.ledger.Import(r.Feedback)
		s.feedback.ready()
	case FetchSaveFeedback:
		s.applySave(r)
	}
	return nil
}

func (s *Session) applyFirstSubmission(r Result) []Fetch {
	if r.Err != nil {
		if errors.Is(r.Err, ErrNotFound) {
			s.first = part{}
			s.logger.Info().Int64("assignment_id", s.sel.AssignmentID).Msg("assignment has no submissions")
			return nil
		}
		s.first.fail(r.Err)
		return nil
	}
	if r.Submission.ID == 0 {
		s.first.fail(fmt.Errorf("%w: first submission has no id", ErrMalformedResponse))
		return nil
	}

	ref := r.Submission
	return s.openSubmission(ref.ID, &ref)
}

func (s *Session) applyFile(r Result) {
	current := r.Path == s.sel.FilePath
	if r.Err != nil {
		if current {
			s.file.fail(r.Err)
		}
		return
	}

	s.cache.Put(r.Key, r.Path, r.Content)
	if current {
		s.setFile(r.Content)
	}
}

func (s *Session) setFile(content snapshot.FileContent) {
	s.file.content = content
	s.file.ready()
	s.refreshFileDiff()
}

func (s *Session) refreshFileDiff() {
	if !s.file.is(PhaseReady) {
		return
	}
	s.file.diff = s.changedLines(s.sel.FilePath, s.file.content)
}

// changedLines picks the diff source for a file. A memo whose length matches
// the line count wins; otherwise the entry's change ranges are used.
func (s *Session) changedLines(path string, content snapshot.FileContent) diffindex.Index {
	n := len(content.Lines)
	if len(content.Memo) > 0 && len(content.Memo) == n {
		return diffindex.FromMemo(content.Memo)
	}

	root := s.Tree()
	if root == nil {
		return diffindex.Index{}
	}
	idx, ok := s.diffs[path]
	if !ok {
		if f, found := root.File(path); found {
			idx = diffindex.Build(f.Entry().ChangeRanges)
		}
		s.diffs[path] = idx
	}
	return idx.Clamp(n)
}

// Tree returns the directory tree of the loaded submission, or nil while it
// is not loaded. The tree is built once per snapshot.
func (s *Session) Tree() *repotree.Directory {
	if !s.tree.is(PhaseReady) {
		return nil
	}
	if s.root == nil {
		s.root = repotree.Build(s.entries)
	}
	return s.root
}

// Submission returns the loaded submission reference.
func (s *Session) Submission() (snapshot.SubmissionRef, bool) {
	return s.ref, s.submission.is(PhaseReady)
}
