// Package snapshot defines the entity shapes shared by the review engine:
// repository entries, change ranges, submission references and file content.
package snapshot

import "strconv"

// Kind distinguishes files from directories in a repository listing.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "dir"
	default:
		return "unknown"
	}
}

// ChangeStatus is the change state of an entry relative to the assignment baseline.
type ChangeStatus string

const (
	StatusUnchanged ChangeStatus = "unchanged"
	StatusAdded     ChangeStatus = "added"
	StatusModified  ChangeStatus = "modified"
	StatusRemoved   ChangeStatus = "removed"
)

// ParseChangeStatus maps a backend status string to a ChangeStatus. Unknown
// values are treated as modified so the entry still shows up as changed.
func ParseChangeStatus(s string) ChangeStatus {
	switch s {
	case "", "unchanged", "unmodified":
		return StatusUnchanged
	case "added", "new":
		return StatusAdded
	case "modified", "changed", "renamed":
		return StatusModified
	case "removed", "deleted":
		return StatusRemoved
	default:
		return StatusModified
	}
}

// Range is an inclusive, 1-based line interval.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Contains reports whether line falls inside r.
func (r Range) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Entry is one path in a submission's file listing. Entries are immutable
// once received and identified by Path within one snapshot.
type Entry struct {
	Path         string
	Kind         Kind
	ContentID    string
	Status       ChangeStatus
	ChangeRanges []Range
}

// Changed reports whether the entry differs from the baseline at all.
func (e Entry) Changed() bool {
	return e.Status != StatusUnchanged || len(e.ChangeRanges) > 0
}

// Key identifies a submission snapshot. It is the granularity at which cached
// file content is invalidated.
type Key struct {
	ClassroomID  int64
	AssignmentID int64
	SubmissionID int64
}

// IsZero reports whether no submission is selected.
func (k Key) IsZero() bool {
	return k.SubmissionID == 0
}

func (k Key) String() string {
	return strconv.FormatInt(k.ClassroomID, 10) + "/" +
		strconv.FormatInt(k.AssignmentID, 10) + "/" +
		strconv.FormatInt(k.SubmissionID, 10)
}

// SubmissionRef is a node in the backend-defined order of submissions for an
// assignment. The engine only follows PreviousID and NextID; zero means absent.
type SubmissionRef struct {
	ID             int64
	AssignmentID   int64
	AssignmentName string
	RowNumber      int
	TotalCount     int
	PreviousID     int64
	NextID         int64
	Contributors   []string
}

// HasPrevious reports whether a previous submission exists.
func (r SubmissionRef) HasPrevious() bool { return r.PreviousID != 0 }

// HasNext reports whether a next submission exists.
func (r SubmissionRef) HasNext() bool { return r.NextID != 0 }

// FileContent is one file's text split into lines. Memo is the backend's
// optional per-line hint: Memo[i] > 0 marks line i+1 as diff-relevant.
type FileContent struct {
	Path     string
	Lines    []string
	Memo     []int
	Language string
}
