// Package feedback holds reviewer line comments and their append-only edit history.
package feedback

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/colonyops/grader/internal/core/snapshot"
)

// Sentinel errors for ledger operations.
var (
	ErrCommentNotFound = errors.New("feedback comment not found")
	ErrCommentDeleted  = errors.New("feedback comment is deleted")
)

// Action is the kind of change sent to the backend of record.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionEdit   Action = "EDIT"
	ActionDelete Action = "DELETE"
)

// Snapshot is one immutable version of a comment. Zero CommentID means the
// comment has not been persisted; zero RubricItemID means no rubric item.
type Snapshot struct {
	ID           string
	CommentID    int64
	RubricItemID int64
	Path         string
	Line         int
	Body         string
	Points       int
	Author       string
	CreatedAt    time.Time
	Deleted      bool
}

// sameContent compares the reviewer-editable fields.
func sameContent(a, b Snapshot) bool {
	return a.Path == b.Path &&
		a.Line == b.Line &&
		a.Body == b.Body &&
		a.Points == b.Points &&
		a.RubricItemID == b.RubricItemID &&
		a.Deleted == b.Deleted
}

// version is a node of the immutable history list. Nodes are never mutated
// after construction, so sharing a tail between comments is safe.
type version struct {
	snap Snapshot
	prev *version
	size int
}

func (v *version) push(s Snapshot) *version {
	size := 1
	if v != nil {
		size = v.size + 1
	}
	return &version{snap: s, prev: v, size: size}
}

// Comment is the current state of a comment together with its prior versions.
type Comment struct {
	Snapshot
	history *version
	seq     int
}

// History returns prior versions, most recent first.
func (c Comment) History() []Snapshot {
	out := make([]Snapshot, 0, c.HistoryLen())
	for v := c.history; v != nil; v = v.prev {
		out = append(out, v.snap)
	}
	return out
}

// HistoryLen returns the number of prior versions.
func (c Comment) HistoryLen() int {
	if c.history == nil {
		return 0
	}
	return c.history.size
}

// Persisted reports whether the backend has assigned a comment ID.
func (c Comment) Persisted() bool {
	return c.CommentID != 0
}

// Record returns the comment in its transport shape.
func (c Comment) Record() Record {
	return Record{Current: c.Snapshot, History: c.History()}
}

// Record is a comment with flat history, most recent first. It is the shape
// exchanged with the backend of record.
type Record struct {
	Current Snapshot
	History []Snapshot
}

// FormatID returns the ledger ID used for a persisted comment.
func FormatID(commentID int64) string {
	return strconv.FormatInt(commentID, 10)
}

// Store is the backend of record for feedback. Implementations resolve
// concurrent writers; the ledger only mirrors what they return.
type Store interface {
	// ListFeedback returns all comments on a submission, tombstones included.
	ListFeedback(ctx context.Context, key snapshot.Key) ([]Record, error)

	// SaveFeedback applies an action and returns the resulting comment.
	SaveFeedback(ctx context.Context, key snapshot.Key, action Action, s Snapshot) (Record, error)
}
