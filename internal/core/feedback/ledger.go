package feedback

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Ledger is the in-memory, append-only store of comments for one submission.
// It is not safe for concurrent use; callers serialize mutations.
type Ledger struct {
	comments map[string]Comment
	nextSeq  int
	now      func() time.Time
	newID    func() string
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		comments: make(map[string]Comment),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Len returns the number of comments, tombstones included.
func (l *Ledger) Len() int {
	return len(l.comments)
}

// Reset drops every comment.
func (l *Ledger) Reset() {
	l.comments = make(map[string]Comment)
	l.nextSeq = 0
}

// Get returns the comment with the given ID.
func (l *Ledger) Get(id string) (Comment, bool) {
	c, ok := l.comments[id]
	return c, ok
}

// Upsert creates a comment or amends an existing one. A missing ID is derived
// from CommentID, or generated for drafts. Amending with identical content
// returns the existing comment without recording history. Tombstones are
// terminal and are returned unchanged.
func (l *Ledger) Upsert(s Snapshot) Comment {
	if s.ID == "" && s.CommentID != 0 {
		s.ID = FormatID(s.CommentID)
	}
	if s.ID == "" {
		s.ID = l.newID()
	}

	existing, ok := l.comments[s.ID]
	if ok && existing.Deleted {
		return existing
	}
	if !ok {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = l.now()
		}
		c := Comment{Snapshot: s, seq: l.nextSeq}
		l.nextSeq++
		l.comments[s.ID] = c
		return c
	}

	if s.CommentID == 0 {
		s.CommentID = existing.CommentID
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = existing.CreatedAt
	}
	if sameContent(existing.Snapshot, s) {
		return existing
	}
	return l.amend(existing, s)
}

// RecordEdit replaces the body and points of a live comment. The pre-edit
// snapshot becomes the newest history entry.
func (l *Ledger) RecordEdit(id, body string, points int) (Comment, error) {
	c, err := l.live(id)
	if err != nil {
		return Comment{}, err
	}

	next := c.Snapshot
	next.Body = body
	next.Points = points
	return l.amend(c, next), nil
}

// RecordDeletion turns a live comment into a tombstone. The prior value is
// kept in history; nothing is physically removed.
func (l *Ledger) RecordDeletion(id string) (Comment, error) {
	c, err := l.live(id)
	if err != nil {
		return Comment{}, err
	}

	next := c.Snapshot
	next.Deleted = true
	return l.amend(c, next), nil
}

// MarkPersisted records the backend comment ID for a draft and re-keys it.
// History is untouched; this is not an edit.
func (l *Ledger) MarkPersisted(id string, commentID int64) (Comment, error) {
	c, ok := l.comments[id]
	if !ok {
		return Comment{}, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}

	delete(l.comments, id)
	c.CommentID = commentID
	c.ID = FormatID(commentID)
	l.comments[c.ID] = c
	return c, nil
}

// CurrentFor returns live comments on path ordered by line, then creation order.
func (l *Ledger) CurrentFor(path string) []Comment {
	var out []Comment
	for _, c := range l.comments {
		if c.Path == path && !c.Deleted {
			out = append(out, c)
		}
	}
	sortComments(out)
	return out
}

// All returns every comment, tombstones included, ordered by path, line and
// creation order.
func (l *Ledger) All() []Comment {
	out := make([]Comment, 0, len(l.comments))
	for _, c := range l.comments {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Comment) int {
		return cmp.Or(
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.seq, b.seq),
		)
	})
	return out
}

// Import merges records from the backend of record. Creation order follows
// CreatedAt, then CommentID. A record replaces the local comment unless the
// local one has more versions, which means a save landed after the list was
// produced. Local comments missing from the list are kept.
func (l *Ledger) Import(records []Record) {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		return cmp.Or(
			a.Current.CreatedAt.Compare(b.Current.CreatedAt),
			cmp.Compare(a.Current.CommentID, b.Current.CommentID),
		)
	})

	for _, r := range sorted {
		if local, ok := l.comments[recordID(r)]; ok && local.HistoryLen() > len(r.History) {
			continue
		}
		l.Apply(r)
	}
}

func recordID(r Record) string {
	if r.Current.ID == "" && r.Current.CommentID != 0 {
		return FormatID(r.Current.CommentID)
	}
	return r.Current.ID
}

// Rollback undoes a local change whose save failed. after is the comment the
// change produced and is only undone if nothing has changed it since. A draft
// that never reached the backend is dropped; otherwise prior is restored.
func (l *Ledger) Rollback(after, prior Comment, existed bool) bool {
	cur, ok := l.comments[after.ID]
	if !ok || cur.history != after.history || !sameContent(cur.Snapshot, after.Snapshot) {
		return false
	}
	if !existed {
		delete(l.comments, after.ID)
		return true
	}
	l.comments[prior.ID] = prior
	return true
}

// Apply stores a record from the backend of record, replacing any local
// state for the same ID. Last write wins.
func (l *Ledger) Apply(r Record) Comment {
	cur := r.Current
	cur.ID = recordID(r)
	if cur.ID == "" {
		cur.ID = l.newID()
	}

	var hist *version
	for i := len(r.History) - 1; i >= 0; i-- {
		hist = hist.push(r.History[i])
	}

	seq := l.nextSeq
	if existing, ok := l.comments[cur.ID]; ok {
		seq = existing.seq
	} else {
		l.nextSeq++
	}

	c := Comment{Snapshot: cur, history: hist, seq: seq}
	l.comments[cur.ID] = c
	return c
}

func (l *Ledger) live(id string) (Comment, error) {
	c, ok := l.comments[id]
	if !ok {
		return Comment{}, fmt.Errorf("%w: %s", ErrCommentNotFound, id)
	}
	if c.Deleted {
		return Comment{}, fmt.Errorf("%w: %s", ErrCommentDeleted, id)
	}
	return c, nil
}

func (l *Ledger) amend(c Comment, next Snapshot) Comment {
	updated := Comment{
		Snapshot: next,
		history:  c.history.push(c.Snapshot),
		seq:      c.seq,
	}
	l.comments[next.ID] = updated
	return updated
}

func sortComments(cs []Comment) {
	slices.SortFunc(cs, func(a, b Comment) int {
		return cmp.Or(cmp.Compare(a.Line, b.Line), cmp.Compare(a.seq, b.seq))
	})
}
