package feedback

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger() *Ledger {
	l := NewLedger()
	base := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	ticks := 0
	l.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}
	ids := 0
	l.newID = func() string {
		ids++
		return fmt.Sprintf("draft-%d", ids)
	}
	return l
}

func TestLedger_UpsertCreates(t *testing.T) {
	l := newTestLedger()

	c := l.Upsert(Snapshot{Path: "main.py", Line: 4, Body: "missing docstring", Points: -1})

	assert.Equal(t, "draft-1", c.ID)
	assert.False(t, c.Persisted())
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, 0, c.HistoryLen())
	assert.Equal(t, 1, l.Len())
}

func TestLedger_UpsertUsesCommentID(t *testing.T) {
	l := newTestLedger()

	c := l.Upsert(Snapshot{CommentID: 42, Path: "a.py", Line: 1, Body: "x"})

	assert.Equal(t, "42", c.ID)
	got, ok := l.Get("42")
	require.True(t, ok)
	assert.Equal(t, c, got)
}

func TestLedger_UpsertIdenticalIsNoop(t *testing.T) {
	l := newTestLedger()

	first := l.Upsert(Snapshot{CommentID: 7, Path: "a.py", Line: 3, Body: "ok", Points: 2})
	second := l.Upsert(Snapshot{CommentID: 7, Path: "a.py", Line: 3, Body: "ok", Points: 2})

	assert.Equal(t, first, second)
	assert.Equal(t, 0, second.HistoryLen())
}

func TestLedger_UpsertChangedRecordsHistory(t *testing.T) {
	l := newTestLedger()

	first := l.Upsert(Snapshot{CommentID: 7, Path: "a.py", Line: 3, Body: "ok", Points: 2})
	second := l.Upsert(Snapshot{CommentID: 7, Path: "a.py", Line: 3, Body: "better", Points: 1})

	assert.Equal(t, "better", second.Body)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, []Snapshot{first.Snapshot}, second.History())
}

func TestLedger_RecordEdit(t *testing.T) {
	l := newTestLedger()
	c := l.Upsert(Snapshot{Path: "a.py", Line: 3, Body: "v0", Points: 0})

	edited, err := l.RecordEdit(c.ID, "v1", -2)
	require.NoError(t, err)

	assert.Equal(t, "v1", edited.Body)
	assert.Equal(t, -2, edited.Points)
	assert.Equal(t, []Snapshot{c.Snapshot}, edited.History())
}

func TestLedger_HistoryAppendOnly(t *testing.T) {
	l := newTestLedger()
	c := l.Upsert(Snapshot{Path: "a.py", Line: 3, Body: "v0"})

	previous := []Snapshot{}
	for i := 1; i <= 5; i++ {
		edited, err := l.RecordEdit(c.ID, fmt.Sprintf("v%d", i), i)
		require.NoError(t, err)

		hist := edited.History()
		require.Len(t, hist, i, "history grows by one per edit")
		assert.Equal(t, fmt.Sprintf("v%d", i-1), hist[0].Body, "most recent first")
		// earlier snapshots are unchanged and form the tail
		assert.Equal(t, previous, hist[1:])

		previous = hist
	}

	// a history slice handed out earlier is not affected by later edits
	kept := previous
	_, err := l.RecordEdit(c.ID, "v6", 6)
	require.NoError(t, err)
	assert.Equal(t, "v4", kept[0].Body)
}

func TestLedger_RecordEditUnknown(t *testing.T) {
	l := newTestLedger()

	_, err := l.RecordEdit("nope", "x", 0)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestLedger_RecordDeletion(t *testing.T) {
	l := newTestLedger()
	c := l.Upsert(Snapshot{Path: "a.py", Line: 3, Body: "v0"})

	tomb, err := l.RecordDeletion(c.ID)
	require.NoError(t, err)

	assert.True(t, tomb.Deleted)
	assert.Equal(t, "v0", tomb.Body)
	assert.Equal(t, []Snapshot{c.Snapshot}, tomb.History())
	assert.Empty(t, l.CurrentFor("a.py"))
	assert.Equal(t, 1, l.Len(), "tombstones stay in the ledger")

	_, err = l.RecordEdit(c.ID, "again", 0)
	assert.ErrorIs(t, err, ErrCommentDeleted)

	_, err = l.RecordDeletion(c.ID)
	assert.ErrorIs(t, err, ErrCommentDeleted)
}

func TestLedger_CurrentForOrdering(t *testing.T) {
	l := newTestLedger()

	l.Upsert(Snapshot{ID: "c", Path: "a.py", Line: 10, Body: "third"})
	l.Upsert(Snapshot{ID: "a", Path: "a.py", Line: 2, Body: "first"})
	l.Upsert(Snapshot{ID: "x", Path: "b.py", Line: 1, Body: "other file"})
	l.Upsert(Snapshot{ID: "b", Path: "a.py", Line: 2, Body: "second"})

	got := l.CurrentFor("a.py")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{got[0].Body, got[1].Body, got[2].Body})
}

func TestLedger_EditKeepsCreationOrder(t *testing.T) {
	l := newTestLedger()

	l.Upsert(Snapshot{ID: "a", Path: "a.py", Line: 2, Body: "first"})
	l.Upsert(Snapshot{ID: "b", Path: "a.py", Line: 2, Body: "second"})
	_, err := l.RecordEdit("a", "first, edited", 0)
	require.NoError(t, err)

	got := l.CurrentFor("a.py")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
}

func TestLedger_MarkPersisted(t *testing.T) {
	l := newTestLedger()
	draft := l.Upsert(Snapshot{Path: "a.py", Line: 1, Body: "x"})
	edited, err := l.RecordEdit(draft.ID, "y", 1)
	require.NoError(t, err)

	c, err := l.MarkPersisted(draft.ID, 99)
	require.NoError(t, err)

	assert.Equal(t, "99", c.ID)
	assert.True(t, c.Persisted())
	assert.Equal(t, edited.History(), c.History())
	_, ok := l.Get(draft.ID)
	assert.False(t, ok)

	_, err = l.MarkPersisted("missing", 1)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestLedger_Import(t *testing.T) {
	l := newTestLedger()
	l.Upsert(Snapshot{Path: "stale.py", Line: 1, Body: "local"})

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.Import([]Record{
		{
			Current: Snapshot{CommentID: 2, Path: "a.py", Line: 5, Body: "later", CreatedAt: t0.Add(time.Hour)},
		},
		{
			Current: Snapshot{CommentID: 1, Path: "a.py", Line: 5, Body: "v2", CreatedAt: t0},
			History: []Snapshot{
				{CommentID: 1, Path: "a.py", Line: 5, Body: "v1"},
				{CommentID: 1, Path: "a.py", Line: 5, Body: "v0"},
			},
		},
	})

	assert.Equal(t, 3, l.Len())
	assert.Len(t, l.CurrentFor("stale.py"), 1, "local comments missing from the list are kept")

	got := l.CurrentFor("a.py")
	require.Len(t, got, 2)
	assert.Equal(t, "v2", got[0].Body)
	assert.Equal(t, "later", got[1].Body)

	hist := got[0].History()
	require.Len(t, hist, 2)
	assert.Equal(t, "v1", hist[0].Body)
	assert.Equal(t, "v0", hist[1].Body)

	edited, err := l.RecordEdit("1", "v3", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v1", "v0"}, bodies(edited.History()))
}

func TestLedger_ImportKeepsNewerLocalVersion(t *testing.T) {
	l := newTestLedger()
	listed := Record{Current: Snapshot{CommentID: 5, Path: "a.py", Line: 2, Body: "v1"}}

	// the save of v2 is applied before a list produced earlier arrives
	l.Apply(Record{
		Current: Snapshot{CommentID: 5, Path: "a.py", Line: 2, Body: "v2"},
		History: []Snapshot{listed.Current},
	})
	l.Apply(Record{Current: Snapshot{CommentID: 6, Path: "a.py", Line: 3, Body: "saved after list"}})

	l.Import([]Record{listed})

	got := l.CurrentFor("a.py")
	require.Len(t, got, 2)
	assert.Equal(t, "v2", got[0].Body)
	assert.Equal(t, 1, got[0].HistoryLen())
	assert.Equal(t, "saved after list", got[1].Body)
}

func TestLedger_UpsertKeepsTombstone(t *testing.T) {
	l := newTestLedger()
	l.Upsert(Snapshot{CommentID: 7, Path: "a.py", Line: 1, Body: "x"})
	deleted, err := l.RecordDeletion("7")
	require.NoError(t, err)

	got := l.Upsert(Snapshot{CommentID: 7, Path: "a.py", Line: 1, Body: "back again"})

	assert.True(t, got.Deleted)
	assert.Equal(t, deleted, got)
	assert.Empty(t, l.CurrentFor("a.py"))
	assert.Equal(t, 1, got.HistoryLen())
}

func TestLedger_Rollback(t *testing.T) {
	t.Run("drops unsaved draft", func(t *testing.T) {
		l := newTestLedger()
		draft := l.Upsert(Snapshot{Path: "a.py", Line: 1, Body: "hmm"})

		assert.True(t, l.Rollback(draft, Comment{}, false))
		assert.Equal(t, 0, l.Len())
	})

	t.Run("restores edited comment", func(t *testing.T) {
		l := newTestLedger()
		prior := l.Upsert(Snapshot{CommentID: 3, Path: "a.py", Line: 1, Body: "v1", Points: -1})
		edited, err := l.RecordEdit("3", "v2", -3)
		require.NoError(t, err)

		assert.True(t, l.Rollback(edited, prior, true))
		got, ok := l.Get("3")
		require.True(t, ok)
		assert.Equal(t, prior, got)
		assert.Equal(t, 0, got.HistoryLen())
	})

	t.Run("restores deleted comment", func(t *testing.T) {
		l := newTestLedger()
		prior := l.Upsert(Snapshot{CommentID: 3, Path: "a.py", Line: 1, Body: "v1"})
		tomb, err := l.RecordDeletion("3")
		require.NoError(t, err)

		assert.True(t, l.Rollback(tomb, prior, true))
		assert.Len(t, l.CurrentFor("a.py"), 1)
	})

	t.Run("leaves later changes alone", func(t *testing.T) {
		l := newTestLedger()
		prior := l.Upsert(Snapshot{CommentID: 3, Path: "a.py", Line: 1, Body: "v1"})
		first, err := l.RecordEdit("3", "v2", 0)
		require.NoError(t, err)
		_, err = l.RecordEdit("3", "v3", 0)
		require.NoError(t, err)

		assert.False(t, l.Rollback(first, prior, true))
		got, _ := l.Get("3")
		assert.Equal(t, "v3", got.Body)
	})
}

func TestLedger_All(t *testing.T) {
	l := newTestLedger()
	l.Upsert(Snapshot{ID: "1", Path: "b.py", Line: 1})
	l.Upsert(Snapshot{ID: "2", Path: "a.py", Line: 9})
	_, err := l.RecordDeletion("2")
	require.NoError(t, err)

	all := l.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a.py", all[0].Path)
	assert.True(t, all[0].Deleted)
}

func bodies(snaps []Snapshot) []string {
	out := make([]string, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Body)
	}
	return out
}
