package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/snapshot"
)

func TestSubmissionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("first submission", func(t *testing.T) {
		b := seedTestBackend(t)

		ref, err := b.FirstSubmission(ctx, 1, 2)
		require.NoError(t, err, "FirstSubmission")
		assert.Equal(t, snapshot.SubmissionRef{
			ID:             10,
			AssignmentID:   2,
			AssignmentName: "lab 1",
			RowNumber:      1,
			TotalCount:     3,
			NextID:         11,
			Contributors:   []string{"studenta"},
		}, ref)
	})

	t.Run("neighbours follow insertion order", func(t *testing.T) {
		b := seedTestBackend(t)

		ref, err := b.Submission(ctx, key(11))
		require.NoError(t, err)
		assert.Equal(t, int64(10), ref.PreviousID)
		assert.Equal(t, int64(12), ref.NextID)
		assert.Equal(t, 2, ref.RowNumber)

		last, err := b.Submission(ctx, key(12))
		require.NoError(t, err)
		assert.False(t, last.HasNext())
	})

	t.Run("not found", func(t *testing.T) {
		b := seedTestBackend(t)

		_, err := b.Submission(ctx, key(99))
		assert.ErrorIs(t, err, grading.ErrNotFound)

		_, err = b.FirstSubmission(ctx, 1, 99)
		assert.ErrorIs(t, err, grading.ErrNotFound)

		_, err = b.Tree(ctx, key(99))
		assert.ErrorIs(t, err, grading.ErrNotFound)

		_, err = b.FileContent(ctx, key(10), "missing.py")
		assert.ErrorIs(t, err, grading.ErrNotFound)
	})

	t.Run("empty assignment has no first submission", func(t *testing.T) {
		b := NewBackend(openTestDB(t))
		require.NoError(t, b.PutAssignment(ctx, Assignment{ClassroomID: 1, ID: 5, Name: "empty"}))

		_, err := b.FirstSubmission(ctx, 1, 5)
		assert.ErrorIs(t, err, grading.ErrNotFound)
	})

	t.Run("tree keeps listing order", func(t *testing.T) {
		b := seedTestBackend(t)

		entries, err := b.Tree(ctx, key(10))
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "src", entries[0].Path)
		assert.Equal(t, snapshot.KindDirectory, entries[0].Kind)
		assert.Equal(t, []snapshot.Range{{Start: 2, End: 3}}, entries[1].ChangeRanges)
		assert.Equal(t, "sha-a", entries[1].ContentID)
		assert.Nil(t, entries[2].ChangeRanges)
	})

	t.Run("file content with memo", func(t *testing.T) {
		b := seedTestBackend(t)

		content, err := b.FileContent(ctx, key(11), "src/main.py")
		require.NoError(t, err)
		assert.Equal(t, []string{"import os", "print(b)", "exit()", "return"}, content.Lines)
		assert.Equal(t, []int{0, 1, 1, 0}, content.Memo)
		assert.Equal(t, "Python", content.Language)

		readme, err := b.FileContent(ctx, key(11), "README.md")
		require.NoError(t, err)
		assert.Equal(t, []string{"# lab"}, readme.Lines)
		assert.Nil(t, readme.Memo, "unchanged files carry no memo")
	})

	t.Run("put replaces assignment", func(t *testing.T) {
		b := seedTestBackend(t)

		a := testAssignment()
		a.Name = "lab 1 (rev)"
		a.Submissions = a.Submissions[:1]
		require.NoError(t, b.PutAssignment(ctx, a))

		ref, err := b.FirstSubmission(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, "lab 1 (rev)", ref.AssignmentName)
		assert.Equal(t, 1, ref.TotalCount)

		_, err = b.Submission(ctx, key(11))
		assert.ErrorIs(t, err, grading.ErrNotFound)

		assignments, err := b.Assignments(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, assignments, 1)
	})
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\nb", []string{"a", "b"}},
		{"a\n\n", []string{"a", ""}},
		{"\n", []string{""}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitLines(tt.in), "%q", tt.in)
	}
}
