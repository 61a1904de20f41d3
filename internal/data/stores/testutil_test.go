package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/data/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err, "Open")
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func testAssignment() Assignment {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	sub := func(id int64, body string) Submission {
		return Submission{
			ID:           id,
			Contributors: []string{"student" + body},
			CreatedAt:    created,
			Entries: []snapshot.Entry{
				{Path: "src", Kind: snapshot.KindDirectory},
				{Path: "src/main.py", Kind: snapshot.KindFile, ContentID: "sha-" + body, Status: snapshot.StatusModified,
					ChangeRanges: []snapshot.Range{{Start: 2, End: 3}}},
				{Path: "README.md", Kind: snapshot.KindFile, Status: snapshot.StatusUnchanged},
			},
			Files: []File{
				{Path: "src/main.py", Language: "Python", Content: "import os\nprint(" + body + ")\nexit()\nreturn\n"},
				{Path: "README.md", Language: "Markdown", Content: "# lab"},
			},
		}
	}
	return Assignment{
		ClassroomID: 1,
		ID:          2,
		Name:        "lab 1",
		Submissions: []Submission{sub(10, "a"), sub(11, "b"), sub(12, "c")},
	}
}

func seedTestBackend(t *testing.T) Backend {
	t.Helper()
	b := NewBackend(openTestDB(t))
	require.NoError(t, b.PutAssignment(context.Background(), testAssignment()))
	return b
}

func key(sub int64) snapshot.Key {
	return snapshot.Key{ClassroomID: 1, AssignmentID: 2, SubmissionID: sub}
}
