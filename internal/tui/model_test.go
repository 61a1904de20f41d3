package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/data/contentcache"
	"github.com/colonyops/grader/internal/data/db"
	"github.com/colonyops/grader/internal/data/stores"
	"github.com/colonyops/grader/internal/render"
	"github.com/colonyops/grader/pkg/tuitest"
)

func testSession(t *testing.T) *grading.Session {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	b := stores.NewBackend(database)
	sub := func(id int64, body string) stores.Submission {
		return stores.Submission{
			ID:           id,
			Contributors: []string{"student" + body},
			Entries: []snapshot.Entry{
				{Path: "src", Kind: snapshot.KindDirectory},
				{Path: "src/main.py", Kind: snapshot.KindFile, Status: snapshot.StatusModified,
					ChangeRanges: []snapshot.Range{{Start: 2, End: 2}}},
				{Path: "README.md", Kind: snapshot.KindFile},
			},
			Files: []stores.File{
				{Path: "src/main.py", Content: "import os\nprint(" + body + ")\nexit()\n"},
				{Path: "README.md", Content: "# lab\n"},
			},
		}
	}
	require.NoError(t, b.PutAssignment(context.Background(), stores.Assignment{
		ClassroomID: 1, ID: 2, Name: "lab 1",
		Submissions: []stores.Submission{sub(10, "a"), sub(11, "b")},
	}))

	s, err := grading.NewSession(b, contentcache.New(4), grading.Options{ClassroomID: 1, Author: "ta"})
	require.NoError(t, err)
	return s
}

// drain runs cmd and every command it produces, feeding messages to m.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case resultMsg:
			updated, follow := m.Update(msg)
			m = updated.(Model)
			queue = append(queue, follow)
		}
	}
	return m
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		updated, cmd := m.Update(tuitest.Key(k))
		m = drain(t, updated.(Model), cmd)
	}
	return m
}

func setupModel(t *testing.T) Model {
	t.Helper()
	s := testSession(t)
	m := New(context.Background(), s, s.SelectAssignment(2), render.Options{Width: 80})
	updated, _ := m.Update(tuitest.WindowSize(120, 30))
	m = updated.(Model)
	return drain(t, m, m.Init())
}

func TestModelInit(t *testing.T) {
	m := setupModel(t)

	assert.Equal(t, grading.StatusReady, m.view.Status)
	require.Len(t, m.rows, 3)
	assert.Equal(t, "src", m.rows[0].Node.Path())
	assert.Contains(t, m.View(), "submission 1/2")
}

func TestOpenFileAndMove(t *testing.T) {
	m := setupModel(t)

	m = press(t, m, "j", "enter")
	require.NotNil(t, m.view.File)
	assert.Equal(t, "src/main.py", m.view.File.Path)
	assert.Equal(t, grading.PhaseReady, m.view.File.Phase)
	assert.Equal(t, 1, m.line)

	m = press(t, m, "tab", "j", "j", "j")
	assert.Equal(t, paneFile, m.focus)
	assert.Equal(t, 3, m.line, "cursor stops at the last line")

	m = press(t, m, "k")
	assert.Equal(t, 2, m.line)
}

func TestCollapseDirectory(t *testing.T) {
	m := setupModel(t)

	m = press(t, m, "enter")
	assert.Len(t, m.rows, 2)
	assert.True(t, m.rows[0].Collapsed)

	m = press(t, m, "enter")
	assert.Len(t, m.rows, 3)
}

func TestCommentLifecycle(t *testing.T) {
	m := setupModel(t)
	m = press(t, m, "j", "enter", "tab", "j")
	require.Equal(t, 2, m.line)

	m = press(t, m, "c")
	require.NotNil(t, m.comment)
	m = press(t, m, "-2 missing guard", "enter")
	assert.Nil(t, m.comment)

	comments := m.session.Comments("src/main.py")
	require.Len(t, comments, 1)
	assert.Equal(t, "missing guard", comments[0].Body)
	assert.Equal(t, -2, comments[0].Points)
	assert.Equal(t, 2, comments[0].Line)
	assert.True(t, comments[0].Persisted())
	assert.Contains(t, tuitest.StripANSI(m.View()), "missing guard")

	m = press(t, m, "x")
	assert.Empty(t, m.session.Comments("src/main.py"))

	m = press(t, m, "x")
	assert.Equal(t, "no comment on this line", m.flash)
}

func TestCommentCancel(t *testing.T) {
	m := setupModel(t)
	m = press(t, m, "c")
	assert.Nil(t, m.comment, "comments need the file pane")
	assert.NotEmpty(t, m.flash)

	m = press(t, m, "j", "enter", "tab", "c", "draft", "esc")
	assert.Nil(t, m.comment)
	assert.Empty(t, m.session.Comments("src/main.py"))
}

func TestNavigateSubmissions(t *testing.T) {
	m := setupModel(t)
	m = press(t, m, "j", "enter")
	require.NotNil(t, m.view.File)

	m = press(t, m, "n")
	assert.Equal(t, int64(11), m.session.Selection().SubmissionID)
	assert.Nil(t, m.view.File, "file selection is dropped")
	assert.Contains(t, m.View(), "submission 2/2")

	m = press(t, m, "n")
	assert.Equal(t, int64(11), m.session.Selection().SubmissionID, "no next submission")

	m = press(t, m, "p")
	assert.Equal(t, int64(10), m.session.Selection().SubmissionID)
}

func TestQuit(t *testing.T) {
	m := setupModel(t)
	_, cmd := m.Update(tuitest.KeyPress('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestParseComment(t *testing.T) {
	tests := []struct {
		in     string
		body   string
		points int
	}{
		{"nice work", "nice work", 0},
		{"+3 great tests", "great tests", 3},
		{"-1 off by one", "off by one", -1},
		{"-x not a number", "-x not a number", 0},
		{"12 apples", "12 apples", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			body, points := parseComment(tt.in)
			assert.Equal(t, tt.body, body)
			assert.Equal(t, tt.points, points)
		})
	}
}

func TestViewBeforeSize(t *testing.T) {
	s := testSession(t)
	m := New(context.Background(), s, nil, render.Options{})
	assert.True(t, strings.HasPrefix(m.View(), "loading"))
}
