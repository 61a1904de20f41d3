package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/grader/internal/backend"
	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/grading"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/internal/data/contentcache"
	"github.com/colonyops/grader/internal/data/db"
	"github.com/colonyops/grader/internal/data/stores"
	"github.com/colonyops/grader/pkg/compress"
)

const workPath = "/classrooms/1/assignments/2/works/10"

func testBackend(t *testing.T) stores.Backend {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	b := stores.NewBackend(database)
	long := strings.Repeat("x = 1\n", 200)
	err = b.PutAssignment(context.Background(), stores.Assignment{
		ClassroomID: 1,
		ID:          2,
		Name:        "lab 1",
		Submissions: []stores.Submission{
			{
				ID:           10,
				Contributors: []string{"ada"},
				Entries: []snapshot.Entry{
					{Path: "src", Kind: snapshot.KindDirectory},
					{Path: "src/main.py", Kind: snapshot.KindFile, Status: snapshot.StatusModified,
						ChangeRanges: []snapshot.Range{{Start: 2, End: 2}}},
					{Path: "big.py", Kind: snapshot.KindFile},
				},
				Files: []stores.File{
					{Path: "src/main.py", Language: "Python", Content: "import os\nprint(1)\n"},
					{Path: "big.py", Language: "Python", Content: long},
				},
			},
			{
				ID:           11,
				Contributors: []string{"grace"},
				Entries:      []snapshot.Entry{{Path: "src/main.py", Kind: snapshot.KindFile}},
				Files:        []stores.File{{Path: "src/main.py", Content: "pass\n"}},
			},
		},
	})
	require.NoError(t, err)
	return b
}

func serve(t *testing.T, s *Server, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := New(testBackend(t), Options{Token: "secret"})

	w := serve(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestAuth(t *testing.T) {
	s := New(testBackend(t), Options{Token: "secret"})

	w := serve(t, s, http.MethodGet, workPath, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(t, s, http.MethodGet, workPath, nil, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(t, s, http.MethodGet, workPath, nil, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	s := New(testBackend(t), Options{})

	w := serve(t, s, http.MethodGet, "/health", nil, map[string]string{headerRequestID: "req-7"})
	assert.Equal(t, "req-7", w.Header().Get(headerRequestID))
}

func TestRoutes(t *testing.T) {
	s := New(testBackend(t), Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "first", method: http.MethodGet, path: "/classrooms/1/assignments/2/works/first", status: http.StatusOK},
		{name: "first unknown assignment", method: http.MethodGet, path: "/classrooms/1/assignments/9/works/first", status: http.StatusNotFound},
		{name: "submission", method: http.MethodGet, path: workPath, status: http.StatusOK},
		{name: "submission unknown", method: http.MethodGet, path: "/classrooms/1/assignments/2/works/99", status: http.StatusNotFound},
		{name: "bad id", method: http.MethodGet, path: "/classrooms/1/assignments/2/works/abc", status: http.StatusBadRequest},
		{name: "tree", method: http.MethodGet, path: workPath + "/tree", status: http.StatusOK},
		{name: "file", method: http.MethodGet, path: workPath + "/file?path=src/main.py", status: http.StatusOK},
		{name: "file without path", method: http.MethodGet, path: workPath + "/file", status: http.StatusBadRequest},
		{name: "file unknown", method: http.MethodGet, path: workPath + "/file?path=nope.py", status: http.StatusNotFound},
		{name: "feedback", method: http.MethodGet, path: workPath + "/feedback", status: http.StatusOK},
		{name: "unknown action", method: http.MethodPost, path: workPath + "/feedback",
			body: map[string]any{"action": "PUBLISH"}, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: workPath + "/feedback",
			body: map[string]any{"action": "CREATE", "color": "red"}, status: http.StatusBadRequest},
		{name: "invalid create", method: http.MethodPost, path: workPath + "/feedback",
			body: backend.FeedbackAction{Action: feedback.ActionCreate, Path: "src/main.py", Line: 1}, status: http.StatusBadRequest},
		{name: "edit unknown comment", method: http.MethodPost, path: workPath + "/feedback",
			body: backend.FeedbackAction{Action: feedback.ActionEdit, FeedbackCommentID: 404, Body: "x"}, status: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: workPath, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, s, tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestFeedbackConflictOnDeleted(t *testing.T) {
	s := New(testBackend(t), Options{})

	w := serve(t, s, http.MethodPost, workPath+"/feedback", backend.FeedbackAction{
		Action: feedback.ActionCreate, Path: "src/main.py", Line: 2, Body: "why print?", Points: -1,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created backend.FeedbackComment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.FeedbackCommentID)

	del := backend.FeedbackAction{Action: feedback.ActionDelete, FeedbackCommentID: created.FeedbackCommentID}
	w = serve(t, s, http.MethodPost, workPath+"/feedback", del, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(t, s, http.MethodPost, workPath+"/feedback", del, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestZstdResponse(t *testing.T) {
	s := New(testBackend(t), Options{})

	w := serve(t, s, http.MethodGet, workPath+"/file?path=big.py", nil, map[string]string{"Accept-Encoding": "zstd"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, backend.EncodingZstd, w.Header().Get("Content-Encoding"))

	raw, err := compress.Decode(w.Body.Bytes())
	require.NoError(t, err)
	var resp backend.FileResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Len(t, resp.Lines, 200)

	w = serve(t, s, http.MethodGet, workPath+"/file?path=src/main.py", nil, map[string]string{"Accept-Encoding": "zstd"})
	assert.Empty(t, w.Header().Get("Content-Encoding"), "small bodies are sent as is")

	w = serve(t, s, http.MethodGet, workPath+"/file?path=big.py", nil, nil)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func newClient(t *testing.T, token string) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(New(testBackend(t), Options{Token: token}).Handler())
	t.Cleanup(srv.Close)

	c, err := backend.New(backend.Options{BaseURL: srv.URL, Token: token, Backoff: time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, "secret")
	key := snapshot.Key{ClassroomID: 1, AssignmentID: 2, SubmissionID: 10}

	require.NoError(t, c.Health(ctx))

	ref, err := c.FirstSubmission(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(10), ref.ID)
	assert.Equal(t, int64(11), ref.NextID)
	assert.Equal(t, []string{"ada"}, ref.Contributors)

	entries, err := c.Tree(ctx, key)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	content, err := c.FileContent(ctx, key, "src/main.py")
	require.NoError(t, err)
	assert.Equal(t, []string{"import os", "print(1)"}, content.Lines)
	assert.Equal(t, []int{0, 1}, content.Memo)

	big, err := c.FileContent(ctx, key, "big.py")
	require.NoError(t, err)
	assert.Len(t, big.Lines, 200)

	_, err = c.Submission(ctx, snapshot.Key{ClassroomID: 1, AssignmentID: 2, SubmissionID: 99})
	assert.ErrorIs(t, err, grading.ErrNotFound)

	created, err := c.SaveFeedback(ctx, key, feedback.ActionCreate, feedback.Snapshot{
		Path: "src/main.py", Line: 2, Body: "use logging", Points: -1, Author: "ta",
	})
	require.NoError(t, err)
	require.NotZero(t, created.Current.CommentID)

	edited, err := c.SaveFeedback(ctx, key, feedback.ActionEdit, feedback.Snapshot{
		CommentID: created.Current.CommentID, Path: "src/main.py", Line: 2, Body: "use the logging module", Points: -2, Author: "ta",
	})
	require.NoError(t, err)
	assert.Equal(t, created.Current.CommentID, edited.Current.CommentID)
	require.Len(t, edited.History, 1)
	assert.Equal(t, "use logging", edited.History[0].Body)

	records, err := c.ListFeedback(ctx, key)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "use the logging module", records[0].Current.Body)
}

func TestSessionOverHTTP(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, "")

	s, err := grading.NewSession(c, contentcache.New(contentcache.DefaultSubmissions), grading.Options{ClassroomID: 1, Author: "ta"})
	require.NoError(t, err)

	require.NoError(t, grading.Run(ctx, s, s.SelectAssignment(2)))
	fetches, err := s.SelectFile("src/main.py")
	require.NoError(t, err)
	require.NoError(t, grading.Run(ctx, s, fetches))

	v := s.View()
	require.Equal(t, grading.StatusReady, v.Status, v.Err)
	require.NotNil(t, v.File)
	assert.True(t, v.File.IsChanged(2))
	assert.False(t, v.File.IsChanged(1))

	_, fetches, err = s.AddFeedback(2, "nice", 1, 0)
	require.NoError(t, err)
	require.NoError(t, grading.Run(ctx, s, fetches))

	comments := s.Comments("src/main.py")
	require.Len(t, comments, 1)
	assert.True(t, comments[0].Persisted())

	require.NoError(t, grading.Run(ctx, s, s.NavigateNext()))
	assert.Equal(t, int64(11), s.Selection().SubmissionID)
	assert.Empty(t, s.Comments("src/main.py"))
}
