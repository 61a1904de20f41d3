package grading

import (
	"context"
	"fmt"
	"sync"

	"github.com/colonyops/grader/internal/core/feedback"
	"github.com/colonyops/grader/internal/core/snapshot"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeBackend struct {
	log *eventLog

	mu       sync.Mutex
	first    map[int64]int64
	subs     map[int64]snapshot.SubmissionRef
	trees    map[int64][]snapshot.Entry
	files    map[int64]map[string]snapshot.FileContent
	records  map[int64][]feedback.Record
	failures map[FetchKind]error
	nextID   int64
}

func newFakeBackend(log *eventLog) *fakeBackend {
	return &fakeBackend{
		log:      log,
		first:    map[int64]int64{},
		subs:     map[int64]snapshot.SubmissionRef{},
		trees:    map[int64][]snapshot.Entry{},
		files:    map[int64]map[string]snapshot.FileContent{},
		records:  map[int64][]feedback.Record{},
		failures: map[FetchKind]error{},
		nextID:   100,
	}
}

// chain registers submissions of assignment 7 linked in the given order.
func (b *fakeBackend) chain(ids ...int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, id := range ids {
		ref := snapshot.SubmissionRef{ID: id, AssignmentID: 7, RowNumber: i + 1, TotalCount: len(ids)}
		if i > 0 {
			ref.PreviousID = ids[i-1]
		}
		if i < len(ids)-1 {
			ref.NextID = ids[i+1]
		}
		b.subs[id] = ref
	}
	if len(ids) > 0 {
		b.first[7] = ids[0]
	}
}

func (b *fakeBackend) addFile(sub int64, entry snapshot.Entry, content snapshot.FileContent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trees[sub] = append(b.trees[sub], entry)
	if b.files[sub] == nil {
		b.files[sub] = map[string]snapshot.FileContent{}
	}
	b.files[sub][entry.Path] = content
}

func (b *fakeBackend) fail(kind FetchKind, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, kind)
		return
	}
	b.failures[kind] = err
}

func (b *fakeBackend) failure(kind FetchKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[kind]
}

func (b *fakeBackend) FirstSubmission(_ context.Context, _, assignmentID int64) (snapshot.SubmissionRef, error) {
	b.log.add("first %d", assignmentID)
	if err := b.failure(FetchFirstSubmission); err != nil {
		return snapshot.SubmissionRef{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.first[assignmentID]
	if !ok {
		return snapshot.SubmissionRef{}, fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
	}
	return b.subs[id], nil
}

func (b *fakeBackend) Submission(_ context.Context, key snapshot.Key) (snapshot.SubmissionRef, error) {
	b.log.add("submission %d", key.SubmissionID)
	if err := b.failure(FetchSubmission); err != nil {
		return snapshot.SubmissionRef{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	ref, ok := b.subs[key.SubmissionID]
	if !ok {
		return snapshot.SubmissionRef{}, ErrNotFound
	}
	return ref, nil
}

func (b *fakeBackend) Tree(_ context.Context, key snapshot.Key) ([]snapshot.Entry, error) {
	b.log.add("tree %d", key.SubmissionID)
	if err := b.failure(FetchTree); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]snapshot.Entry(nil), b.trees[key.SubmissionID]...), nil
}

func (b *fakeBackend) FileContent(_ context.Context, key snapshot.Key, path string) (snapshot.FileContent, error) {
	b.log.add("file %d %s", key.SubmissionID, path)
	if err := b.failure(FetchFile); err != nil {
		return snapshot.FileContent{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.files[key.SubmissionID][path]
	if !ok {
		return snapshot.FileContent{}, ErrNotFound
	}
	return c, nil
}

func (b *fakeBackend) ListFeedback(_ context.Context, key snapshot.Key) ([]feedback.Record, error) {
	b.log.add("feedback %d", key.SubmissionID)
	if err := b.failure(FetchFeedback); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]feedback.Record(nil), b.records[key.SubmissionID]...), nil
}

func (b *fakeBackend) SaveFeedback(_ context.Context, key snapshot.Key, action feedback.Action, s feedback.Snapshot) (feedback.Record, error) {
	b.log.add("save %s %d", action, key.SubmissionID)
	if err := b.failure(FetchSaveFeedback); err != nil {
		return feedback.Record{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	s.ID = ""
	if action == feedback.ActionCreate {
		b.nextID++
		s.CommentID = b.nextID
		r := feedback.Record{Current: s}
		b.records[key.SubmissionID] = append(b.records[key.SubmissionID], r)
		return r, nil
	}

	recs := b.records[key.SubmissionID]
	for i, r := range recs {
		if r.Current.CommentID != s.CommentID {
			continue
		}
		if action == feedback.ActionDelete {
			s.Deleted = true
		}
		next := feedback.Record{Current: s, History: append([]feedback.Snapshot{r.Current}, r.History...)}
		recs[i] = next
		return next, nil
	}
	return feedback.Record{}, ErrNotFound
}

type fakeCache struct {
	log     *eventLog
	mu      sync.Mutex
	entries map[snapshot.Key]map[string]snapshot.FileContent
}

func newFakeCache(log *eventLog) *fakeCache {
	return &fakeCache{log: log, entries: map[snapshot.Key]map[string]snapshot.FileContent{}}
}

func (c *fakeCache) Get(key snapshot.Key, path string) (snapshot.FileContent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key][path]
	return v, ok
}

func (c *fakeCache) Put(key snapshot.Key, path string, content snapshot.FileContent) {
	c.log.add("put %d %s", key.SubmissionID, path)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] == nil {
		c.entries[key] = map[string]snapshot.FileContent{}
	}
	c.entries[key][path] = content
}

func (c *fakeCache) Invalidate(key snapshot.Key) {
	c.log.add("invalidate %d", key.SubmissionID)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
