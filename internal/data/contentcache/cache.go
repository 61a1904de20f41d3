// Package contentcache keeps fetched file content per submission snapshot.
package contentcache

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/colonyops/grader/internal/core/logging"
	"github.com/colonyops/grader/internal/core/snapshot"
	"github.com/colonyops/grader/pkg/kv"
)

// DefaultSubmissions is the number of submission snapshots held when no
// limit is configured.
const DefaultSubmissions = 8

type files = kv.Store[string, snapshot.FileContent]

// Cache is a two-level store: snapshot key, then file path. It is safe for
// concurrent use.
type Cache struct {
	submissions *kv.Store[snapshot.Key, *files]
	hits        atomic.Int64
	misses      atomic.Int64
	logger      zerolog.Logger
}

// Stats reports cache effectiveness.
type Stats struct {
	Submissions int
	Hits        int64
	Misses      int64
}

// New creates a cache holding at most maxSubmissions snapshots. Writing a new
// snapshot past the limit drops the least recently written one.
func New(maxSubmissions int) *Cache {
	if maxSubmissions <= 0 {
		maxSubmissions = DefaultSubmissions
	}

	c := &Cache{logger: logging.Component("contentcache")}
	c.submissions = kv.New(
		kv.WithCapacity[snapshot.Key, *files](maxSubmissions),
		kv.WithEvictHook(func(k snapshot.Key, f *files) {
			c.logger.Debug().Stringer("key", k).Int("files", f.Len()).Msg("evicted snapshot")
		}),
	)
	return c
}

// Get returns cached content for a file of a snapshot.
func (c *Cache) Get(key snapshot.Key, path string) (snapshot.FileContent, bool) {
	f, ok := c.submissions.Get(key)
	if ok {
		var content snapshot.FileContent
		if content, ok = f.Get(path); ok {
			c.hits.Add(1)
			return content, true
		}
	}
	c.misses.Add(1)
	return snapshot.FileContent{}, false
}

// Put stores content for a file of a snapshot.
func (c *Cache) Put(key snapshot.Key, path string, content snapshot.FileContent) {
	f := c.submissions.Update(key, func(f *files, ok bool) *files {
		if ok {
			return f
		}
		return kv.New[string, snapshot.FileContent]()
	})
	f.Set(path, content)
}

// Invalidate drops every file of a snapshot.
func (c *Cache) Invalidate(key snapshot.Key) {
	c.submissions.Delete(key)
}

// Stats returns counters since the cache was created.
func (c *Cache) Stats() Stats {
	return Stats{
		Submissions: c.submissions.Len(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
	}
}
