package paradigm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bastiangx/dixserve/pkg/suffix"
)

// DefaultMaxDocuments bounds how many documents keep their indexes in memory.
const DefaultMaxDocuments = 64

// ErrSuperseded is returned to the caller of a build that was cancelled by a newer request for the same index.
var ErrSuperseded = errors.New("index build superseded by a newer request")

// BuildFunc produces a fresh trie. It should honour ctx.
type BuildFunc func(ctx context.Context) (*suffix.Trie, error)

type indexKey struct {
	ptype string
	mode  Mode
}

type flight struct {
	done   chan struct{}
	cancel context.CancelFunc
	trie   *suffix.Trie
	err    error
}

// docIndex holds the tries of one document. A refresh replaces a whole trie, never part of one.
type docIndex struct {
	mu      sync.Mutex
	tries   map[indexKey]*suffix.Trie
	flights map[indexKey]*flight
}

func newDocIndex() *docIndex {
	return &docIndex{
		tries:   make(map[indexKey]*suffix.Trie),
		flights: make(map[indexKey]*flight),
	}
}

func (d *docIndex) cancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.flights {
		f.cancel()
	}
}

// Cache keeps paradigm tries per document, keyed by paradigm type and mode. Least recently used
// documents are dropped once MaxDocuments is exceeded.
// Each document also has a current version; only builds made from that version are stored.
type Cache struct {
	mu       sync.Mutex
	docs     *lru.Cache[string, *docIndex]
	versions map[string]int
	maxDocs  int

	hits   atomic.Int64
	builds atomic.Int64
	stale  atomic.Int64
}

func NewCache(maxDocs int) *Cache {
	if maxDocs <= 0 {
		maxDocs = DefaultMaxDocuments
	}
	docs, err := lru.NewWithEvict[string, *docIndex](maxDocs, func(id string, d *docIndex) {
		d.cancelAll()
		log.Debugf("Evicted paradigm indexes of document %s", id)
	})
	if err != nil {
		// only fails on a non-positive size
		panic(err)
	}
	return &Cache{docs: docs, versions: make(map[string]int), maxDocs: maxDocs}
}

// doc returns the indexes of id and its current version. The first version seen for an id becomes current.
func (c *Cache) doc(id string, version int) (*docIndex, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.versions[id]
	if !ok {
		c.versions[id] = version
		current = version
	}
	if d, ok := c.docs.Get(id); ok {
		return d, current
	}
	d := newDocIndex()
	c.docs.Add(id, d)
	return d, current
}

// Index returns the cached trie for (docID, ptype, mode), building it with build on a miss.
// Without force a cached trie is returned as is, and a build already running is waited on.
// With force any running build is cancelled and a fresh trie replaces the cached one.
// A request for another version than the document's current one is built for the caller alone and
// never stored.
func (c *Cache) Index(ctx context.Context, docID string, version int, ptype string, mode Mode, force bool, build BuildFunc) (*suffix.Trie, error) {
	d, current := c.doc(docID, version)
	if version != current {
		c.stale.Add(1)
		log.Debugf("Index of %s requested for version %d, current is %d: not caching", docID, version, current)
		return build(ctx)
	}
	k := indexKey{ptype: ptype, mode: mode}

	d.mu.Lock()
	if !force {
		if t, ok := d.tries[k]; ok {
			d.mu.Unlock()
			c.hits.Add(1)
			return t, nil
		}
		if f, ok := d.flights[k]; ok {
			d.mu.Unlock()
			t, err := f.wait(ctx)
			if errors.Is(err, ErrSuperseded) {
				// the build we waited on lost to a forced refresh or an edit; join whatever replaced it
				return c.Index(ctx, docID, version, ptype, mode, false, build)
			}
			return t, err
		}
	}
	if f, ok := d.flights[k]; ok {
		f.cancel()
	}
	// Detached from the first caller; only the flight's cancel stops the build.
	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{done: make(chan struct{}), cancel: cancel}
	d.flights[k] = f
	d.mu.Unlock()

	c.builds.Add(1)
	go func() {
		defer close(f.done)
		trie, err := build(bctx)
		cancel()

		d.mu.Lock()
		defer d.mu.Unlock()
		if errors.Is(err, context.Canceled) {
			err = ErrSuperseded
		}
		f.trie, f.err = trie, err
		if d.flights[k] == f {
			delete(d.flights, k)
			if err == nil {
				d.tries[k] = trie
			}
		}
	}()
	return f.wait(ctx)
}

func (f *flight) wait(ctx context.Context) (*suffix.Trie, error) {
	select {
	case <-f.done:
		if f.err != nil {
			return nil, f.err
		}
		return f.trie, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops every index of a document and cancels its running builds. version becomes current
// unless a newer one already is.
func (c *Cache) Invalidate(docID string, version int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.versions[docID]; !ok || version > current {
		c.versions[docID] = version
	}
	c.docs.Remove(docID)
}

// Forget drops a document entirely, version included.
func (c *Cache) Forget(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.versions, docID)
	c.docs.Remove(docID)
}

func (c *Cache) Stats() map[string]int {
	return map[string]int{
		"documents":    c.docs.Len(),
		"maxDocuments": c.maxDocs,
		"hits":         int(c.hits.Load()),
		"builds":       int(c.builds.Load()),
		"staleBuilds":  int(c.stale.Load()),
	}
}
