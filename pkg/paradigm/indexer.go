package paradigm

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/dixserve/pkg/suffix"
)

// IIndexer defines what the server needs from a paradigm indexer
type IIndexer interface {
	// Index builds or fetches the trie for a paradigm type of a document
	Index(ctx context.Context, req Request) (*suffix.Trie, error)

	// Guess returns the best template for req.Word, false when there is none
	Guess(ctx context.Context, req Request) (Guess, bool, error)

	// Invalidate drops the cached indexes of a document after an edit; version is the document's new version
	Invalidate(docID string, version int)

	// Forget drops everything kept for a closed document
	Forget(docID string)

	Stats() map[string]int
}

// Request names one index and, for guesses, the word to place in it.
// Version is the document version Text was read at. Cursor -1 indexes the whole text.
type Request struct {
	DocID   string
	Version int
	Text    string
	Cursor  int
	PType   string
	Mode    Mode
	Force   bool
	Word    string
}

// Indexer ties BuildIndex to a Cache.
type Indexer struct {
	cache        *Cache
	minUnmatched int
}

func NewIndexer(cache *Cache, minUnmatched int) *Indexer {
	if cache == nil {
		cache = NewCache(DefaultMaxDocuments)
	}
	if minUnmatched < 0 {
		minUnmatched = DefaultMinUnmatched
	}
	return &Indexer{cache: cache, minUnmatched: minUnmatched}
}

func (ix *Indexer) Index(ctx context.Context, req Request) (*suffix.Trie, error) {
	return ix.cache.Index(ctx, req.DocID, req.Version, req.PType, req.Mode, req.Force, func(ctx context.Context) (*suffix.Trie, error) {
		return BuildIndex(ctx, req.Text, req.Cursor, req.PType, req.Mode)
	})
}

func (ix *Indexer) Guess(ctx context.Context, req Request) (Guess, bool, error) {
	trie, err := ix.Index(ctx, req)
	if err != nil {
		return Guess{}, false, err
	}
	g, ok := FindBestTemplate(trie, req.Word, req.Mode, ix.minUnmatched)
	if !ok {
		log.Debugf("No template for %q among __%s %s", req.Word, req.PType, req.Mode)
	}
	return g, ok, nil
}

func (ix *Indexer) Invalidate(docID string, version int) {
	ix.cache.Invalidate(docID, version)
}

func (ix *Indexer) Forget(docID string) {
	ix.cache.Forget(docID)
}

func (ix *Indexer) Stats() map[string]int {
	return ix.cache.Stats()
}
