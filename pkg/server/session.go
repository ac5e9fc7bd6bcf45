package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/dixserve/internal/logger"
	"github.com/bastiangx/dixserve/internal/utils"
	"github.com/bastiangx/dixserve/pkg/config"
	"github.com/bastiangx/dixserve/pkg/dictionary"
	"github.com/bastiangx/dixserve/pkg/edit"
	"github.com/bastiangx/dixserve/pkg/nav"
	"github.com/bastiangx/dixserve/pkg/paradigm"
	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

var (
	errBadRequest = errors.New("bad request")
	errUnknownDoc = errors.New("unknown document")
)

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Session holds the open documents and their paradigm indexes. It is shared by the IPC loop and the
// HTTP handlers.
type Session struct {
	cfg     *config.Config
	table   *nav.Table
	indexer paradigm.IIndexer
	log     *log.Logger

	mu   sync.RWMutex
	docs map[string]*dictionary.Document
	// last version of every id ever opened, so a reopened id never repeats one
	versions map[string]int
}

func NewSession(cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cache := paradigm.NewCache(cfg.Index.MaxDocuments)
	return &Session{
		cfg:      cfg,
		table:    cfg.Table(),
		indexer:  paradigm.NewIndexer(cache, cfg.Index.MinUnmatched),
		log:      logger.New("session"),
		docs:     make(map[string]*dictionary.Document),
		versions: make(map[string]int),
	}
}

// Open registers a document. With a path and no text the file is loaded from disk. An id already in
// use is replaced.
func (s *Session) Open(id, path, text string) (*dictionary.Document, error) {
	var doc *dictionary.Document
	if path != "" && text == "" {
		var err error
		doc, err = dictionary.Load(path, int64(s.cfg.Server.MaxFileBytes))
		if err != nil {
			return nil, err
		}
	} else {
		doc = dictionary.NewDocument(path, text)
	}
	if id != "" {
		doc.ID = id
	}

	s.mu.Lock()
	if prev, ok := s.versions[doc.ID]; ok {
		doc.Rebase(prev + 1)
	}
	s.docs[doc.ID] = doc
	s.versions[doc.ID] = doc.Version()
	s.mu.Unlock()
	s.indexer.Invalidate(doc.ID, doc.Version())

	s.log.Debug("opened", "doc", doc.ID, "kind", doc.Kind, "bytes", len(doc.Text()))
	return doc, nil
}

func (s *Session) Doc(id string) (*dictionary.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errUnknownDoc, id)
	}
	return doc, nil
}

func (s *Session) Close(id string) error {
	s.mu.Lock()
	doc, ok := s.docs[id]
	if ok {
		s.versions[id] = doc.Version()
	}
	delete(s.docs, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownDoc, id)
	}
	s.indexer.Forget(id)
	return nil
}

func (s *Session) Stats() map[string]int {
	s.mu.RLock()
	n := len(s.docs)
	s.mu.RUnlock()

	stats := s.indexer.Stats()
	stats["openDocuments"] = n
	return stats
}

// Handle runs one request. Failures are reported in the response, never as a Go error.
func (s *Session) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	resp, err := s.dispatch(ctx, req)
	if err != nil {
		resp = Response{Status: StatusError, Error: err.Error(), Code: errorCode(err)}
		s.log.Debug("request failed", "op", req.Op, "err", err)
	}
	resp.ID = req.ID
	resp.TimeTaken = time.Since(start).Microseconds()
	return resp
}

func (s *Session) dispatch(ctx context.Context, req Request) (Response, error) {
	switch req.Op {
	case "health":
		return Response{Status: StatusOK, Stats: s.Stats()}, nil
	case "open":
		doc, err := s.Open(req.Doc, req.Path, req.Text)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: StatusOK, Doc: doc.ID, Kind: doc.Kind.String()}, nil
	case "":
		return Response{}, badRequest("missing op")
	}

	doc, err := s.Doc(req.Doc)
	if err != nil {
		return Response{}, err
	}

	switch req.Op {
	case "update":
		v := doc.Update(req.Text)
		s.mu.Lock()
		s.versions[doc.ID] = max(s.versions[doc.ID], v)
		s.mu.Unlock()
		s.indexer.Invalidate(doc.ID, v)
		return Response{Status: StatusOK, Doc: doc.ID, Version: v}, nil
	case "close":
		if err := s.Close(doc.ID); err != nil {
			return Response{}, err
		}
		return Response{Status: StatusOK, Doc: doc.ID}, nil
	case "enclosing":
		return s.enclosing(doc, req)
	case "next":
		w := nav.NewWalker(s.cursor(doc), s.table, s.cfg.Nav.MaxSteps)
		pos, err := w.MoveBy(req.offset(), req.Steps)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: StatusOK, Offset: &pos}, nil
	case "index":
		preq, err := s.paradigmRequest(doc, req, false)
		if err != nil {
			return Response{}, err
		}
		trie, err := s.indexer.Index(ctx, preq)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: StatusOK, Keys: trie.Keys(), Values: trie.Len()}, nil
	case "guess":
		preq, err := s.paradigmRequest(doc, req, true)
		if err != nil {
			return Response{}, err
		}
		g, ok, err := s.indexer.Guess(ctx, preq)
		if err != nil {
			return Response{}, err
		}
		if !ok {
			return Response{Status: StatusNoTemplate}, nil
		}
		return Response{Status: StatusOK, Guess: guessInfo(g)}, nil
	case "guess_entry":
		preq, err := s.paradigmRequest(doc, req, true)
		if err != nil {
			return Response{}, err
		}
		e, g, ok, err := edit.GuessEntry(ctx, s.indexer, preq)
		if err != nil {
			return Response{}, err
		}
		if !ok {
			return Response{Status: StatusNoTemplate}, nil
		}
		return Response{Status: StatusOK, Guess: guessInfo(g), Edit: &e}, nil
	case "cycle_r":
		return editResponse(edit.CycleRestriction(s.cursor(doc), req.offset(), s.bound(req)))
	case "copy_r":
		dir, err := edit.ParseDirection(req.Dir)
		if err != nil {
			return Response{}, badRequest("%v", err)
		}
		return editResponse(edit.CopyWithRestriction(s.cursor(doc), req.offset(), dir, s.bound(req)))
	case "sort_pardef":
		return editResponse(edit.SortPardefEntries(s.cursor(doc), req.offset(), s.bound(req)))
	case "suffixes":
		name, text, err := edit.EnclosingPardef(s.cursor(doc), req.offset(), s.bound(req))
		if err != nil {
			return Response{}, err
		}
		return Response{Status: StatusOK, Name: name, Suffixes: edit.SortedSuffixList(text)}, nil
	case "dup_pardefs":
		return Response{Status: StatusOK, Groups: edit.FindDuplicatePardefs(doc.Text())}, nil
	}
	return Response{}, badRequest("unknown op %q", req.Op)
}

func (s *Session) enclosing(doc *dictionary.Document, req Request) (Response, error) {
	cur := s.cursor(doc)
	b := s.bound(req).WithBarrier(doc.Barrier())
	if req.Target == "" {
		name, err := nav.EnclosingElement(cur, req.offset(), b)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: StatusOK, Result: nav.Found.String(), Element: name}, nil
	}

	r, err := nav.FindEnclosing(cur, req.offset(), req.Target, b)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Status: StatusOK, Result: r.Kind.String(), Element: r.Name}
	if r.Kind != nav.HitBound {
		resp.Offset = &r.Offset
	}
	return resp, nil
}

func (s *Session) cursor(doc *dictionary.Document) xmlscan.Cursor {
	return doc.Cursor(s.cfg.Nav.LexWindow)
}

// bound prefers the request barrier, then the configured one. Operations add their own default
// barrier when both are empty.
func (s *Session) bound(req Request) nav.Bound {
	b := s.cfg.Bound()
	if req.Barrier != "" {
		b.Barrier = req.Barrier
	}
	return b
}

func (s *Session) paradigmRequest(doc *dictionary.Document, req Request, needWord bool) (paradigm.Request, error) {
	if req.PType == "" {
		return paradigm.Request{}, badRequest("missing ptype")
	}
	mode := s.cfg.Mode()
	if req.Mode != "" {
		m, err := paradigm.ParseMode(req.Mode)
		if err != nil {
			return paradigm.Request{}, badRequest("%v", err)
		}
		mode = m
	}
	if needWord && !utils.IsValidWord(req.Word) {
		return paradigm.Request{}, badRequest("invalid word %q", req.Word)
	}
	text, version := doc.Snapshot()
	// Without an offset the whole document is indexed; offset 0 indexes nothing.
	cursor := -1
	if req.Offset != nil {
		cursor = min(max(*req.Offset, 0), len(text))
	}
	return paradigm.Request{
		DocID:   doc.ID,
		Version: version,
		Text:    text,
		Cursor:  cursor,
		PType:   req.PType,
		Mode:    mode,
		Force:   req.Force,
		Word:    req.Word,
	}, nil
}

func guessInfo(g paradigm.Guess) *GuessInfo {
	return &GuessInfo{
		Matched:    g.Matched,
		MatchedLen: g.MatchedLen,
		NewHead:    g.NewHead,
		OldHead:    g.OldHead,
		Lemma:      g.Lemma,
		Template:   g.Template,
		Entry:      g.Fill(),
	}
}

func editResponse(e edit.Edit, err error) (Response, error) {
	if err != nil {
		return Response{}, err
	}
	return Response{Status: StatusOK, Edit: &e}, nil
}

// errorCode maps an error to the code reported to clients, using HTTP status numbers.
func errorCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, dictionary.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, errUnknownDoc):
		return http.StatusNotFound
	case errors.Is(err, nav.ErrBarrier), errors.Is(err, nav.ErrBoundedSearch),
		errors.Is(err, paradigm.ErrSuperseded), errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, xmlscan.ErrMalformed), errors.Is(err, xmlscan.ErrOutOfRange),
		errors.Is(err, nav.ErrStepLimit):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
