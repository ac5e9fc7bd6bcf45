/*
Package server exposes the navigation, indexing and editing operations of dixserve to editors.

The main transport is msgpack IPC over stdin/stdout: the editor spawns the process, writes a stream of
msgpack-encoded requests and reads one response per request, in order. The same requests can be posted as
JSON to the optional HTTP surface.

# IPC

Every request names an op and, except for open and health, the document it works on:

	{"id": "r1", "op": "open", "path": "apertium-nob.nob.dix"}
	{"id": "r2", "op": "guess", "doc": "6f1c...", "o": 10240, "ptype": "n", "w": "øygruppe"}

Responses echo the id and carry a status and the time taken in microseconds:

	{"id": "r1", "status": "ok", "doc": "6f1c...", "kind": "monodix", "t": 812}
	{"id": "r2", "status": "ok", "guess": {"matched": "gruppe", "new_head": "øy", ...}, "t": 95}

A guess that finds no template is not an error: the status is "no_template".

Editing ops never change the document. They return an edit, a replacement of [start, end) by text with
the cursor at point afterwards; the editor applies it and sends the new text back with an update op.

# Errors

Failed requests have status "error", a message and a code:

	400 bad request (unknown op, missing word, bad mode or direction)
	404 unknown document
	409 the walk hit its barrier or distance bound, or the index build was superseded
	422 the text around the offset is not well-formed

# Ops

	open, update, close          document lifecycle
	enclosing                    enclosing element, or the nearest ancestor named target
	next                         move by n interesting positions (negative n moves backward)
	index                        build or refresh the paradigm index for ptype
	guess, guess_entry           best template for a word, optionally as an insertion edit
	cycle_r, copy_r              restriction cycling and copy with restriction
	suffixes, dup_pardefs        suffix list of the pardef at point, duplicate pardefs
	sort_pardef                  sort the entries of the pardef at point
	health                       document and cache counters

index and guess read only the entries above the offset; without one they read the whole document.
*/
package server

import "github.com/bastiangx/dixserve/pkg/edit"

// Request is one IPC or HTTP request. Fields not used by an op are ignored.
type Request struct {
	ID      string `msgpack:"id" json:"id"`
	Op      string `msgpack:"op" json:"op"`
	Doc     string `msgpack:"doc,omitempty" json:"doc,omitempty"`
	Path    string `msgpack:"path,omitempty" json:"path,omitempty"`
	Text    string `msgpack:"text,omitempty" json:"text,omitempty"`
	Offset  *int   `msgpack:"o,omitempty" json:"offset,omitempty"`
	Steps   int    `msgpack:"n,omitempty" json:"steps,omitempty"`
	Target  string `msgpack:"target,omitempty" json:"target,omitempty"`
	Barrier string `msgpack:"barrier,omitempty" json:"barrier,omitempty"`
	PType   string `msgpack:"ptype,omitempty" json:"ptype,omitempty"`
	Mode    string `msgpack:"mode,omitempty" json:"mode,omitempty"`
	Word    string `msgpack:"w,omitempty" json:"word,omitempty"`
	Force   bool   `msgpack:"force,omitempty" json:"force,omitempty"`
	Dir     string `msgpack:"dir,omitempty" json:"dir,omitempty"`
}

// offset is the request offset, 0 when unset.
func (r Request) offset() int {
	if r.Offset == nil {
		return 0
	}
	return *r.Offset
}

const (
	StatusOK         = "ok"
	StatusReady      = "ready"
	StatusNoTemplate = "no_template"
	StatusError      = "error"
)

// Response answers one Request.
type Response struct {
	ID        string                `msgpack:"id" json:"id"`
	Status    string                `msgpack:"status" json:"status"`
	Error     string                `msgpack:"error,omitempty" json:"error,omitempty"`
	Code      int                   `msgpack:"code,omitempty" json:"code,omitempty"`
	Doc       string                `msgpack:"doc,omitempty" json:"doc,omitempty"`
	Kind      string                `msgpack:"kind,omitempty" json:"kind,omitempty"`
	Version   int                   `msgpack:"version,omitempty" json:"version,omitempty"`
	Result    string                `msgpack:"result,omitempty" json:"result,omitempty"`
	Element   string                `msgpack:"element,omitempty" json:"element,omitempty"`
	Offset    *int                  `msgpack:"o,omitempty" json:"offset,omitempty"`
	Keys      int                   `msgpack:"keys,omitempty" json:"keys,omitempty"`
	Values    int                   `msgpack:"values,omitempty" json:"values,omitempty"`
	Guess     *GuessInfo            `msgpack:"guess,omitempty" json:"guess,omitempty"`
	Edit      *edit.Edit            `msgpack:"edit,omitempty" json:"edit,omitempty"`
	Name      string                `msgpack:"name,omitempty" json:"name,omitempty"`
	Suffixes  []string              `msgpack:"suffixes,omitempty" json:"suffixes,omitempty"`
	Groups    []edit.DuplicateGroup `msgpack:"groups,omitempty" json:"groups,omitempty"`
	Stats     map[string]int        `msgpack:"stats,omitempty" json:"stats,omitempty"`
	TimeTaken int64                 `msgpack:"t" json:"time_us"`
}

// GuessInfo describes a template guess. Entry is the template filled in for the word.
type GuessInfo struct {
	Matched    string `msgpack:"matched" json:"matched"`
	MatchedLen int    `msgpack:"matched_len" json:"matched_len"`
	NewHead    string `msgpack:"new_head" json:"new_head"`
	OldHead    string `msgpack:"old_head" json:"old_head"`
	Lemma      string `msgpack:"lemma" json:"lemma"`
	Template   string `msgpack:"template" json:"template"`
	Entry      string `msgpack:"entry" json:"entry"`
}
