package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/dixserve/internal/logger"
	"github.com/bastiangx/dixserve/pkg/config"
)

const nouns = "<section id=\"main\" type=\"standard\">\n" +
	"  <e lm=\"gruppe\"><i>grupp</i><par n=\"lø/e__n\"/></e>\n" +
	"  <e lm=\"boble\"><i>bobl</i><par n=\"bobl/e__n\"/></e>\n" +
	"  \n" +
	"</section>"

func open(t *testing.T, s *Session, text string) string {
	t.Helper()
	resp := s.Handle(context.Background(), Request{ID: "open", Op: "open", Text: text})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	require.NotEmpty(t, resp.Doc)
	return resp.Doc
}

func at(offset int) *int {
	return &offset
}

func TestSessionGuess(t *testing.T) {
	s := NewSession(nil)
	doc := open(t, s, nouns)

	resp := s.Handle(context.Background(), Request{ID: "g", Op: "guess", Doc: doc, PType: "n", Word: "øygruppe"})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, "g", resp.ID)
	require.NotNil(t, resp.Guess)
	assert.Equal(t, "gruppe", resp.Guess.Matched)
	assert.Equal(t, "øy", resp.Guess.NewHead)
	assert.Equal(t, `<e lm="øygruppe"><i>øygrupp</i><par n="lø/e__n"/></e>`, resp.Guess.Entry)

	resp = s.Handle(context.Background(), Request{Op: "guess", Doc: doc, PType: "n", Word: "katt"})
	assert.Equal(t, StatusNoTemplate, resp.Status)

	resp = s.Handle(context.Background(), Request{Op: "health"})
	assert.Equal(t, 1, resp.Stats["openDocuments"])
	assert.Equal(t, 1, resp.Stats["builds"])
}

func TestSessionGuessEntry(t *testing.T) {
	s := NewSession(nil)
	doc := open(t, s, nouns)
	cursor := strings.Index(nouns, "  \n</section>") + 2

	resp := s.Handle(context.Background(), Request{Op: "guess_entry", Doc: doc, Offset: at(cursor), PType: "n", Word: "sykle"})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	require.NotNil(t, resp.Edit)

	got, err := resp.Edit.Apply(nouns)
	require.NoError(t, err)
	assert.Contains(t, got, "\n  <e lm=\"sykle\"><i>sykl</i><par n=\"bobl/e__n\"/></e>\n")
}

func TestSessionUpdateInvalidates(t *testing.T) {
	s := NewSession(nil)
	doc := open(t, s, nouns)

	resp := s.Handle(context.Background(), Request{Op: "guess", Doc: doc, PType: "n", Word: "husbåt"})
	assert.Equal(t, StatusNoTemplate, resp.Status)

	text := strings.Replace(nouns, "  \n", "  <e lm=\"båt\"><i>båt</i><par n=\"båt__n\"/></e>\n", 1)
	resp = s.Handle(context.Background(), Request{Op: "update", Doc: doc, Text: text})
	require.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, 1, resp.Version)

	resp = s.Handle(context.Background(), Request{Op: "guess", Doc: doc, PType: "n", Word: "husbåt"})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, "båt", resp.Guess.Matched)
}

func TestSessionGuessCursor(t *testing.T) {
	s := NewSession(nil)
	doc := open(t, s, nouns)

	resp := s.Handle(context.Background(), Request{Op: "index", Doc: doc, PType: "n", Offset: at(0)})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Zero(t, resp.Values, "nothing above offset 0")

	resp = s.Handle(context.Background(), Request{Op: "guess", Doc: doc, PType: "n", Word: "øygruppe", Offset: at(0)})
	assert.Equal(t, StatusNoTemplate, resp.Status)

	resp = s.Handle(context.Background(), Request{Op: "index", Doc: doc, PType: "n", Force: true})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, 2, resp.Values, "no offset indexes the whole document")
}

func TestSessionReopenKeepsVersionsIncreasing(t *testing.T) {
	s := NewSession(nil)
	_, err := s.Open("d", "", nouns)
	require.NoError(t, err)

	resp := s.Handle(context.Background(), Request{Op: "update", Doc: "d", Text: nouns})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, 1, resp.Version)
	require.NoError(t, s.Close("d"))

	doc, err := s.Open("d", "", nouns)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version())

	resp = s.Handle(context.Background(), Request{Op: "guess", Doc: "d", PType: "n", Word: "øygruppe"})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	resp = s.Handle(context.Background(), Request{Op: "guess", Doc: "d", PType: "n", Word: "øygruppe"})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, 1, s.Stats()["builds"])
	assert.Equal(t, 1, s.Stats()["hits"])
}

func TestSessionEnclosing(t *testing.T) {
	s := NewSession(nil)
	doc := open(t, s, nouns)
	offset := strings.Index(nouns, "<i>grupp") + 1

	resp := s.Handle(context.Background(), Request{Op: "enclosing", Doc: doc, Offset: at(offset), Target: "e"})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, "found", resp.Result)
	require.NotNil(t, resp.Offset)
	assert.Equal(t, strings.Index(nouns, `<e lm="gruppe"`), *resp.Offset)

	resp = s.Handle(context.Background(), Request{Op: "enclosing", Doc: doc, Offset: at(offset)})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, "i", resp.Element)
}

func TestSessionErrors(t *testing.T) {
	s := NewSession(nil)
	doc := open(t, s, `<section><e lm="a"><i>a</p></e></section>`)

	tests := []struct {
		name string
		req  Request
		code int
	}{
		{"unknown doc", Request{Op: "guess", Doc: "nope", PType: "n", Word: "a"}, http.StatusNotFound},
		{"unknown op", Request{Op: "frobnicate", Doc: doc}, http.StatusBadRequest},
		{"missing op", Request{Doc: doc}, http.StatusBadRequest},
		{"missing word", Request{Op: "guess", Doc: doc, PType: "n"}, http.StatusBadRequest},
		{"missing ptype", Request{Op: "index", Doc: doc}, http.StatusBadRequest},
		{"bad direction", Request{Op: "copy_r", Doc: doc, Dir: "up"}, http.StatusBadRequest},
		{"malformed", Request{Op: "copy_r", Doc: doc, Offset: at(12), Dir: "LR"}, http.StatusUnprocessableEntity},
		{"closed twice", Request{Op: "close", Doc: "gone"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.Handle(context.Background(), tt.req)
			assert.Equal(t, StatusError, resp.Status)
			assert.Equal(t, tt.code, resp.Code, resp.Error)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestSessionPardefOps(t *testing.T) {
	text := `<pardefs>
<pardef n="a/e__n"><e><p><l>er</l><r>e<s n="pl"/></r></p></e><e><p><l>e</l><r>e<s n="sg"/></r></p></e></pardef>
<pardef n="b/e__n"><e><p><l>e</l><r>e<s n="sg"/></r></p></e><e><p><l>er</l><r>e<s n="pl"/></r></p></e></pardef>
</pardefs>`
	s := NewSession(nil)
	doc := open(t, s, text)

	resp := s.Handle(context.Background(), Request{Op: "suffixes", Doc: doc, Offset: at(strings.Index(text, "<l>er"))})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	assert.Equal(t, "a/e__n", resp.Name)
	assert.Equal(t, []string{"e", "er"}, resp.Suffixes)

	resp = s.Handle(context.Background(), Request{Op: "dup_pardefs", Doc: doc})
	require.Len(t, resp.Groups, 1)
	assert.Equal(t, []string{"a/e__n", "b/e__n"}, resp.Groups[0].Names)

	resp = s.Handle(context.Background(), Request{Op: "sort_pardef", Doc: doc, Offset: at(strings.Index(text, "a/e__n"))})
	require.Equal(t, StatusOK, resp.Status, resp.Error)
	got, err := resp.Edit.Apply(text)
	require.NoError(t, err)
	assert.Contains(t, got, `<pardef n="a/e__n"><e><p><l>er</l><r>e<s n="pl"/></r></p></e><e><p><l>e</l><r>e<s n="sg"/></r></p></e></pardef>`)
}

func decodeAll(t *testing.T, r io.Reader) []Response {
	t.Helper()
	dec := msgpack.NewDecoder(r)
	var out []Response
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			if errors.Is(err, io.EOF) {
				return out
			}
			require.NoError(t, err)
		}
		out = append(out, resp)
	}
}

func TestServerIPC(t *testing.T) {
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	require.NoError(t, enc.Encode(Request{ID: "1", Op: "open", Doc: "d", Text: nouns}))
	require.NoError(t, enc.Encode(Request{ID: "2", Op: "guess", Doc: "d", PType: "n", Word: "øygruppe"}))
	require.NoError(t, enc.Encode(Request{ID: "3", Op: "close", Doc: "d"}))
	require.NoError(t, enc.Encode(Request{ID: "4", Op: "guess", Doc: "d", PType: "n", Word: "øygruppe"}))

	var out bytes.Buffer
	srv := NewServerIO(NewSession(nil), &in, &out)
	require.NoError(t, srv.Start(context.Background()))

	resps := decodeAll(t, &out)
	require.Len(t, resps, 5)
	assert.Equal(t, StatusReady, resps[0].Status)
	assert.Equal(t, "d", resps[1].Doc)
	assert.Equal(t, "2", resps[2].ID)
	require.NotNil(t, resps[2].Guess)
	assert.Equal(t, "gruppe", resps[2].Guess.Matched)
	assert.Equal(t, StatusOK, resps[3].Status)
	assert.Equal(t, http.StatusNotFound, resps[4].Code)
}

func TestServerIPCGarbage(t *testing.T) {
	var out bytes.Buffer
	srv := NewServerIO(NewSession(nil), bytes.NewReader([]byte{0xc1}), &out)
	assert.Error(t, srv.Start(context.Background()))

	resps := decodeAll(t, &out)
	require.Len(t, resps, 2)
	assert.Equal(t, http.StatusBadRequest, resps[1].Code)
}

func post(t *testing.T, url string, req Request) (int, Response) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()

	var resp Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	return res.StatusCode, resp
}

func TestHTTPServer(t *testing.T) {
	cfg := config.DefaultConfig()
	h := NewHTTPServer(NewSession(cfg), logger.NewTo(io.Discard, "http"), 1<<10)
	ts := httptest.NewServer(h)
	defer ts.Close()

	code, resp := post(t, ts.URL+"/api/open", Request{Text: nouns})
	require.Equal(t, http.StatusOK, code, resp.Error)
	doc := resp.Doc

	code, resp = post(t, ts.URL+"/api/guess", Request{Doc: doc, PType: "n", Word: "øygruppe"})
	require.Equal(t, http.StatusOK, code, resp.Error)
	assert.Equal(t, "øy", resp.Guess.NewHead)
	assert.NotEmpty(t, resp.ID, "request id is filled in")

	code, resp = post(t, ts.URL+"/api/guess", Request{Doc: "missing", PType: "n", Word: "a"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, StatusError, resp.Status)

	code, _ = post(t, ts.URL+"/api/open", Request{Text: strings.Repeat("x", 2<<10)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)

	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
