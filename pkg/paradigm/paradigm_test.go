package paradigm

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/dixserve/pkg/suffix"
)

const nouns = `<section id="main" type="standard">
<e lm="gruppe"><i>grupp</i><par n="lø/e__n"/></e>
<e lm="boble"><i>bobl</i><par n="bobl/e__n"/></e>
<e lm="gå"><i>gå</i><par n="gå__vblex"/></e>
<e><i>lemmaless</i><par n="x__n"/></e>
<e lm="hus"><i>hus</i><par n="hus__n"/></e>
</section>`

func build(t *testing.T, text string, ptype string, mode Mode) *suffix.Trie {
	t.Helper()
	trie, err := BuildIndex(context.Background(), text, -1, ptype, mode)
	require.NoError(t, err)
	return trie
}

func TestBuildIndexFiltersByType(t *testing.T) {
	trie := build(t, nouns, "n", ModePardefs)
	assert.Equal(t, 3, trie.Len(), "only named __n entries with a lemma are indexed")

	node, ok := trie.Walk(suffix.Reverse("gruppe"))
	require.True(t, ok)
	assert.Equal(t, []string{"lø/e__n"}, node.Values())

	_, ok = trie.Walk(suffix.Reverse("gå"))
	assert.False(t, ok, "verbs are not in the noun index")

	verbs := build(t, nouns, "vblex", ModeEntries)
	node, ok = verbs.Walk(suffix.Reverse("gå"))
	require.True(t, ok)
	assert.Equal(t, []string{`<e lm="gå"><i>gå</i><par n="gå__vblex"/></e>`}, node.Values())
}

func TestBuildIndexStopsAtCursor(t *testing.T) {
	cursor := strings.Index(nouns, `<e lm="hus"`)
	trie, err := BuildIndex(context.Background(), nouns, cursor, "n", ModePardefs)
	require.NoError(t, err)

	_, ok := trie.Walk(suffix.Reverse("hus"))
	assert.False(t, ok, "entries below the cursor are not indexed")
	assert.Equal(t, 2, trie.Len())
}

func TestBuildIndexCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildIndex(ctx, nouns, -1, "n", ModeEntries)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGuessMatchesLongestSuffix(t *testing.T) {
	trie := build(t, nouns, "n", ModeEntries)

	g, ok := FindBestTemplate(trie, "øygruppe", ModeEntries, DefaultMinUnmatched)
	require.True(t, ok)
	assert.Equal(t, "gruppe", g.Matched)
	assert.Equal(t, 6, g.MatchedLen)
	assert.Equal(t, "øy", g.NewHead)
	assert.Equal(t, "", g.OldHead)
	assert.Equal(t, `<e lm="øygruppe"><i>øygrupp</i><par n="lø/e__n"/></e>`, g.Fill())
}

func TestGuessReplacesOldHead(t *testing.T) {
	trie := build(t, nouns, "n", ModeEntries)

	g, ok := FindBestTemplate(trie, "sykle", ModeEntries, DefaultMinUnmatched)
	require.True(t, ok)
	assert.Equal(t, "le", g.Matched)
	assert.Equal(t, "syk", g.NewHead)
	assert.Equal(t, "bob", g.OldHead)
	assert.Equal(t, "boble", g.Lemma)
	assert.Equal(t, `<e lm="sykle"><i>sykl</i><par n="bobl/e__n"/></e>`, g.Fill())
}

func TestGuessSkipsUnusableTemplates(t *testing.T) {
	text := `<e lm="boble"><i>xyz</i><par n="bobl/e__n"/></e>`

	_, ok := FindBestTemplate(build(t, text, "n", ModeEntries), "sykle", ModeEntries, DefaultMinUnmatched)
	assert.False(t, ok, "a stem that does not start with the replaced head cannot be filled")

	g, ok := FindBestTemplate(build(t, text, "n", ModePardefs), "sykle", ModePardefs, DefaultMinUnmatched)
	require.True(t, ok, "paradigm names need no stem check")
	assert.Equal(t, `<e lm="sykle"><i>sykl</i><par n="bobl/e__n"/></e>`, g.Fill())
}

func TestGuessRegexCharactersAreLiteral(t *testing.T) {
	text := `<e lm="a.bcd"><i>axbc</i><par n="x/d__n"/></e>
<e lm="a.bcd"><i>a.bc</i><par n="y/d__n"/></e>`
	trie := build(t, text, "n", ModeEntries)

	g, ok := FindBestTemplate(trie, "zzbcd", ModeEntries, DefaultMinUnmatched)
	require.True(t, ok)
	assert.Equal(t, "a.", g.OldHead)
	assert.Equal(t, `<e lm="zzbcd"><i>zzbc</i><par n="y/d__n"/></e>`, g.Fill(), "'.' in the old head does not match 'x'")
}

func TestGuessNoTemplate(t *testing.T) {
	trie := build(t, nouns, "n", ModeEntries)

	_, ok := FindBestTemplate(trie, "katt", ModeEntries, DefaultMinUnmatched)
	assert.False(t, ok)

	_, ok = FindBestTemplate(trie, "pe", ModeEntries, DefaultMinUnmatched)
	assert.False(t, ok, "the unmatched minimum leaves nothing to match")

	_, ok = FindBestTemplate(nil, "gruppe", ModeEntries, DefaultMinUnmatched)
	assert.False(t, ok)
}

func TestFillKeepsBlanks(t *testing.T) {
	text := `<e lm="take out"><i>take<b/>out</i><par n="x__vblex"/></e>`
	trie := build(t, text, "vblex", ModeEntries)

	g, ok := FindBestTemplate(trie, "make out", ModeEntries, DefaultMinUnmatched)
	require.True(t, ok)
	assert.Equal(t, "ke out", g.Matched)
	assert.Equal(t, "ma", g.NewHead)
	assert.Equal(t, "ta", g.OldHead)
	assert.Equal(t, `<e lm="make out"><i>make<b/>out</i><par n="x__vblex"/></e>`, g.Fill())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("pardefs")
	require.NoError(t, err)
	assert.Equal(t, ModePardefs, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeEntries, m)

	_, err = ParseMode("lemmas")
	assert.Error(t, err)
}

func countingBuild(calls *int, text string) BuildFunc {
	return func(ctx context.Context) (*suffix.Trie, error) {
		*calls++
		return BuildIndex(ctx, text, -1, "n", ModeEntries)
	}
}

func TestCacheReturnsSameHandle(t *testing.T) {
	c := NewCache(4)
	ctx := context.Background()
	calls := 0

	first, err := c.Index(ctx, "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	second, err := c.Index(ctx, "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	fresh, err := c.Index(ctx, "doc", 0, "n", ModeEntries, true, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, first.Len(), fresh.Len())
	assert.Equal(t, first.Keys(), fresh.Keys())
	assert.Equal(t, 2, calls)

	again, err := c.Index(ctx, "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.Same(t, fresh, again, "a refresh replaces the cached trie")
}

func TestCacheKeys(t *testing.T) {
	c := NewCache(4)
	ctx := context.Background()
	calls := 0

	_, err := c.Index(ctx, "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	_, err = c.Index(ctx, "doc", 0, "n", ModePardefs, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	_, err = c.Index(ctx, "other", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, c.Stats()["documents"])
}

func TestCacheInvalidateAndEvict(t *testing.T) {
	c := NewCache(1)
	ctx := context.Background()
	calls := 0

	a, err := c.Index(ctx, "a", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	c.Invalidate("a", 0)
	a2, err := c.Index(ctx, "a", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.NotSame(t, a, a2)

	_, err = c.Index(ctx, "b", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	_, err = c.Index(ctx, "a", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.Equal(t, 4, calls, "a was evicted when b arrived")
}

func TestCacheNewerBuildSupersedes(t *testing.T) {
	c := NewCache(4)
	ctx := context.Background()
	started := make(chan struct{})

	var wg sync.WaitGroup
	var staleErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = c.Index(ctx, "doc", 0, "n", ModeEntries, false, func(ctx context.Context) (*suffix.Trie, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})
	}()

	<-started
	calls := 0
	fresh, err := c.Index(ctx, "doc", 0, "n", ModeEntries, true, countingBuild(&calls, nouns))
	require.NoError(t, err)
	wg.Wait()

	assert.ErrorIs(t, staleErr, ErrSuperseded)

	cached, err := c.Index(ctx, "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.Same(t, fresh, cached)
	assert.Equal(t, 1, calls)
}

func TestCacheIgnoresStaleVersion(t *testing.T) {
	c := NewCache(4)
	ctx := context.Background()
	calls := 0
	updated := strings.Replace(nouns, `<e lm="hus">`, `<e lm="sekk"><i>sekk</i><par n="sekk__n"/></e>
<e lm="hus">`, 1)

	old, err := c.Index(ctx, "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)

	// an edit lands while a request still holds the text of version 0
	c.Invalidate("doc", 1)
	stale, err := c.Index(ctx, "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	require.NoError(t, err)
	assert.NotSame(t, old, stale)
	assert.Equal(t, 1, c.Stats()["staleBuilds"])

	fresh, err := c.Index(ctx, "doc", 1, "n", ModeEntries, false, countingBuild(&calls, updated))
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh, "the stale trie was not cached")
	assert.Greater(t, fresh.Len(), old.Len())
	assert.Equal(t, 3, calls)

	again, err := c.Index(ctx, "doc", 1, "n", ModeEntries, false, countingBuild(&calls, updated))
	require.NoError(t, err)
	assert.Same(t, fresh, again)
}

func TestCacheBuildOutlivesCaller(t *testing.T) {
	c := NewCache(4)
	started, release := make(chan struct{}), make(chan struct{})

	ownerCtx, cancel := context.WithCancel(context.Background())
	ownerDone := make(chan error)
	go func() {
		_, err := c.Index(ownerCtx, "doc", 0, "n", ModeEntries, false, func(ctx context.Context) (*suffix.Trie, error) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return BuildIndex(ctx, nouns, -1, "n", ModeEntries)
		})
		ownerDone <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-ownerDone, context.Canceled)

	calls := 0
	var (
		wg      sync.WaitGroup
		joined  *suffix.Trie
		joinErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		joined, joinErr = c.Index(context.Background(), "doc", 0, "n", ModeEntries, false, countingBuild(&calls, nouns))
	}()
	close(release)
	wg.Wait()

	require.NoError(t, joinErr)
	require.NotNil(t, joined)
	assert.Equal(t, 0, calls, "the running build was joined, not restarted")
	assert.Equal(t, 1, c.Stats()["builds"])
}

func TestIndexerGuess(t *testing.T) {
	ix := NewIndexer(nil, DefaultMinUnmatched)
	req := Request{DocID: "doc", Text: nouns, Cursor: -1, PType: "n", Mode: ModeEntries, Word: "øygruppe"}

	g, ok, err := ix.Guess(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gruppe", g.Matched)

	req.Word = "katt"
	_, ok, err = ix.Guess(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, ix.Stats()["builds"])
}
