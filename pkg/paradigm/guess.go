package paradigm

import (
	"strings"

	"github.com/bastiangx/dixserve/pkg/suffix"
)

// DefaultMinUnmatched is how many leading characters of a word are never matched against the index.
// Without it one- and two-letter endings shared by most of a paradigm type decide every guess.
const DefaultMinUnmatched = 2

// Guess is the best template found for a word.
//
// The word is NewHead+Matched and the template lemma is OldHead+Matched. Filling the template swaps
// OldHead for NewHead in its stem.
type Guess struct {
	Mode       Mode
	Word       string
	Matched    string
	MatchedLen int
	NewHead    string
	OldHead    string
	Lemma      string
	Template   string
}

// FindBestTemplate walks the trie along the reversed word and returns the first usable template below
// the deepest node reached. It returns false when nothing fits, which is an ordinary outcome for the
// first word of a new paradigm.
func FindBestTemplate(trie *suffix.Trie, word string, mode Mode, minUnmatched int) (Guess, bool) {
	if trie == nil {
		return Guess{}, false
	}
	if minUnmatched < 0 {
		minUnmatched = DefaultMinUnmatched
	}

	runes := []rune(word)
	n := len(runes)
	node := trie.Root()
	consumed := 0
	for consumed < n && n-consumed > minUnmatched {
		child, ok := node.Child(runes[n-1-consumed])
		if !ok {
			break
		}
		node = child
		consumed++
	}
	if consumed == 0 {
		return Guess{}, false
	}

	newHead := string(runes[:n-consumed])
	matched := string(runes[n-consumed:])

	var best Guess
	found := false
	_ = node.VisitCompletions("", func(c suffix.Completion) bool {
		lemma := suffix.Reverse(c.Key)
		oldHead := strings.TrimSuffix(lemma, matched)
		for _, v := range c.Values {
			if mode == ModeEntries && !usable(v, oldHead) {
				continue
			}
			best = Guess{
				Mode:       mode,
				Word:       word,
				Matched:    matched,
				MatchedLen: consumed,
				NewHead:    newHead,
				OldHead:    oldHead,
				Lemma:      lemma,
				Template:   v,
			}
			found = true
			return false
		}
		return true
	})
	return best, found
}

// usable reports whether an entry's stem begins with the part of its lemma that will be replaced, i.e.
// whether the entry factors into that head plus an unchanged remainder. The comparison is literal.
func usable(entry, oldHead string) bool {
	return strings.HasPrefix(stemOf(entry), oldHead)
}

// Fill turns the template into an entry for the guessed word.
func (g Guess) Fill() string {
	if g.Mode == ModePardefs {
		return fillPardef(g.Word, g.Template)
	}

	entry := g.Template
	if loc := lemmaRe.FindStringSubmatchIndex(entry); loc != nil {
		entry = entry[:loc[2]] + escapeAttr(g.Word) + entry[loc[3]:]
	}

	stem := g.NewHead + strings.TrimPrefix(stemOf(entry), g.OldHead)
	if loc := stemRe.FindStringSubmatchIndex(entry); loc != nil {
		return entry[:loc[2]] + toMarkup(stem) + entry[loc[3]:]
	}
	if stem == "" {
		return entry
	}
	// no <i> in the template: the stem goes right after the start-tag
	if end := strings.IndexByte(entry, '>'); end >= 0 {
		return entry[:end+1] + "<i>" + toMarkup(stem) + "</i>" + entry[end+1:]
	}
	return entry
}

// fillPardef builds an entry from a paradigm name such as "lø/e__n", where the part between '/' and
// "__" is the ending the stem drops.
func fillPardef(word, name string) string {
	stem := word
	if slash := strings.IndexByte(name, '/'); slash >= 0 {
		ending := name[slash+1:]
		if us := strings.Index(ending, "__"); us >= 0 {
			ending = ending[:us]
		}
		stem = strings.TrimSuffix(word, ending)
	}
	return `<e lm="` + escapeAttr(word) + `"><i>` + toMarkup(stem) + `</i><par n="` + escapeAttr(name) + `"/></e>`
}

var (
	attrEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
	markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", " ", "<b/>")
)

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// toMarkup escapes text content and writes spaces as <b/>.
func toMarkup(s string) string {
	return markupEscaper.Replace(s)
}
