// Package paradigm indexes dictionary entries by reversed lemma, grouped by paradigm type, and uses the
// index to guess a paradigm or a whole entry template for a new word.
//
// Index builds read the text with regular expressions rather than the token scanner: they run over
// everything above the cursor and only need lm, par and <i> per entry.
package paradigm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/dixserve/pkg/suffix"
)

// Mode selects what an index stores for each lemma.
type Mode uint8

const (
	// ModeEntries stores the verbatim entry text, used as a fill-in skeleton.
	ModeEntries Mode = iota
	// ModePardefs stores only the paradigm name.
	ModePardefs
)

func (m Mode) String() string {
	if m == ModePardefs {
		return "pardefs"
	}
	return "entries"
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "entries", "entry":
		return ModeEntries, nil
	case "pardefs", "pardef":
		return ModePardefs, nil
	}
	return ModeEntries, fmt.Errorf("unknown index mode %q", s)
}

var (
	entryRe = regexp.MustCompile(`(?s)<e[\s>].*?</e>`)
	lemmaRe = regexp.MustCompile(`\slm="([^"]*)"`)
	parRe   = regexp.MustCompile(`<par\s+n="([^"]*)"`)
	stemRe  = regexp.MustCompile(`(?s)<i>(.*?)</i>`)
	blankRe = regexp.MustCompile(`<b\s*/>`)
)

// entries scanned between context checks
const cancelCheckEvery = 512

// BuildIndex scans text[:cursor] for entries whose paradigm name ends in "__"+ptype and indexes them
// under their reversed lemma. Entries below the cursor are ignored. A cursor outside the text means
// the whole text.
func BuildIndex(ctx context.Context, text string, cursor int, ptype string, mode Mode) (*suffix.Trie, error) {
	if cursor < 0 || cursor > len(text) {
		cursor = len(text)
	}
	region := text[:cursor]
	tag := "__" + ptype
	trie := suffix.New()

	scanned := 0
	for pos := 0; pos < len(region); {
		loc := entryRe.FindStringIndex(region[pos:])
		if loc == nil {
			break
		}
		entry := region[pos+loc[0] : pos+loc[1]]
		pos += loc[1]

		scanned++
		if scanned%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		par := parRe.FindStringSubmatch(entry)
		if par == nil || !strings.HasSuffix(par[1], tag) {
			continue
		}
		lm := lemmaRe.FindStringSubmatch(entry)
		if lm == nil || lm[1] == "" {
			continue
		}
		value := entry
		if mode == ModePardefs {
			value = par[1]
		}
		trie.Insert(suffix.Reverse(lm[1]), value)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log.Debugf("Indexed %d %s values for __%s over %d entries", trie.Len(), mode, ptype, scanned)
	return trie, nil
}

// stemOf returns the <i> content of an entry with <b/> read as a space. Entries without <i> have an
// empty stem.
func stemOf(entry string) string {
	m := stemRe.FindStringSubmatch(entry)
	if m == nil {
		return ""
	}
	return blankRe.ReplaceAllString(m[1], " ")
}
