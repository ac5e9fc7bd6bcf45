// Package suffix is a reversed-key trie: keys are stored back to front, so words that share an ending share
// a path from the root and the longest common suffix of a new word is found in O(len(word)).
package suffix

import (
	"errors"
	"slices"

	"github.com/tchap/go-patricia/v2/patricia"
)

var errStopVisit = errors.New("stop visit")

// Trie maps keys to append-only lists of values. Inserting a key twice keeps both values.
type Trie struct {
	trie   *patricia.Trie
	keys   int
	values int
}

func New() *Trie {
	return &Trie{trie: patricia.NewTrie()}
}

// Insert appends value to the list stored at key.
func (t *Trie) Insert(key, value string) {
	k := patricia.Prefix(key)
	if item := t.trie.Get(k); item != nil {
		t.trie.Set(k, append(item.([]string), value))
	} else {
		t.trie.Insert(k, []string{value})
		t.keys++
	}
	t.values++
}

// Keys is the number of distinct keys.
func (t *Trie) Keys() int {
	return t.keys
}

// Len is the number of stored values.
func (t *Trie) Len() int {
	return t.values
}

func (t *Trie) Root() Node {
	return Node{trie: t}
}

// Walk descends from the root along key.
func (t *Trie) Walk(key string) (Node, bool) {
	if !t.trie.MatchSubtree(patricia.Prefix(key)) {
		return Node{}, false
	}
	return Node{trie: t, key: key}, true
}

// Node is a position in the trie: the path of characters walked from the root.
type Node struct {
	trie *Trie
	key  string
}

// Key is the path from the root to n.
func (n Node) Key() string {
	return n.key
}

// Child descends one character.
func (n Node) Child(r rune) (Node, bool) {
	if n.trie == nil {
		return Node{}, false
	}
	return n.trie.Walk(n.key + string(r))
}

// Values returns a copy of the values stored exactly at n.
func (n Node) Values() []string {
	if n.trie == nil {
		return nil
	}
	item := n.trie.trie.Get(patricia.Prefix(n.key))
	if item == nil {
		return nil
	}
	return slices.Clone(item.([]string))
}

// Completion is a full key reachable below a node together with its values.
type Completion struct {
	Key    string
	Values []string
}

// VisitCompletions calls fn for every key below n that starts with n's path followed by prefix,
// including n itself when it holds values. Returning false from fn stops the walk.
func (n Node) VisitCompletions(prefix string, fn func(Completion) bool) error {
	if n.trie == nil {
		return nil
	}
	err := n.trie.trie.VisitSubtree(patricia.Prefix(n.key+prefix), func(p patricia.Prefix, item patricia.Item) error {
		values, ok := item.([]string)
		if !ok {
			return nil
		}
		if !fn(Completion{Key: string(p), Values: slices.Clone(values)}) {
			return errStopVisit
		}
		return nil
	})
	if errors.Is(err, errStopVisit) {
		return nil
	}
	return err
}

// Completions collects every completion below n.
func (n Node) Completions(prefix string) []Completion {
	var out []Completion
	_ = n.VisitCompletions(prefix, func(c Completion) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Reverse reverses s by runes.
func Reverse(s string) string {
	r := []rune(s)
	slices.Reverse(r)
	return string(r)
}
