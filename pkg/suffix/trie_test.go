package suffix

import (
	"sort"
	"testing"
)

func TestInsertAndWalk(t *testing.T) {
	trie := New()
	words := map[string]string{
		"gruppe": "lø/e__n",
		"boble":  "bobl/e__n",
		"tabell": "tabell/0__n",
	}
	for lemma, par := range words {
		trie.Insert(Reverse(lemma), par)
	}

	for lemma, par := range words {
		node, ok := trie.Walk(Reverse(lemma))
		if !ok {
			t.Fatalf("Walk(%q) found nothing", lemma)
		}
		values := node.Values()
		if len(values) != 1 || values[0] != par {
			t.Errorf("Values at %q = %v, want [%s]", lemma, values, par)
		}
	}

	if _, ok := trie.Walk(Reverse("xyz")); ok {
		t.Error("Walk on an absent key should fail")
	}
	if trie.Keys() != 3 || trie.Len() != 3 {
		t.Errorf("Keys/Len = %d/%d, want 3/3", trie.Keys(), trie.Len())
	}
}

func TestInsertKeepsDuplicates(t *testing.T) {
	trie := New()
	trie.Insert("elbob", "a")
	trie.Insert("elbob", "a")
	trie.Insert("elbob", "b")

	node, _ := trie.Walk("elbob")
	got := node.Values()
	want := []string{"a", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if trie.Keys() != 1 || trie.Len() != 3 {
		t.Errorf("Keys/Len = %d/%d, want 1/3", trie.Keys(), trie.Len())
	}
}

func TestValuesAreCopies(t *testing.T) {
	trie := New()
	trie.Insert("k", "v")
	node, _ := trie.Walk("k")
	node.Values()[0] = "changed"

	if got := node.Values()[0]; got != "v" {
		t.Errorf("stored value was mutated through a returned slice: %q", got)
	}
}

func TestChildDescent(t *testing.T) {
	trie := New()
	trie.Insert(Reverse("øygruppe"), "x")

	node := trie.Root()
	for _, r := range Reverse("gruppe") {
		next, ok := node.Child(r)
		if !ok {
			t.Fatalf("no child %q below %q", r, node.Key())
		}
		node = next
	}
	if node.Key() != Reverse("gruppe") {
		t.Errorf("Key = %q", node.Key())
	}
	if _, ok := node.Child('q'); ok {
		t.Error("unexpected child 'q'")
	}
	if node.Values() != nil {
		t.Error("an inner node should carry no values")
	}

	// Multi-byte runes descend as one character.
	next, ok := node.Child('y')
	if !ok {
		t.Fatal("no child 'y'")
	}
	if _, ok := next.Child('ø'); !ok {
		t.Error("no child 'ø'")
	}
}

func TestCompletions(t *testing.T) {
	trie := New()
	for _, lemma := range []string{"gruppe", "suppe", "boble", "tabell"} {
		trie.Insert(Reverse(lemma), lemma)
	}

	node, ok := trie.Walk(Reverse("ppe"))
	if !ok {
		t.Fatal("no node for suffix ppe")
	}
	var got []string
	for _, c := range node.Completions("") {
		got = append(got, c.Values...)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "gruppe" || got[1] != "suppe" {
		t.Errorf("completions below -ppe = %v", got)
	}

	if n := len(trie.Root().Completions("l")); n != 1 {
		t.Errorf("completions with prefix l = %d, want 1", n)
	}

	visited := 0
	err := trie.Root().VisitCompletions("", func(Completion) bool {
		visited++
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 1 {
		t.Errorf("visit did not stop early: %d calls", visited)
	}
}

func TestReverse(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "cba"},
		{"øy", "yø"},
		{"take out", "tuo ekat"},
	}
	for _, tc := range testCases {
		if got := Reverse(tc.in); got != tc.want {
			t.Errorf("Reverse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
