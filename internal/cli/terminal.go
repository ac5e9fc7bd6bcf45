package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/bastiangx/dixserve/pkg/edit"
	"github.com/bastiangx/dixserve/pkg/server"
)

var (
	wordStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	headStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#b4637a", Dark: "#eb6f92"})
	dimStyle = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"})
)

func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

// printGuess shows which part of the word was matched and the entry it would get.
func printGuess(w io.Writer, word string, g *server.GuessInfo) {
	if g == nil {
		return
	}
	writeLine(w, "%s = %s + %s  (from %s)",
		wordStyle.Render(word),
		headStyle.Render(orDash(g.NewHead)),
		g.Matched,
		dimStyle.Render(g.Lemma))
	if g.OldHead != "" {
		writeLine(w, "  replaces %s", headStyle.Render(g.OldHead))
	}
	writeLine(w, "  %s", g.Entry)
}

func printGroups(w io.Writer, groups []edit.DuplicateGroup) {
	if len(groups) == 0 {
		writeLine(w, "%s", dimStyle.Render("no duplicate pardefs"))
		return
	}
	for i, g := range groups {
		writeLine(w, "%2d. [%s] %v", i+1, g.PType, g.Names)
	}
}

func printStats(w io.Writer, stats map[string]int, requests int) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		writeLine(w, "%-16s %10s", k, formatWithCommas(stats[k]))
	}
	writeLine(w, "%-16s %10s", "cliRequests", formatWithCommas(requests))
}

// formatWithCommas formats an integer with comma separators
func formatWithCommas(n int) string {
	str := strconv.Itoa(n)
	if n < 1000 {
		return str
	}
	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
