package edit

import (
	"context"

	"github.com/bastiangx/dixserve/internal/utils"
	"github.com/bastiangx/dixserve/pkg/paradigm"
)

// GuessEntry guesses an entry for req.Word from the entries above req.Cursor and returns an edit that
// inserts it, indented like the cursor line, at the start of that line. ok is false when no template fits.
func GuessEntry(ctx context.Context, ix paradigm.IIndexer, req paradigm.Request) (e Edit, g paradigm.Guess, ok bool, err error) {
	if req.Cursor < 0 || req.Cursor > len(req.Text) {
		req.Cursor = len(req.Text)
	}
	g, ok, err = ix.Guess(ctx, req)
	if err != nil || !ok {
		return Edit{}, g, false, err
	}

	at := utils.LineStart(req.Text, req.Cursor)
	indent := utils.LineIndentation(req.Text, req.Cursor)
	return Edit{
		Start: at,
		End:   at,
		Text:  indent + g.Fill() + "\n",
		Point: at + len(indent),
	}, g, true, nil
}
