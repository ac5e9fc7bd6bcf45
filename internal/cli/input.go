// Package cli handles cmd line input for guessing entries against one dictionary, for DBG and testing.
package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/dixserve/internal/utils"
	"github.com/bastiangx/dixserve/pkg/paradigm"
	"github.com/bastiangx/dixserve/pkg/server"
)

// InputHandler reads words from stdin and prints the entry guessed for each one from the open
// document. Lines starting with ':' change the settings:
//
//	:ptype vblex    guess against another paradigm type
//	:mode pardefs   switch between entries and pardefs mode
//	:dups           list duplicate pardefs
//	:stats          show cache counters
type InputHandler struct {
	session      *server.Session
	doc          string
	ptype        string
	mode         paradigm.Mode
	requestCount int
	out          io.Writer
}

// NewInputHandler handles initialization of the InputHandler for an already opened document.
func NewInputHandler(session *server.Session, doc, ptype string, mode paradigm.Mode) *InputHandler {
	return &InputHandler{
		session: session,
		doc:     doc,
		ptype:   ptype,
		mode:    mode,
		out:     os.Stderr,
	}
}

// Start begins the interface loop on stdin. It returns nil at end of input.
func (h *InputHandler) Start(ctx context.Context) error {
	return h.Run(ctx, os.Stdin)
}

// Run reads lines from r until EOF or until ctx is done.
func (h *InputHandler) Run(ctx context.Context, r io.Reader) error {
	h.printf("DixServe CLI [BETA]")
	h.printf("type a word and press Enter to guess its entry (Ctrl+C to exit):")

	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		h.printf("[%s %s] > ", h.ptype, h.mode)
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			h.handleInput(ctx, line)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) server.Response {
	h.requestCount++
	if strings.HasPrefix(line, ":") {
		return h.handleCommand(ctx, line[1:])
	}

	if !utils.IsValidWord(line) {
		log.Errorf("Not a word: %q", line)
		return server.Response{Status: server.StatusError}
	}

	start := time.Now()
	resp := h.session.Handle(ctx, server.Request{
		ID:    "cli",
		Op:    "guess",
		Doc:   h.doc,
		PType: h.ptype,
		Mode:  h.mode.String(),
		Word:  line,
	})
	log.Debugf("Took [ %v ] for word '%s'", time.Since(start), line)

	switch resp.Status {
	case server.StatusOK:
		printGuess(h.out, line, resp.Guess)
	case server.StatusNoTemplate:
		log.Warnf("No template found for '%s' among %s paradigms", line, h.ptype)
	default:
		log.Errorf("Guess failed: %s", resp.Error)
	}
	return resp
}

func (h *InputHandler) handleCommand(ctx context.Context, cmd string) server.Response {
	name, arg, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "ptype":
		if arg == "" {
			log.Errorf("Usage: :ptype <type>")
			break
		}
		h.ptype = arg
		return server.Response{Status: server.StatusOK}
	case "mode":
		m, err := paradigm.ParseMode(arg)
		if err != nil {
			log.Errorf("%v", err)
			break
		}
		h.mode = m
		return server.Response{Status: server.StatusOK}
	case "dups":
		resp := h.session.Handle(ctx, server.Request{Op: "dup_pardefs", Doc: h.doc})
		printGroups(h.out, resp.Groups)
		return resp
	case "stats":
		resp := h.session.Handle(ctx, server.Request{Op: "health"})
		printStats(h.out, resp.Stats, h.requestCount)
		return resp
	default:
		log.Errorf("Unknown command: %s", name)
	}
	return server.Response{Status: server.StatusError}
}

func (h *InputHandler) printf(format string, args ...any) {
	writeLine(h.out, format, args...)
}
