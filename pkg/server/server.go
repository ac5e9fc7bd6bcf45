package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles msgpack IPC for one editor over a reader/writer pair.
type Server struct {
	session *Session
	reader  *bufio.Reader
	writer  *bufio.Writer
	dec     *msgpack.Decoder
	enc     *msgpack.Encoder
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(session *Session) *Server {
	return NewServerIO(session, os.Stdin, os.Stdout)
}

func NewServerIO(session *Session, r io.Reader, w io.Writer) *Server {
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)
	return &Server{
		session: session,
		reader:  reader,
		writer:  writer,
		dec:     msgpack.NewDecoder(reader),
		enc:     msgpack.NewEncoder(writer),
	}
}

// Start sends a ready message and then answers requests until the input ends or ctx is done.
// Requests are handled one at a time, so responses come back in request order.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting IPC server.")

	s.sendResponse(Response{Status: StatusReady})

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				log.Debug("Client disconnected (EOF)")
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			s.sendError("Invalid msgpack request", http.StatusBadRequest)
			// The stream position is lost after a decode error.
			return err
		}

		s.sendResponse(s.session.Handle(ctx, req))
	}
}

// sendResponse encodes a response and flushes it so the editor sees it immediately.
func (s *Server) sendResponse(resp Response) {
	if err := s.enc.Encode(resp); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		log.Errorf("Flushing response: %v", err)
	}
}

func (s *Server) sendError(message string, code int) {
	s.sendResponse(Response{Status: StatusError, Error: message, Code: code})
}
