// ABOUTME: RPC mode for editor plugins: JSONL requests on stdin, responses and notifications on stdout
// ABOUTME: Long-running methods run concurrently; writes are serialized line by line

package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/pi-complete-go/internal/log"
)

// Server handles RPC requests from an external client.
type Server struct {
	reader *bufio.Scanner
	router *Router

	wmu    sync.Mutex
	writer io.Writer
}

// NewServer creates an RPC server over r and w.
func NewServer(r io.Reader, w io.Writer, router *Router) *Server {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	return &Server{
		reader: scanner,
		writer: w,
		router: router,
	}
}

// Run serves until the input ends, then waits for requests still running.
// Cancelling ctx cancels running handlers; a blocked read of the input is
// only released by closing it.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for s.reader.Scan() {
		var req Request
		if err := json.Unmarshal(s.reader.Bytes(), &req); err != nil {
			s.writeError("", NewParseError(fmt.Sprintf("parse error: %v", err)))
			continue
		}
		if req.Method == "" {
			s.writeError(req.ID, NewInvalidRequestError("missing method"))
			continue
		}
		log.Debug("rpc: <- %s %s", req.Method, req.ID)

		if s.router.IsAsync(req.Method) {
			g.Go(func() error {
				return s.write(s.router.Handle(ctx, req))
			})
			continue
		}
		if err := s.write(s.router.Handle(ctx, req)); err != nil {
			return err
		}
	}
	if err := s.reader.Err(); err != nil {
		_ = g.Wait()
		return fmt.Errorf("reading requests: %w", err)
	}
	return g.Wait()
}

// Notify writes a notification line.
func (s *Server) Notify(method string, params any) {
	if err := s.writeLine(Notification{Method: method, Params: params}); err != nil {
		log.Warn("rpc: notify %s: %v", method, err)
	}
}

func (s *Server) write(resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{ID: resp.ID, Error: NewInternalError(fmt.Sprintf("internal error: %v", err))})
	}
	if err := s.writeRaw(data); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func (s *Server) writeError(id string, e *Error) {
	_ = s.writeLine(Response{ID: id, Error: e})
}

func (s *Server) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.writeRaw(data)
}

func (s *Server) writeRaw(data []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.writer.Write(append(data, '\n'))
	return err
}
