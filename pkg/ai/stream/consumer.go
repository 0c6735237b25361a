// ABOUTME: Streaming completion consumer: reads a chat-completions body chunk by chunk under cancellation
// ABOUTME: Maps decoded lines onto the terminal states StreamEnd, MaxLines, Aborted, ExceedContextSize, Error

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/mauromedda/pi-complete-go/pkg/ai"
	"github.com/mauromedda/pi-complete-go/pkg/ai/internal/sse"
	"github.com/mauromedda/pi-complete-go/pkg/ai/provider/openai"
)

const defaultChunkSize = 4096

// Consume drives body to exactly one terminal outcome. The body is always
// closed before Consume returns. Cancelling ctx closes the body from another
// goroutine so a blocked read returns promptly; the outcome is then Aborted.
func Consume(ctx context.Context, body io.ReadCloser, opts Options) Result {
	s := NewSession(opts)
	c := &onceCloser{rc: body}
	defer c.Close()

	if ctx.Err() != nil {
		c.Close()
		return s.Finish(ai.ReasonAborted, nil, nil)
	}
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	size := opts.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	buf := make([]byte, size)
	lines := sse.NewLineSplitter(0)

	for {
		n, err := body.Read(buf)
		if ctx.Err() != nil {
			c.Close()
			return s.Finish(ai.ReasonAborted, nil, nil)
		}
		if n > 0 {
			s.Chunk()
			for _, line := range lines.Feed(buf[:n]) {
				if r, done := handleLine(s, line); done {
					return r
				}
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			for _, line := range lines.Flush() {
				if r, done := handleLine(s, line); done {
					return r
				}
			}
			return s.Finish(ai.ReasonStreamEnd, nil, nil)
		}
		return s.Finish(ai.ReasonError, nil, fmt.Errorf("reading stream: %w", err))
	}
}

// handleLine applies one decoded line to the session. done reports a terminal transition.
func handleLine(s *Session, line string) (Result, bool) {
	l := openai.DecodeLine(line)
	switch l.Kind {
	case openai.LineOverflow:
		overflow := l.Overflow
		return s.Finish(ai.ReasonExceedContextSize, &overflow, nil), true
	case openai.LineError:
		return s.Finish(ai.ReasonError, nil, l.Err), true
	case openai.LineDone:
		return s.Finish(ai.ReasonStreamEnd, nil, nil), true
	case openai.LineDelta:
		if s.Append(l.Text) {
			return s.Finish(ai.ReasonMaxLines, nil, nil), true
		}
	}
	return Result{}, false
}

// onceCloser makes Close idempotent and safe to call from the cancellation goroutine.
type onceCloser struct {
	rc   io.Closer
	once sync.Once
}

func (c *onceCloser) Close() {
	c.once.Do(func() { _ = c.rc.Close() })
}
