// ABOUTME: StreamSession: accumulated completion text, line budget and a single-fire terminal result
// ABOUTME: Exactly one terminal reason is ever recorded per session, whichever path ends it

package stream

import (
	"strings"
	"sync"
	"time"

	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

// Heartbeat is notified on every received chunk so an external process
// manager does not reap a local inference server mid-stream.
type Heartbeat interface {
	Touch()
}

// Options configures one streaming session.
type Options struct {
	// MaxLines ends the session once this many newlines were received.
	// Zero or negative means unlimited.
	MaxLines int

	// ChunkSize is the read buffer size; 4096 when zero.
	ChunkSize int

	// OnPartial receives the accumulated text after every non-empty delta.
	// Returning false requests early termination (reported as MaxLines).
	OnPartial func(text string) bool

	// OnFinish fires exactly once with the terminal result.
	OnFinish func(Result)

	// Heartbeat, when set, is touched on every received chunk.
	Heartbeat Heartbeat

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Result is the terminal outcome of a session.
type Result struct {
	Text      string
	Reason    ai.TerminalReason
	Overflow  *ai.ContextOverflow
	Err       error
	Lines     int
	FirstByte time.Duration // zero when no byte arrived
	Elapsed   time.Duration
}

// AI converts the result into the editor-facing form.
func (r Result) AI() ai.Result {
	return ai.Result{Text: r.Text, Reason: r.Reason, Overflow: r.Overflow, Err: r.Err}
}

// Session accumulates one response. It is driven by a single goroutine;
// only Finish is guarded, so a late second Finish is a no-op.
type Session struct {
	opts      Options
	now       func() time.Time
	start     time.Time
	firstByte time.Time
	text      strings.Builder
	newlines  int

	once   sync.Once
	result Result
}

// NewSession starts a session clock.
func NewSession(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{opts: opts, now: now, start: now()}
}

// Chunk records the arrival of body bytes.
func (s *Session) Chunk() {
	if s.firstByte.IsZero() {
		s.firstByte = s.now()
	}
	if s.opts.Heartbeat != nil {
		s.opts.Heartbeat.Touch()
	}
}

// Append adds delta text and reports whether the session should stop
// because the line budget is reached or the partial callback asked to stop.
func (s *Session) Append(delta string) bool {
	if delta == "" {
		return false
	}
	s.text.WriteString(delta)
	s.newlines += strings.Count(delta, "\n")

	stop := false
	if s.opts.OnPartial != nil && !s.opts.OnPartial(s.text.String()) {
		stop = true
	}
	if s.opts.MaxLines > 0 && s.newlines >= s.opts.MaxLines {
		stop = true
	}
	return stop
}

// Finish records the terminal outcome once and fires OnFinish. Later calls
// return the first result unchanged.
func (s *Session) Finish(reason ai.TerminalReason, overflow *ai.ContextOverflow, err error) Result {
	s.once.Do(func() {
		r := Result{
			Reason:   reason,
			Overflow: overflow,
			Err:      err,
			Lines:    s.newlines,
			Elapsed:  s.now().Sub(s.start),
		}
		if reason != ai.ReasonError {
			r.Text = s.text.String()
		}
		if !s.firstByte.IsZero() {
			r.FirstByte = s.firstByte.Sub(s.start)
		}
		s.result = r
		if s.opts.OnFinish != nil {
			s.opts.OnFinish(r)
		}
	})
	return s.result
}

// Text returns the text accumulated so far.
func (s *Session) Text() string {
	return s.text.String()
}
