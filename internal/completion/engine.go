// ABOUTME: Completion engine: owns the window cache, truncation budget and checkpoint builder
// ABOUTME: One request in flight at a time; overflows feed the budget, transport errors trigger auto-start

package completion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mauromedda/pi-complete-go/internal/budget"
	"github.com/mauromedda/pi-complete-go/internal/checkpoint"
	"github.com/mauromedda/pi-complete-go/internal/document"
	"github.com/mauromedda/pi-complete-go/internal/log"
	"github.com/mauromedda/pi-complete-go/internal/window"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
	"github.com/mauromedda/pi-complete-go/pkg/ai/stream"
)

// ErrBudgetExhausted marks results short-circuited because even the minimal
// truncation budget does not fit the server's context window.
var ErrBudgetExhausted = errors.New("completion: document exceeds the context window at the minimal budget")

// Config holds the engine's tunables.
type Config struct {
	Window           document.WindowOptions
	WindowTTL        time.Duration
	Markers          window.Markers
	MaxLines         int
	MinBudgetChars   int
	TruncationMarker string
	// ContextSize is used when an overflow report omits the server's window size.
	ContextSize int
	Request     ai.Options
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Window:           document.DefaultWindowOptions(),
		WindowTTL:        window.DefaultTTL,
		Markers:          window.DefaultMarkers(),
		MaxLines:         16,
		MinBudgetChars:   budget.DefaultMinChars,
		TruncationMarker: budget.DefaultMarker,
		Request:          ai.Options{MaxTokens: 256, Temperature: 0.1},
	}
}

// Backend is what the engine sends requests through.
type Backend = checkpoint.Backend

// localBackend is implemented by backends that know whether they are loopback.
type localBackend interface {
	IsLocal() bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithHeartbeat is touched on every streamed chunk.
func WithHeartbeat(hb stream.Heartbeat) Option {
	return func(e *Engine) { e.heartbeat = hb }
}

// WithTransportErrorHook is called when a request to a local endpoint fails
// before any response arrives. The hook typically starts the server; the
// failed request is not retried.
func WithTransportErrorHook(fn func(error)) Option {
	return func(e *Engine) { e.onTransportError = fn }
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine turns document snapshots into streamed completions.
type Engine struct {
	cfg     Config
	backend Backend
	windows *window.Cache
	budgets *budget.Budget
	builder *checkpoint.Builder

	heartbeat        stream.Heartbeat
	onTransportError func(error)
	now              func() time.Time

	mu       sync.Mutex
	cancel   context.CancelFunc
	seq      uint64
	lastDone Outcome

	requests  atomic.Int64
	overflows atomic.Int64
	aborted   atomic.Int64
	failures  atomic.Int64
}

// New creates an engine over backend.
func New(cfg Config, backend Backend, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.Window == (document.WindowOptions{}) {
		cfg.Window = def.Window
	}
	if cfg.MaxLines == 0 {
		cfg.MaxLines = def.MaxLines
	}
	e := &Engine{
		cfg:     cfg,
		backend: backend,
		builder: checkpoint.New(backend),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.windows = window.New(window.Options{TTL: cfg.WindowTTL, Markers: cfg.Markers, Now: e.now})
	e.budgets = budget.New(budget.Options{MinChars: cfg.MinBudgetChars, Marker: cfg.TruncationMarker})
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Views computes what a renderer needs for snap: the budget's truncated
// views and the cached window text.
func (e *Engine) Views(snap document.Snapshot) Views {
	bv := e.budgets.View(snap.ID, snap.Text, snap.Line)
	bounds := snap.Bounds(e.cfg.Window)
	v := Views{Snapshot: snap, Budget: bv, Bounds: bounds}
	if bv.Exceeded {
		return v
	}

	src := window.Source{Text: bv.Centered}
	if bv.Truncated {
		src.StartLine = bv.CenteredStartLine
		if bv.LeadingMarker {
			// The leading truncation marker sits on its own line just above the excerpt.
			src.StartLine--
		}
	}
	v.Window = e.windows.Render(snap.ID, src, snap.Line, bounds)
	return v
}

// CompleteOptions are per-request knobs.
type CompleteOptions struct {
	// MaxLines overrides the configured line budget when positive.
	MaxLines int
	// OnPartial receives accumulated text; returning false stops the stream.
	OnPartial func(text string) bool
}

// Complete renders snap with r and streams a completion. A call supersedes
// any request still in flight on this engine.
func (e *Engine) Complete(ctx context.Context, snap document.Snapshot, r Renderer, co CompleteOptions) ai.Result {
	ctx, done := e.begin(ctx)
	defer done()

	views := e.Views(snap)
	if views.Budget.Exceeded {
		log.Debug("completion: %s exceeds the context window at budget %d, not sending", snap.ID, views.Budget.Limit)
		return e.exhausted(snap.ID)
	}
	if r == nil {
		r = DefaultRenderer{}
	}
	msgs, docChars := r.Render(views)
	return e.run(ctx, snap.ID, msgs, docChars, co)
}

// CompleteMessages streams a completion for messages the caller rendered
// itself. documentChars is how much of the content is document text.
func (e *Engine) CompleteMessages(ctx context.Context, docID string, msgs []ai.Message, documentChars int, co CompleteOptions) ai.Result {
	ctx, done := e.begin(ctx)
	defer done()

	if v := e.budgets.View(docID, "", 0); v.Exceeded {
		return e.exhausted(docID)
	}
	return e.run(ctx, docID, msgs, documentChars, co)
}

func (e *Engine) run(ctx context.Context, docID string, msgs []ai.Message, documentChars int, co CompleteOptions) ai.Result {
	e.requests.Add(1)
	e.budgets.NotePrompt(docID, documentChars, ai.TotalChars(msgs))

	body, err := e.builder.Send(ctx, msgs, e.cfg.Request)
	if err != nil {
		if ctx.Err() != nil {
			return e.finish(docID, ai.Result{Reason: ai.ReasonAborted}, 0)
		}
		log.Warn("completion: request for %s failed: %v", docID, err)
		if lb, ok := e.backend.(localBackend); ok && lb.IsLocal() && e.onTransportError != nil {
			e.onTransportError(err)
		}
		return e.finish(docID, ai.Result{Reason: ai.ReasonError, Err: err}, 0)
	}

	maxLines := e.cfg.MaxLines
	if co.MaxLines > 0 {
		maxLines = co.MaxLines
	}
	res := stream.Consume(ctx, body, stream.Options{
		MaxLines:  maxLines,
		OnPartial: co.OnPartial,
		Heartbeat: e.heartbeat,
		Now:       e.now,
	})

	if res.Reason == ai.ReasonExceedContextSize && res.Overflow != nil {
		if res.Overflow.ContextSize == 0 {
			res.Overflow.ContextSize = e.cfg.ContextSize
		}
		entry := e.budgets.RecordOverflow(docID, res.Overflow.ContextSize, res.Overflow.PromptSize)
		log.Info("completion: %s overflowed (%s), budget now %d chars", docID, res.Overflow, entry.Limit())
	}
	log.Debug("completion: %s finished: %s, %d line(s), ttfb %v", docID, res.Reason, res.Lines, res.FirstByte)
	return e.finish(docID, res.AI(), res.FirstByte)
}

// exhausted answers without contacting the server, reporting the last
// overflow that tightened the budget.
func (e *Engine) exhausted(docID string) ai.Result {
	r := ai.Result{Reason: ai.ReasonExceedContextSize, Err: ErrBudgetExhausted}
	if entry, ok := e.budgets.Entry(docID); ok {
		r.Overflow = &ai.ContextOverflow{ContextSize: entry.ContextSize, PromptSize: entry.PromptSize}
	}
	return e.finish(docID, r, 0)
}

// begin cancels the previous request and derives the context for a new one.
func (e *Engine) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.seq++
	mine := e.seq
	e.cancel = cancel
	e.mu.Unlock()

	return ctx, func() {
		e.mu.Lock()
		if e.seq == mine {
			e.cancel = nil
		}
		e.mu.Unlock()
		cancel()
	}
}

// Cancel aborts the request in flight, if any.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return false
	}
	e.cancel()
	e.cancel = nil
	return true
}

func (e *Engine) finish(docID string, r ai.Result, ttfb time.Duration) ai.Result {
	switch r.Reason {
	case ai.ReasonExceedContextSize:
		e.overflows.Add(1)
	case ai.ReasonAborted:
		e.aborted.Add(1)
	case ai.ReasonError:
		e.failures.Add(1)
	}
	e.mu.Lock()
	e.lastDone = Outcome{DocumentID: docID, Reason: r.Reason, FirstByte: ttfb, At: e.now()}
	e.mu.Unlock()
	return r
}

// Invalidate forgets the cached window and learned budget for docID.
func (e *Engine) Invalidate(docID string) {
	e.windows.Invalidate(docID)
	e.budgets.Reset(docID)
}

// Reset drops every per-document store and the checkpoint state, typically
// after a configuration change.
func (e *Engine) Reset() {
	e.windows.Clear()
	e.budgets.Clear()
	e.builder.Reset()
}

// Budget returns the learned budget entry for docID.
func (e *Engine) Budget(docID string) (budget.Entry, bool) {
	return e.budgets.Entry(docID)
}
