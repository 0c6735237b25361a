// ABOUTME: Checkpointed request builder: primes the server prompt cache for every new prefix, then streams
// ABOUTME: Priming is sequential, serialized across callers, and never blocks the real request on failure

package checkpoint

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/mauromedda/pi-complete-go/internal/log"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

// ErrNoBackend is returned by Send on a builder created without a backend.
var ErrNoBackend = errors.New("checkpoint: no backend")

// Backend is the inference endpoint the builder talks to.
type Backend interface {
	// Prime sends msgs with a one-token output limit and discards the answer.
	Prime(ctx context.Context, msgs []ai.Message, opts ai.Options) error
	// Stream starts the real streaming completion.
	Stream(ctx context.Context, msgs []ai.Message, opts ai.Options) (io.ReadCloser, error)
}

// Stats counts priming decisions since the builder was created.
type Stats struct {
	Primed  int `json:"primed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Builder remembers the last primed prefix for one logical client connection.
type Builder struct {
	backend Backend

	// primeMu serializes priming; it is held across network calls.
	primeMu sync.Mutex

	mu    sync.Mutex
	state []ai.Message // flat messages, one segment each
	stats Stats
	gen   uint64 // bumped by Reset
}

// New creates a builder over backend.
func New(backend Backend) *Builder {
	return &Builder{backend: backend}
}

// Send primes every checkpoint prefix of msgs that is not already warm and
// then issues the real request with all boundaries removed. It returns an
// error only when ctx ends during priming or the real request fails.
func (b *Builder) Send(ctx context.Context, msgs []ai.Message, opts ai.Options) (io.ReadCloser, error) {
	if b.backend == nil {
		return nil, ErrNoBackend
	}
	if last := lastCheckpoint(msgs); last >= 0 {
		if err := b.prime(ctx, msgs[:last+1], opts); err != nil {
			return nil, err
		}
	}
	return b.backend.Stream(ctx, ai.Flatten(msgs), opts)
}

// Prime runs only the priming phase of Send.
func (b *Builder) Prime(ctx context.Context, msgs []ai.Message, opts ai.Options) error {
	last := lastCheckpoint(msgs)
	if last < 0 {
		return nil
	}
	return b.prime(ctx, msgs[:last+1], opts)
}

// lastCheckpoint returns the index of the last message carrying a boundary, or -1.
func lastCheckpoint(msgs []ai.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].HasCheckpoint() {
			return i
		}
	}
	return -1
}

func (b *Builder) prime(ctx context.Context, eligible []ai.Message, opts ai.Options) error {
	b.primeMu.Lock()
	defer b.primeMu.Unlock()

	b.mu.Lock()
	gen := b.gen
	b.mu.Unlock()

	last := len(eligible) - 1
	cand := make([]ai.Message, 0, len(eligible))
	for i, m := range eligible {
		cand = append(cand, ai.Message{Role: m.Role})
		var sb strings.Builder
		for j, seg := range m.Segments {
			if i == last && j == len(m.Segments)-1 {
				// Live edit point.
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			sb.WriteString(seg)
			cand[i] = ai.NewTextMessage(m.Role, sb.String())

			if b.warm(cand) {
				continue
			}
			if err := b.backend.Prime(ctx, cand, opts); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				b.mu.Lock()
				b.stats.Failed++
				b.mu.Unlock()
				log.Warn("checkpoint: priming %d message(s) failed, skipping remaining checkpoints: %v", len(cand), err)
				return nil
			}
			b.remember(cand, gen)
			log.Debug("checkpoint: primed prefix of %d message(s), %d chars", len(cand), ai.TotalChars(cand))
		}
	}
	return nil
}

// warm reports whether cand is covered by the remembered state and counts the skip.
func (b *Builder) warm(cand []ai.Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !isPrefix(cand, b.state) {
		return false
	}
	b.stats.Skipped++
	return true
}

// remember records cand as primed. A Reset since gen was read drops it.
func (b *Builder) remember(cand []ai.Message, gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Primed++
	if b.gen == gen {
		b.state = cloneMessages(cand)
	}
}

// isPrefix reports whether cand is already covered by state: every message
// but the last matches exactly and the last one is a prefix of its
// counterpart.
func isPrefix(cand, state []ai.Message) bool {
	n := len(cand)
	if n == 0 || n > len(state) {
		return false
	}
	for k := 0; k < n-1; k++ {
		if cand[k].Role != state[k].Role || cand[k].Text() != state[k].Text() {
			return false
		}
	}
	return cand[n-1].Role == state[n-1].Role &&
		strings.HasPrefix(state[n-1].Text(), cand[n-1].Text())
}

func cloneMessages(msgs []ai.Message) []ai.Message {
	out := make([]ai.Message, len(msgs))
	for i, m := range msgs {
		out[i] = ai.NewSegmentedMessage(m.Role, m.Segments...)
	}
	return out
}

// Reset forgets the primed state; the next request primes from scratch.
func (b *Builder) Reset() {
	b.mu.Lock()
	b.state = nil
	b.gen++
	b.mu.Unlock()
}

// Stats returns a snapshot of the priming counters.
func (b *Builder) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// State returns a copy of the remembered prefix.
func (b *Builder) State() []ai.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneMessages(b.state)
}
