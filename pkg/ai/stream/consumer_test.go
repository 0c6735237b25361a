// ABOUTME: Tests for the streaming consumer state machine over simulated response bodies
// ABOUTME: Covers [DONE], overflow envelopes, line budgets, early stop, cancellation and exclusivity

package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

func delta(text string) string {
	return `data: {"choices":[{"index":0,"delta":{"content":` + quote(text) + `}}]}` + "\n\n"
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// trackingBody records whether Close was called.
type trackingBody struct {
	io.Reader
	closed atomic.Int32
}

func (b *trackingBody) Close() error {
	b.closed.Add(1)
	return nil
}

func body(s string) *trackingBody {
	return &trackingBody{Reader: strings.NewReader(s)}
}

type counter struct{ n atomic.Int32 }

func (c *counter) Touch() { c.n.Add(1) }

func TestConsumeStreamEnd(t *testing.T) {
	t.Parallel()

	b := body(delta("func main() {\n") + delta("\tfmt.Println()\n") + "data: [DONE]\n\n" + delta("ignored"))
	var partials []string
	var finishes int
	hb := &counter{}

	r := Consume(context.Background(), b, Options{
		OnPartial: func(text string) bool {
			partials = append(partials, text)
			return true
		},
		OnFinish:  func(Result) { finishes++ },
		Heartbeat: hb,
	})

	if r.Reason != ai.ReasonStreamEnd {
		t.Fatalf("Reason = %q, want streamEnd", r.Reason)
	}
	if r.Text != "func main() {\n\tfmt.Println()\n" {
		t.Errorf("Text = %q", r.Text)
	}
	if r.Lines != 2 {
		t.Errorf("Lines = %d, want 2", r.Lines)
	}
	want := []string{"func main() {\n", "func main() {\n\tfmt.Println()\n"}
	if diff := cmp.Diff(want, partials); diff != "" {
		t.Errorf("partials mismatch (-want +got):\n%s", diff)
	}
	if finishes != 1 {
		t.Errorf("OnFinish fired %d times", finishes)
	}
	if hb.n.Load() == 0 {
		t.Error("heartbeat never touched")
	}
	if b.closed.Load() == 0 {
		t.Error("body not closed")
	}
}

func TestConsumeOverflowEnvelope(t *testing.T) {
	t.Parallel()

	b := body(`{"error":{"code":400,"type":"exceed_context_size_error","n_ctx":8192,"n_prompt_tokens":9000}}`)
	r := Consume(context.Background(), b, Options{})

	if r.Reason != ai.ReasonExceedContextSize {
		t.Fatalf("Reason = %q, want exceedContextSize", r.Reason)
	}
	want := &ai.ContextOverflow{ContextSize: 8192, PromptSize: 9000}
	if diff := cmp.Diff(want, r.Overflow); diff != "" {
		t.Errorf("overflow mismatch (-want +got):\n%s", diff)
	}
	if r.Text != "" {
		t.Errorf("Text = %q, want empty", r.Text)
	}
}

func TestConsumeMaxLines(t *testing.T) {
	t.Parallel()

	b := body(delta("a\nb\n") + delta("c\nd\n") + delta("e\n") + "data: [DONE]\n")
	r := Consume(context.Background(), b, Options{MaxLines: 3})

	if r.Reason != ai.ReasonMaxLines {
		t.Fatalf("Reason = %q, want maxLines", r.Reason)
	}
	if r.Text != "a\nb\nc\nd\n" {
		t.Errorf("Text = %q", r.Text)
	}
}

func TestConsumePartialCallbackStops(t *testing.T) {
	t.Parallel()

	b := body(delta("one") + delta("two") + delta("three"))
	calls := 0
	r := Consume(context.Background(), b, Options{
		OnPartial: func(string) bool {
			calls++
			return calls < 2
		},
	})

	if r.Reason != ai.ReasonMaxLines {
		t.Fatalf("Reason = %q, want maxLines", r.Reason)
	}
	if r.Text != "onetwo" {
		t.Errorf("Text = %q, want onetwo", r.Text)
	}
}

func TestConsumeEOFWithoutTerminator(t *testing.T) {
	t.Parallel()

	// Final line lacks its newline; it is drained from the residual buffer.
	b := body(delta("x") + `data: {"choices":[{"delta":{"content":"y"}}]}`)
	r := Consume(context.Background(), b, Options{})

	if r.Reason != ai.ReasonStreamEnd || r.Text != "xy" {
		t.Fatalf("got (%q, %q), want (streamEnd, xy)", r.Reason, r.Text)
	}
}

func TestConsumeOneByteChunks(t *testing.T) {
	t.Parallel()

	payload := delta("hello ") + ": comment\n" + `data: {"choices":[{"delta":{"content":` + "\n" + delta("world") + "data: [DONE]\n"
	b := &trackingBody{Reader: iotest.OneByteReader(strings.NewReader(payload))}
	r := Consume(context.Background(), b, Options{ChunkSize: 1})

	if r.Reason != ai.ReasonStreamEnd {
		t.Fatalf("Reason = %q", r.Reason)
	}
	if r.Text != "hello world" {
		t.Errorf("Text = %q, want %q (broken JSON line discarded)", r.Text, "hello world")
	}
}

func TestConsumeServerErrorEnvelope(t *testing.T) {
	t.Parallel()

	b := body(delta("partial") + `data: {"error":{"code":500,"type":"server_error","message":"boom"}}` + "\n")
	r := Consume(context.Background(), b, Options{})

	if r.Reason != ai.ReasonError {
		t.Fatalf("Reason = %q, want error", r.Reason)
	}
	if r.Err == nil || !strings.Contains(r.Err.Error(), "boom") {
		t.Errorf("Err = %v", r.Err)
	}
	if r.Text != "" {
		t.Errorf("error results carry no text, got %q", r.Text)
	}
}

func TestConsumeReadError(t *testing.T) {
	t.Parallel()

	b := &trackingBody{Reader: io.MultiReader(strings.NewReader(delta("a")), iotest.ErrReader(errors.New("connection reset")))}
	r := Consume(context.Background(), b, Options{})

	if r.Reason != ai.ReasonError || r.Err == nil {
		t.Fatalf("got (%q, %v), want error", r.Reason, r.Err)
	}
}

func TestConsumeCancelledBeforeFirstChunk(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := body(delta("never"))
	var finishes int
	r := Consume(ctx, b, Options{OnFinish: func(Result) { finishes++ }})

	if r.Reason != ai.ReasonAborted {
		t.Fatalf("Reason = %q, want aborted", r.Reason)
	}
	if r.Text != "" {
		t.Errorf("Text = %q, nothing should be read", r.Text)
	}
	if b.closed.Load() == 0 || finishes != 1 {
		t.Errorf("closed=%d finishes=%d", b.closed.Load(), finishes)
	}
}

func TestConsumeCancelledBetweenChunks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := body(delta("first\n") + delta("second\n") + "data: [DONE]\n")
	r := Consume(ctx, b, Options{
		ChunkSize: len(delta("first\n")),
		OnPartial: func(string) bool {
			cancel()
			return true
		},
	})

	if r.Reason != ai.ReasonAborted {
		t.Fatalf("Reason = %q, want aborted", r.Reason)
	}
	if strings.Contains(r.Text, "second") {
		t.Errorf("chunk after cancellation was processed: %q", r.Text)
	}
}

func TestConsumeCancelUnblocksRead(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_, _ = io.WriteString(pw, delta("tok"))
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan Result, 1)
	go func() { done <- Consume(ctx, pr, Options{}) }()

	select {
	case r := <-done:
		if r.Reason != ai.ReasonAborted {
			t.Errorf("Reason = %q, want aborted", r.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not return after cancellation")
	}
	_ = pw.Close()
}

func TestConsumeExactlyOneTerminal(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"done":     delta("a") + "data: [DONE]\n",
		"overflow": delta("a") + `{"error":{"code":400,"type":"exceed_context_size_error","n_ctx":1,"n_prompt_tokens":2}}` + "\n",
		"eof":      delta("a"),
		"garbage":  "{not json\n\n\n",
		"empty":    "",
	}
	for name, payload := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var reasons []ai.TerminalReason
			r := Consume(context.Background(), body(payload), Options{
				OnFinish: func(r Result) { reasons = append(reasons, r.Reason) },
			})
			if len(reasons) != 1 {
				t.Fatalf("OnFinish fired %d times", len(reasons))
			}
			if reasons[0] != r.Reason || !r.Reason.Valid() {
				t.Errorf("callback reason %q, returned %q", reasons[0], r.Reason)
			}
		})
	}
}

func TestSessionFinishIsIdempotent(t *testing.T) {
	t.Parallel()

	clock := time.Unix(100, 0)
	s := NewSession(Options{Now: func() time.Time { return clock }})
	clock = clock.Add(10 * time.Millisecond)
	s.Chunk()
	s.Append("x\n")
	clock = clock.Add(5 * time.Millisecond)

	first := s.Finish(ai.ReasonStreamEnd, nil, nil)
	second := s.Finish(ai.ReasonError, nil, errors.New("late"))

	if second.Reason != ai.ReasonStreamEnd || second.Err != nil {
		t.Errorf("second Finish changed the result: %+v", second)
	}
	if first.FirstByte != 10*time.Millisecond || first.Elapsed != 15*time.Millisecond {
		t.Errorf("timings = (%v, %v)", first.FirstByte, first.Elapsed)
	}
	if got := first.AI(); got.Text != "x\n" || got.Reason != ai.ReasonStreamEnd {
		t.Errorf("AI() = %+v", got)
	}
}
