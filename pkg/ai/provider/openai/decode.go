// ABOUTME: Per-line decoding of chat-completions response bodies into typed stream lines
// ABOUTME: Recognizes data deltas, the [DONE] sentinel and JSON error envelopes (context overflow included)

package openai

import (
	"fmt"
	"strings"

	"github.com/mailru/easyjson"
	"github.com/tidwall/gjson"

	"github.com/mauromedda/pi-complete-go/pkg/ai"
	"github.com/mauromedda/pi-complete-go/pkg/ai/internal/sse"
)

const doneSentinel = "[DONE]"

// overflowType is the error type llama.cpp reports when the prompt does not
// fit the context window. Matched by substring so suffix variants still count.
const overflowType = "exceed_context_size"

// LineKind classifies one line of a response body.
type LineKind int

const (
	LineSkip     LineKind = iota // blank, comment, non-JSON or unparsable payload
	LineDelta                    // incremental completion text
	LineDone                     // data: [DONE]
	LineOverflow                 // error envelope: prompt exceeds the context window
	LineError                    // any other error envelope
)

func (k LineKind) String() string {
	switch k {
	case LineSkip:
		return "skip"
	case LineDelta:
		return "delta"
	case LineDone:
		return "done"
	case LineOverflow:
		return "overflow"
	case LineError:
		return "error"
	default:
		return "unknown"
	}
}

// Line is the decoded form of one response line.
type Line struct {
	Kind         LineKind
	Text         string
	FinishReason string
	Overflow     ai.ContextOverflow
	Err          error
}

// APIError is a non-overflow error envelope returned by the server.
type APIError struct {
	Code    int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error %d (%s)", e.Code, e.Type)
	}
	return fmt.Sprintf("server error %d (%s): %s", e.Code, e.Type, e.Message)
}

// DecodeLine classifies a single complete line. It never fails: anything it
// cannot make sense of is LineSkip, because chunk boundaries may leave a
// payload split across reads.
func DecodeLine(line string) Line {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == ':' {
		return Line{}
	}

	payload := line
	isData := false
	switch field, value := sse.Field(line); field {
	case "data":
		if value == doneSentinel {
			return Line{Kind: LineDone}
		}
		payload, isData = value, true
	case "error":
		payload = value
	}

	if l, ok := decodeEnvelope(payload); ok {
		return l
	}
	if !isData {
		return Line{}
	}

	var chunk chatCompletionChunk
	if err := easyjson.Unmarshal([]byte(payload), &chunk); err != nil {
		return Line{}
	}

	var sb strings.Builder
	var finish string
	for _, c := range chunk.Choices {
		sb.WriteString(c.Delta.Content)
		sb.WriteString(c.Text)
		if c.FinishReason != "" {
			finish = c.FinishReason
		}
	}
	return Line{Kind: LineDelta, Text: sb.String(), FinishReason: finish}
}

// decodeEnvelope recognizes {"error": ...} objects. A payload that is not
// valid JSON, or has no top-level error member, is not an envelope.
func decodeEnvelope(payload string) (Line, bool) {
	if !strings.HasPrefix(payload, "{") || !gjson.Valid(payload) {
		return Line{}, false
	}
	errv := gjson.Get(payload, "error")
	if !errv.Exists() {
		return Line{}, false
	}

	if errv.Type == gjson.String {
		return Line{Kind: LineError, Err: &APIError{Message: errv.String()}}, true
	}

	code := int(errv.Get("code").Int())
	typ := errv.Get("type").String()
	if code == 400 && strings.Contains(typ, overflowType) {
		return Line{
			Kind: LineOverflow,
			Overflow: ai.ContextOverflow{
				ContextSize: int(errv.Get("n_ctx").Int()),
				PromptSize:  int(errv.Get("n_prompt_tokens").Int()),
			},
		}, true
	}

	return Line{
		Kind: LineError,
		Err:  &APIError{Code: code, Type: typ, Message: errv.Get("message").String()},
	}, true
}

// envelopeError extracts a server error from a whole (non-streamed) body.
// It returns nil when the body carries no error envelope.
func envelopeError(body []byte) error {
	l, ok := decodeEnvelope(strings.TrimSpace(string(body)))
	if !ok {
		return nil
	}
	if l.Kind == LineOverflow {
		return &APIError{Code: 400, Type: overflowType, Message: l.Overflow.String()}
	}
	return l.Err
}
