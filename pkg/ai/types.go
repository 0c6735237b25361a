// ABOUTME: Core completion types: Message with checkpoint segments, TerminalReason, Result
// ABOUTME: Shared by the request builder, stream consumer, engine and RPC layer; wire-format agnostic

package ai

import (
	"fmt"
	"strings"
)

// Role represents a message role in the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a chat message whose content is split into ordered segments.
// The boundary between two consecutive segments is a checkpoint boundary:
// everything before it is eligible for server-side cache priming.
type Message struct {
	Role     Role     `json:"role"`
	Segments []string `json:"segments"`
}

// NewTextMessage creates a message with a single segment and no checkpoints.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Segments: []string{text}}
}

// NewSegmentedMessage creates a message from explicit checkpoint segments.
func NewSegmentedMessage(role Role, segments ...string) Message {
	return Message{Role: role, Segments: append([]string(nil), segments...)}
}

// SplitCheckpoints builds a message from content carrying an in-band
// checkpoint marker. An empty marker yields a single segment.
func SplitCheckpoints(role Role, content, marker string) Message {
	if marker == "" {
		return NewTextMessage(role, content)
	}
	return Message{Role: role, Segments: strings.Split(content, marker)}
}

// Text returns the message content with all checkpoint boundaries removed.
func (m Message) Text() string {
	switch len(m.Segments) {
	case 0:
		return ""
	case 1:
		return m.Segments[0]
	}
	return strings.Join(m.Segments, "")
}

// HasCheckpoint reports whether the message carries at least one boundary.
func (m Message) HasCheckpoint() bool {
	return len(m.Segments) > 1
}

// Flatten returns copies of msgs with every checkpoint boundary stripped.
func Flatten(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = NewTextMessage(m.Role, m.Text())
	}
	return out
}

// TotalChars returns the byte length of all message content.
func TotalChars(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		for _, s := range m.Segments {
			n += len(s)
		}
	}
	return n
}

// TerminalReason is the single outcome that ends a streaming completion.
type TerminalReason string

const (
	ReasonMaxLines          TerminalReason = "maxLines"
	ReasonStreamEnd         TerminalReason = "streamEnd"
	ReasonAborted           TerminalReason = "aborted"
	ReasonExceedContextSize TerminalReason = "exceedContextSize"
	ReasonError             TerminalReason = "error"
)

// Valid reports whether r is one of the fixed terminal reasons.
func (r TerminalReason) Valid() bool {
	switch r {
	case ReasonMaxLines, ReasonStreamEnd, ReasonAborted, ReasonExceedContextSize, ReasonError:
		return true
	default:
		return false
	}
}

// ContextOverflow is the structured payload reported with ReasonExceedContextSize.
type ContextOverflow struct {
	ContextSize int `json:"contextSize"`
	PromptSize  int `json:"promptSize"`
}

func (o ContextOverflow) String() string {
	return fmt.Sprintf("prompt %d exceeds context %d", o.PromptSize, o.ContextSize)
}

// Result is what a completion request hands back to the editor.
type Result struct {
	Text     string           `json:"text"`
	Reason   TerminalReason   `json:"reason"`
	Overflow *ContextOverflow `json:"overflow,omitempty"`
	Err      error            `json:"-"`
}

// Options configures one completion request.
type Options struct {
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}
