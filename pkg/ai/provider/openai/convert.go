// ABOUTME: Request body construction for OpenAI-compatible chat completions
// ABOUTME: Flattens checkpoint segments into plain content and applies server compatibility flags

package openai

import "github.com/mauromedda/pi-complete-go/pkg/ai"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	CachePrompt bool          `json:"cache_prompt,omitempty"`
}

// buildRequestBody converts messages and options into the wire request.
// Segments are joined; the server never sees checkpoint boundaries.
func buildRequestBody(model string, compat CompatMode, msgs []ai.Message, opts ai.Options, stream bool) chatRequest {
	if opts.Model != "" {
		model = opts.Model
	}
	return chatRequest{
		Model:       model,
		Messages:    convertMessages(msgs),
		Stream:      stream,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
		CachePrompt: compat == CompatLlamaCpp,
	}
}

func convertMessages(msgs []ai.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Text()})
	}
	return out
}
