// ABOUTME: Response chunk types for OpenAI-compatible chat-completions streaming
// ABOUTME: Separated for easyjson codegen (zero-reflection decoding on the per-token hot path)

//go:generate easyjson -all sse_types.go

package openai

// chatCompletionChunk is the JSON payload of one "data:" line.
type chatCompletionChunk struct {
	ID      string        `json:"id"`
	Choices []chunkChoice `json:"choices"`
	Usage   *chunkUsage   `json:"usage,omitempty"`
}

// chunkChoice carries either a chat delta or, for servers that answer in
// the legacy completions shape, a plain text field.
type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	Text         string     `json:"text,omitempty"`
	FinishReason string     `json:"finish_reason"`
}

type chunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chunkUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
