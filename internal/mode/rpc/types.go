// ABOUTME: RPC request/response types for editor plugins
// ABOUTME: JSON-serializable envelopes plus per-method params and results

package rpc

import (
	"encoding/json"

	"github.com/mauromedda/pi-complete-go/internal/completion"
	"github.com/mauromedda/pi-complete-go/internal/document"
	"github.com/mauromedda/pi-complete-go/internal/server"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

// Request represents an RPC request from an external client.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents an RPC response to an external client.
type Response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Notification is an unsolicited message without an id.
type Notification struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// Error represents an RPC error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Methods
const (
	MethodComplete   = "complete"
	MethodViews      = "views"
	MethodCancel     = "cancel"
	MethodInvalidate = "invalidate"
	MethodReset      = "reset"
	MethodGetStatus  = "get_status"

	// NotifyPartial carries accumulated completion text while streaming.
	NotifyPartial = "partial"
)

// MessageParam is one pre-rendered message; content may carry the
// configured checkpoint marker.
type MessageParam struct {
	Role    ai.Role `json:"role"`
	Content string  `json:"content"`
}

// CompleteParams are the params of the complete method. Without messages
// the document is rendered with the default layout.
type CompleteParams struct {
	Document      document.Snapshot `json:"document"`
	Messages      []MessageParam    `json:"messages,omitempty"`
	DocumentChars int               `json:"documentChars,omitempty"`
	MaxLines      int               `json:"maxLines,omitempty"`
	Partials      bool              `json:"partials,omitempty"`
}

// CompleteResult is the response payload for complete.
type CompleteResult struct {
	Text     string              `json:"text"`
	Reason   ai.TerminalReason   `json:"reason"`
	Overflow *ai.ContextOverflow `json:"overflow,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// PartialParams are the params of a partial notification.
type PartialParams struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
}

// ViewsResult is the response payload for views.
type ViewsResult struct {
	Head              string          `json:"head"`
	Centered          string          `json:"centered"`
	CenteredStartLine int             `json:"centeredStartLine"`
	Window            string          `json:"window"`
	Truncated         bool            `json:"truncated"`
	Exceeded          bool            `json:"exceeded"`
	Limit             int             `json:"limit"`
	Bounds            document.Bounds `json:"bounds"`
}

// DocumentParams identify one document.
type DocumentParams struct {
	DocumentID string `json:"documentId"`
}

// StatusResult is the response payload for the get_status method.
type StatusResult struct {
	Endpoint string            `json:"endpoint"`
	Model    string            `json:"model,omitempty"`
	Engine   completion.Status `json:"engine"`
	Server   *server.Status    `json:"server,omitempty"`
}

// CancelResult is the response payload for the cancel method.
type CancelResult struct {
	Cancelled bool `json:"cancelled"`
}

// OKResult acknowledges methods without a payload.
type OKResult struct {
	OK bool `json:"ok"`
}
