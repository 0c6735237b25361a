// ABOUTME: Renderer contract and the minimal default prompt layout used by the CLI and RPC mode
// ABOUTME: Stable content goes first so checkpoint boundaries fall between cacheable segments

package completion

import (
	"strings"

	"github.com/mauromedda/pi-complete-go/internal/budget"
	"github.com/mauromedda/pi-complete-go/internal/document"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

// Views is everything the engine derived from one snapshot.
type Views struct {
	Snapshot document.Snapshot
	Budget   budget.View
	Window   string
	Bounds   document.Bounds
}

// Renderer turns views into the message list that is sent. documentChars is
// how much of the rendered content is document text.
type Renderer interface {
	Render(v Views) (msgs []ai.Message, documentChars int)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v Views) ([]ai.Message, int)

func (f RendererFunc) Render(v Views) ([]ai.Message, int) { return f(v) }

// CursorMarker marks the insertion point in the live segment.
const CursorMarker = "<|cursor|>"

const defaultSystemPrompt = "You complete code. Continue the text at " + CursorMarker +
	" inside the editable region. Reply with the inserted code only, without explanations or fences."

// DefaultRenderer produces a system message and one user message with the
// segments [file head (when truncated), window, cursor line]. Only the last
// segment changes on every keystroke.
type DefaultRenderer struct {
	System string
}

func (d DefaultRenderer) Render(v Views) ([]ai.Message, int) {
	system := d.System
	if system == "" {
		system = defaultSystemPrompt
	}

	var segs []string
	docChars := 0
	if v.Budget.Truncated {
		segs = append(segs, "File head:\n"+v.Budget.Head)
		docChars += len(v.Budget.Head)
	}
	segs = append(segs, "Code:\n"+v.Window)
	docChars += len(v.Window)

	before, after := v.Snapshot.CursorLine()
	var live strings.Builder
	live.WriteString("Cursor line:\n")
	live.WriteString(before)
	live.WriteString(CursorMarker)
	live.WriteString(after)
	live.WriteByte('\n')
	segs = append(segs, live.String())
	docChars += len(before) + len(after)

	return []ai.Message{
		ai.NewTextMessage(ai.RoleSystem, system),
		ai.NewSegmentedMessage(ai.RoleUser, segs...),
	}, docChars
}
