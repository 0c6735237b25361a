// ABOUTME: Adaptive truncation budget: learns a per-document character budget from context overflows
// ABOUTME: Ratchets only tighten; produces head and cursor-centered views cut on grapheme boundaries

package budget

import (
	"math"
	"sync"

	"github.com/mauromedda/pi-complete-go/internal/document"
)

const (
	// DefaultShrink is both the initial shrink factor and the per-overflow multiplier.
	DefaultShrink = 0.9

	// DefaultMinChars is the smallest budget still worth sending.
	DefaultMinChars = 256

	// DefaultMarker is inserted wherever a view was cut.
	DefaultMarker = "/* ... truncated ... */"

	// defaultUnitsPerChar seeds the cost estimate when no prompt composition
	// was recorded before the first overflow (roughly four characters per token).
	defaultUnitsPerChar = 0.25
)

// Entry is the learned state for one document.
type Entry struct {
	ContextSize int
	// PromptSize is the size of the last prompt the server rejected.
	PromptSize            int
	NonDocumentPromptSize int
	// UnitsPerChar is the prompt cost of one document character. It only grows.
	UnitsPerChar float64
	// ShrinkFactor only shrinks.
	ShrinkFactor float64
	Overflows    int
}

// Limit returns the budget in characters.
func (e Entry) Limit() int {
	avail := float64(e.ContextSize - e.NonDocumentPromptSize)
	if avail <= 0 || e.UnitsPerChar <= 0 {
		return 0
	}
	return int(math.Floor(avail * e.ShrinkFactor / e.UnitsPerChar))
}

// composition is the character make-up of the last prompt sent for a document.
type composition struct {
	documentChars int
	totalChars    int
}

// Options configures a Budget.
type Options struct {
	MinChars int
	Marker   string
}

// Budget holds learned entries keyed by document identity.
type Budget struct {
	mu      sync.Mutex
	entries map[string]*Entry
	last    map[string]composition
	opts    Options
}

// New creates an empty budget store.
func New(opts Options) *Budget {
	if opts.MinChars <= 0 {
		opts.MinChars = DefaultMinChars
	}
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	return &Budget{
		entries: make(map[string]*Entry),
		last:    make(map[string]composition),
		opts:    opts,
	}
}

// NotePrompt records how many of totalChars in the prompt about to be sent
// for docID belong to the document itself.
func (b *Budget) NotePrompt(docID string, documentChars, totalChars int) {
	b.mu.Lock()
	b.last[docID] = composition{documentChars: documentChars, totalChars: totalChars}
	b.mu.Unlock()
}

// RecordOverflow tightens the budget for docID after the server rejected a
// prompt of promptSize units against a window of contextSize units.
func (b *Budget) RecordOverflow(docID string, contextSize, promptSize int) Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[docID]
	if !ok {
		e = &Entry{ShrinkFactor: DefaultShrink}
		b.entries[docID] = e
	}
	e.ContextSize = contextSize
	e.PromptSize = promptSize
	e.ShrinkFactor *= DefaultShrink
	e.Overflows++

	comp := b.last[docID]
	if comp.documentChars > 0 && comp.totalChars > 0 {
		docShare := float64(promptSize) * float64(comp.documentChars) / float64(comp.totalChars)
		e.NonDocumentPromptSize = promptSize - int(math.Round(docShare))
		e.UnitsPerChar = math.Max(e.UnitsPerChar, docShare/float64(comp.documentChars))
	} else if e.UnitsPerChar == 0 {
		e.UnitsPerChar = defaultUnitsPerChar
	}
	return *e
}

// Entry returns a copy of the learned state for docID.
func (b *Budget) Entry(docID string) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[docID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Reset forgets everything learned about docID.
func (b *Budget) Reset(docID string) {
	b.mu.Lock()
	delete(b.entries, docID)
	delete(b.last, docID)
	b.mu.Unlock()
}

// Clear forgets every document, typically after a configuration change.
func (b *Budget) Clear() {
	b.mu.Lock()
	clear(b.entries)
	clear(b.last)
	b.mu.Unlock()
}

// Len returns the number of documents with overflow history.
func (b *Budget) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// View returns the truncated views of text for docID.
func (b *Budget) View(docID, text string, cursorLine int) View {
	e, ok := b.Entry(docID)
	if !ok || e.Overflows == 0 {
		return whole(text)
	}
	limit := e.Limit()
	if limit < b.opts.MinChars {
		v := whole(text)
		v.Limit = limit
		v.Exceeded = true
		return v
	}
	cursor := document.LineOffset(text, cursorLine)
	return cut(text, limit, cursor, b.opts.Marker)
}
