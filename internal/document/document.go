// ABOUTME: Document snapshot handed to the engine by the editor integration, plus line/offset helpers
// ABOUTME: Computes render and cache window bounds around the cursor line

package document

import (
	"strings"
	"unicode/utf8"
)

// Snapshot is one editor state at completion-trigger time. Line and
// Character are zero-based; Character counts runes within the line.
type Snapshot struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
	Version   int    `json:"version,omitempty"`
}

// WindowOptions controls the geometry of the rendered excerpt.
type WindowOptions struct {
	LinesBefore int `json:"linesBefore" yaml:"linesBefore"`
	LinesAfter  int `json:"linesAfter" yaml:"linesAfter"`
	// CacheSlack is how far the cursor may move, in lines, before the
	// cached window is re-anchored.
	CacheSlack int `json:"cacheSlack" yaml:"cacheSlack"`
}

// DefaultWindowOptions returns the window geometry used when none is configured.
func DefaultWindowOptions() WindowOptions {
	return WindowOptions{LinesBefore: 60, LinesAfter: 20, CacheSlack: 10}
}

// Bounds are inclusive, zero-based line ranges.
type Bounds struct {
	CacheFrom  int `json:"cacheFrom"`
	CacheTo    int `json:"cacheTo"`
	RenderFrom int `json:"renderFrom"`
	RenderTo   int `json:"renderTo"`
}

// Contains reports whether line lies inside the cache window.
func (b Bounds) Contains(line int) bool {
	return b.CacheFrom <= line && line <= b.CacheTo
}

// WindowBounds computes the render window around line and the smaller cache
// window nested inside it. Both are clamped to [0, lineCount-1].
func WindowBounds(line, lineCount int, o WindowOptions) Bounds {
	if lineCount < 1 {
		lineCount = 1
	}
	last := lineCount - 1
	line = clamp(line, 0, last)

	var b Bounds
	b.RenderFrom = clamp(line-max(o.LinesBefore, 0), 0, last)
	b.RenderTo = clamp(line+max(o.LinesAfter, 0), 0, last)
	slack := max(o.CacheSlack, 0)
	b.CacheFrom = clamp(line-slack, b.RenderFrom, b.RenderTo)
	b.CacheTo = clamp(line+slack, b.RenderFrom, b.RenderTo)
	return b
}

// LineCount returns the number of lines in text. An empty text has one line.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

// LineOffset returns the byte offset at which line starts. Lines past the
// end map to len(text).
func LineOffset(text string, line int) int {
	if line <= 0 {
		return 0
	}
	off := 0
	for n := 0; n < line; n++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	return off
}

// OffsetLine returns the zero-based line containing byte offset off.
func OffsetLine(text string, off int) int {
	off = clamp(off, 0, len(text))
	return strings.Count(text[:off], "\n")
}

// Bounds computes the window bounds for the snapshot's cursor.
func (s Snapshot) Bounds(o WindowOptions) Bounds {
	return WindowBounds(s.Line, LineCount(s.Text), o)
}

// CursorOffset returns the byte offset of the cursor, clamped to its line.
func (s Snapshot) CursorOffset() int {
	start := LineOffset(s.Text, s.Line)
	line := s.lineAt(start)
	return start + runePrefixLen(line, s.Character)
}

// CursorLine splits the cursor's line at the cursor into the text before
// and after it. Neither part contains the line terminator.
func (s Snapshot) CursorLine() (before, after string) {
	start := LineOffset(s.Text, s.Line)
	line := s.lineAt(start)
	n := runePrefixLen(line, s.Character)
	return line[:n], line[n:]
}

func (s Snapshot) lineAt(start int) string {
	rest := s.Text[start:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSuffix(rest, "\r")
}

// runePrefixLen returns the byte length of the first n runes of s.
func runePrefixLen(s string, n int) int {
	if n <= 0 {
		return 0
	}
	off := 0
	for i := 0; i < n && off < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
