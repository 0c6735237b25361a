// ABOUTME: Tests for window bound computation and line/offset helpers
// ABOUTME: Table-driven clamping cases at document edges

package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWindowBounds(t *testing.T) {
	t.Parallel()

	opts := WindowOptions{LinesBefore: 10, LinesAfter: 5, CacheSlack: 3}
	tests := []struct {
		name      string
		line      int
		lineCount int
		want      Bounds
	}{
		{"middle", 50, 100, Bounds{CacheFrom: 47, CacheTo: 53, RenderFrom: 40, RenderTo: 55}},
		{"top", 1, 100, Bounds{CacheFrom: 0, CacheTo: 4, RenderFrom: 0, RenderTo: 6}},
		{"bottom", 98, 100, Bounds{CacheFrom: 95, CacheTo: 99, RenderFrom: 88, RenderTo: 99}},
		{"cursor past end", 500, 100, Bounds{CacheFrom: 96, CacheTo: 99, RenderFrom: 89, RenderTo: 99}},
		{"empty document", 0, 0, Bounds{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := WindowBounds(tt.line, tt.lineCount, opts)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("bounds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCacheWindowNestedInRenderWindow(t *testing.T) {
	t.Parallel()

	opts := WindowOptions{LinesBefore: 2, LinesAfter: 1, CacheSlack: 8}
	b := WindowBounds(20, 40, opts)
	if b.CacheFrom != b.RenderFrom || b.CacheTo != b.RenderTo {
		t.Errorf("cache window %d-%d escapes render window %d-%d", b.CacheFrom, b.CacheTo, b.RenderFrom, b.RenderTo)
	}
	if !b.Contains(20) || b.Contains(22) {
		t.Errorf("Contains misbehaves for %+v", b)
	}
}

func TestLineOffsets(t *testing.T) {
	t.Parallel()

	text := "alpha\nbeta\n\ngamma"
	for line, want := range []int{0, 6, 11, 12} {
		if got := LineOffset(text, line); got != want {
			t.Errorf("LineOffset(%d) = %d, want %d", line, got, want)
		}
		if got := OffsetLine(text, want); got != line {
			t.Errorf("OffsetLine(%d) = %d, want %d", want, got, line)
		}
	}
	if got := LineOffset(text, 9); got != len(text) {
		t.Errorf("LineOffset past end = %d", got)
	}
	if LineCount(text) != 4 || LineCount("") != 1 {
		t.Errorf("LineCount wrong")
	}
}

func TestSnapshotCursor(t *testing.T) {
	t.Parallel()

	s := Snapshot{Text: "package main\r\nfunc héllo() {\n}", Line: 1, Character: 7}
	before, after := s.CursorLine()
	if before != "func hé" || after != "llo() {" {
		t.Errorf("CursorLine = (%q, %q)", before, after)
	}
	if got := s.CursorOffset(); s.Text[:got] != "package main\r\nfunc hé" {
		t.Errorf("CursorOffset = %d", got)
	}

	s.Character = 99
	if _, after := s.CursorLine(); after != "" {
		t.Errorf("character past line end should clamp, after = %q", after)
	}
}
