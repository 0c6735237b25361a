// ABOUTME: Tests for the prompt window cache: stability, re-anchoring, TTL and validity key
// ABOUTME: Uses an injected clock; documents are generated line by line

package window

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mauromedda/pi-complete-go/internal/document"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func genDoc(lines int) string {
	var sb strings.Builder
	for i := range lines {
		fmt.Fprintf(&sb, "line %04d\n", i)
	}
	return sb.String()
}

var testOpts = document.WindowOptions{LinesBefore: 5, LinesAfter: 3, CacheSlack: 2}

func newTestCache(clk *fakeClock) *Cache {
	return New(Options{Markers: Markers{Start: "<S>\n", End: "<E>\n"}, Now: clk.Now})
}

func render(c *Cache, doc string, line int) string {
	b := document.WindowBounds(line, document.LineCount(doc), testOpts)
	return c.Render("doc", Source{Text: doc}, line, b)
}

func TestRenderWrapsWindow(t *testing.T) {
	t.Parallel()

	c := newTestCache(&fakeClock{t: time.Unix(0, 0)})
	doc := "a\nb\nc\nd\ne\n"
	b := document.WindowBounds(2, document.LineCount(doc), document.WindowOptions{LinesBefore: 1, LinesAfter: 1, CacheSlack: 1})
	got := c.Render("doc", Source{Text: doc}, 2, b)

	want := "a\n<S>\nb\nc\nd\n<E>\ne\n"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
	e, ok := c.Get("doc")
	if !ok || e.CacheFromLine != 1 || e.CacheToLine != 3 || e.WindowStartLine != 1 {
		t.Errorf("entry = %+v", e)
	}
}

func TestRenderUnterminatedLastLine(t *testing.T) {
	t.Parallel()

	c := newTestCache(&fakeClock{t: time.Unix(0, 0)})
	doc := "x\ny"
	b := document.WindowBounds(1, 2, document.WindowOptions{})
	if got := c.Render("doc", Source{Text: doc}, 1, b); got != "x\n<S>\ny\n<E>\n" {
		t.Errorf("Render = %q", got)
	}
}

func TestWindowStability(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := newTestCache(clk)
	doc := genDoc(100)

	first := render(c, doc, 50)
	for _, line := range []int{48, 49, 51, 52} {
		clk.t = clk.t.Add(time.Second)
		if got := render(c, doc, line); got != first {
			t.Fatalf("cursor at %d inside cache window changed the text", line)
		}
	}
	hits, misses := c.Stats()
	if hits != 4 || misses != 1 {
		t.Errorf("hits=%d misses=%d, want 4/1", hits, misses)
	}
}

func TestCursorLeavingWindowReanchors(t *testing.T) {
	t.Parallel()

	c := newTestCache(&fakeClock{t: time.Unix(1000, 0)})
	doc := genDoc(100)

	first := render(c, doc, 50)
	moved := render(c, doc, 53)
	if moved == first {
		t.Fatal("cursor left the cache window but text was reused")
	}
	e, _ := c.Get("doc")
	if e.CacheFromLine != 51 || e.CacheToLine != 55 {
		t.Errorf("window not re-anchored: %+v", e)
	}
	if !strings.Contains(moved, "<S>\nline 0048\n") {
		t.Errorf("window does not start at line 48:\n%s", moved)
	}
}

func TestEditsOutsideWindowKeepEntry(t *testing.T) {
	t.Parallel()

	c := newTestCache(&fakeClock{t: time.Unix(1000, 0)})
	doc := genDoc(100)
	first := render(c, doc, 50)

	// Same length, different content far away.
	edited := strings.Replace(doc, "line 0002", "LINE 0002", 1)
	if got := render(c, edited, 50); got != first {
		t.Error("same-length edit outside the window should reuse the cached text")
	}

	grown := doc + "extra\n"
	if got := render(c, grown, 50); got == first {
		t.Error("a changed validity key must force a rebuild")
	}
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := newTestCache(clk)
	doc := genDoc(20)
	render(c, doc, 10)

	validLen := len(doc)
	clk.t = clk.t.Add(DefaultTTL - time.Second)
	if _, ok := c.Lookup("doc", 10, validLen); !ok {
		t.Fatal("entry expired too early")
	}
	clk.t = clk.t.Add(time.Second)
	if _, ok := c.Lookup("doc", 10, validLen); ok {
		t.Fatal("entry at TTL must miss")
	}
}

func TestStoreSweepsAndBounds(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Unix(1000, 0)}
	c := New(Options{MaxEntries: 2, Now: clk.Now})

	c.Store("a", Entry{Text: "a"})
	clk.t = clk.t.Add(time.Second)
	c.Store("b", Entry{Text: "b"})
	clk.t = clk.t.Add(time.Second)
	c.Store("c", Entry{Text: "c"})
	if _, ok := c.Get("a"); ok || c.Len() != 2 {
		t.Errorf("oldest entry not evicted, len=%d", c.Len())
	}

	clk.t = clk.t.Add(DefaultTTL)
	c.Store("d", Entry{Text: "d"})
	if c.Len() != 1 {
		t.Errorf("expired entries not swept, len=%d", c.Len())
	}

	c.Invalidate("d")
	c.Store("e", Entry{})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Clear left %d entries", c.Len())
	}
}

func TestRenderTruncatedSource(t *testing.T) {
	t.Parallel()

	c := newTestCache(&fakeClock{t: time.Unix(0, 0)})
	// View starting at document line 40.
	var sb strings.Builder
	for i := 40; i < 60; i++ {
		fmt.Fprintf(&sb, "line %04d\n", i)
	}
	b := document.WindowBounds(50, 100, testOpts)
	got := c.Render("doc", Source{Text: sb.String(), StartLine: 40}, 50, b)

	if !strings.HasPrefix(got, "line 0040\n") {
		t.Errorf("excerpt prefix lost: %q", got[:20])
	}
	if !strings.Contains(got, "line 0044\n<S>\nline 0045\n") || !strings.Contains(got, "line 0053\n<E>\nline 0054\n") {
		t.Errorf("window not placed in document coordinates:\n%s", got)
	}
}
