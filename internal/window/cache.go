// ABOUTME: Prompt window cache: per-document rendered excerpt kept byte-stable while the cursor stays near
// ABOUTME: Entries are immutable values replaced wholesale on miss; TTL, sweep and optional size bound

package window

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mauromedda/pi-complete-go/internal/document"
)

// DefaultTTL is how long a rendered window stays reusable.
const DefaultTTL = 5 * time.Minute

// Markers delimit the editable region inside the rendered excerpt.
type Markers struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// DefaultMarkers returns the edit-boundary markers used when none are configured.
func DefaultMarkers() Markers {
	return Markers{Start: "<|editable_region_start|>\n", End: "<|editable_region_end|>\n"}
}

// Entry is one cached rendering. Never mutated after Store.
type Entry struct {
	CacheFromLine   int
	CacheToLine     int
	Text            string
	WindowStartLine int
	ValidLen        int
	CreatedAt       time.Time
}

// Source is the document view the window is cut from. StartLine is the
// document line the view's first line corresponds to, so a truncated
// excerpt can be windowed in document coordinates.
type Source struct {
	Text      string
	StartLine int
}

// Options configures a Cache.
type Options struct {
	TTL time.Duration
	// MaxEntries bounds the number of documents kept; zero means unbounded.
	MaxEntries int
	Markers    Markers
	Now        func() time.Time
}

// Cache maps document identity to its rendered window.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	opts    Options
	now     func() time.Time

	hits, misses int64
}

// New creates an empty cache.
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Markers == (Markers{}) {
		opts.Markers = DefaultMarkers()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{entries: make(map[string]Entry), opts: opts, now: now}
}

// Lookup returns the cached text when the entry is fresh, cursorLine lies in
// its cache window and validLen matches exactly.
func (c *Cache) Lookup(docID string, cursorLine, validLen int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[docID]
	if !ok || !c.usable(e, cursorLine, validLen) {
		c.misses++
		return "", false
	}
	c.hits++
	return e.Text, true
}

func (c *Cache) usable(e Entry, cursorLine, validLen int) bool {
	if c.now().Sub(e.CreatedAt) >= c.opts.TTL {
		return false
	}
	if cursorLine < e.CacheFromLine || cursorLine > e.CacheToLine {
		return false
	}
	return e.ValidLen == validLen
}

// Store replaces the entry for docID and sweeps expired entries.
func (c *Cache) Store(docID string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = c.now()
	}
	c.entries[docID] = e
	c.sweepLocked(docID)
}

// sweepLocked drops expired entries and, if bounded, the oldest surplus ones.
func (c *Cache) sweepLocked(keep string) {
	now := c.now()
	for id, e := range c.entries {
		if id != keep && now.Sub(e.CreatedAt) >= c.opts.TTL {
			delete(c.entries, id)
		}
	}
	for c.opts.MaxEntries > 0 && len(c.entries) > c.opts.MaxEntries {
		oldest := ""
		var at time.Time
		for id, e := range c.entries {
			if id == keep {
				continue
			}
			if oldest == "" || e.CreatedAt.Before(at) {
				oldest, at = id, e.CreatedAt
			}
		}
		if oldest == "" {
			return
		}
		delete(c.entries, oldest)
	}
}

// Render returns the window text for cursorLine, reusing the cached rendering
// on a hit. On a miss the source is split into before, window and after
// parts along b's render window, the window is wrapped in markers, and the
// result is stored with b's cache window. The source's character length is
// the validity key.
func (c *Cache) Render(docID string, src Source, cursorLine int, b document.Bounds) string {
	validLen := utf8.RuneCountInString(src.Text)
	if text, ok := c.Lookup(docID, cursorLine, validLen); ok {
		return text
	}

	text := c.build(src, b)
	c.Store(docID, Entry{
		CacheFromLine:   b.CacheFrom,
		CacheToLine:     b.CacheTo,
		Text:            text,
		WindowStartLine: max(b.RenderFrom, src.StartLine),
		ValidLen:        validLen,
	})
	return text
}

func (c *Cache) build(src Source, b document.Bounds) string {
	from := max(b.RenderFrom-src.StartLine, 0)
	to := b.RenderTo - src.StartLine + 1
	if to < from {
		to = from
	}
	a := document.LineOffset(src.Text, from)
	z := document.LineOffset(src.Text, to)

	var sb strings.Builder
	sb.Grow(len(src.Text) + len(c.opts.Markers.Start) + len(c.opts.Markers.End) + 1)
	sb.WriteString(src.Text[:a])
	sb.WriteString(c.opts.Markers.Start)
	sb.WriteString(src.Text[a:z])
	if z > a && src.Text[z-1] != '\n' {
		// Window ran to the end of an unterminated last line.
		sb.WriteByte('\n')
	}
	sb.WriteString(c.opts.Markers.End)
	sb.WriteString(src.Text[z:])
	return sb.String()
}

// Get returns the raw entry for docID.
func (c *Cache) Get(docID string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[docID]
	return e, ok
}

// Invalidate forgets the entry for docID.
func (c *Cache) Invalidate(docID string) {
	c.mu.Lock()
	delete(c.entries, docID)
	c.mu.Unlock()
}

// Clear forgets every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns lookup hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
