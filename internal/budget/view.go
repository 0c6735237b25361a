// ABOUTME: Head and cursor-centered truncated views over grapheme cluster boundaries
// ABOUTME: Head and centered views split one budget; overflow at one edge shifts to the opposite edge

package budget

import (
	"sort"

	"github.com/rivo/uniseg"

	"github.com/mauromedda/pi-complete-go/internal/document"
)

// View is what the renderer receives for one document. When truncated, the
// head and centered views together hold at most Limit characters.
type View struct {
	Head     string
	Centered string
	// CenteredStartLine is the document line the centered view starts on.
	CenteredStartLine int
	// LeadingMarker reports that Centered begins with a truncation marker line.
	LeadingMarker bool
	Truncated     bool
	// Limit is the budget in characters; zero when the document is unbounded.
	Limit int
	// Exceeded reports that even the minimal budget does not fit.
	Exceeded bool
}

func whole(text string) View {
	return View{Head: text, Centered: text}
}

// boundaries returns the byte offset of every grapheme cluster start plus len(text).
func boundaries(text string) []int {
	offs := make([]int, 0, len(text)+1)
	state := -1
	rest := text
	pos := 0
	for len(rest) > 0 {
		offs = append(offs, pos)
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		pos += len(cluster)
	}
	return append(offs, pos)
}

// A truncated budget spends 1/headShare of its characters on the file head.
const headShare = 4

// headChars returns the head view's share of limit.
func headChars(limit int) int {
	return limit / headShare
}

func cut(text string, limit, cursorByte int, marker string) View {
	offs := boundaries(text)
	total := len(offs) - 1
	if total <= limit {
		v := whole(text)
		v.Limit = limit
		return v
	}

	v := View{Truncated: true, Limit: limit}
	v.Head = text[:offs[headChars(limit)]] + "\n" + marker + "\n"

	width := limit - headChars(limit)
	// Cluster index of the first boundary at or after the cursor's line start.
	cursor := sort.SearchInts(offs, cursorByte)
	start := cursor - width/2
	end := start + width
	if start < 0 {
		end -= start
		start = 0
	}
	if end > total {
		start -= end - total
		end = total
	}

	from, to := offs[start], offs[end]
	centered := text[from:to]
	if start > 0 {
		centered = marker + "\n" + centered
		v.LeadingMarker = true
	}
	if end < total {
		centered += "\n" + marker + "\n"
	}
	v.Centered = centered
	v.CenteredStartLine = document.OffsetLine(text, from)
	return v
}
