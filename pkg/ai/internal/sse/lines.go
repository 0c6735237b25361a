// ABOUTME: Chunk-fed line splitter for server-sent event bodies
// ABOUTME: Retains the trailing partial line across reads; drains the residue at end of body

package sse

import "bytes"

// MaxLineSize caps a single buffered line (1MB). A longer line is dropped
// up to its terminating newline; it could not be decoded anyway.
const MaxLineSize = 1024 * 1024

// LineSplitter turns arbitrary body chunks into complete lines.
// It is not safe for concurrent use; one splitter belongs to one response body.
type LineSplitter struct {
	buf      []byte
	max      int
	skipping bool
}

// NewLineSplitter creates a splitter. maxLine <= 0 selects MaxLineSize.
func NewLineSplitter(maxLine int) *LineSplitter {
	if maxLine <= 0 {
		maxLine = MaxLineSize
	}
	return &LineSplitter{
		buf: make([]byte, 0, 4096),
		max: maxLine,
	}
}

// Feed appends chunk and returns every line it completed, without the
// terminating "\n" or "\r\n". The incomplete tail stays buffered.
func (s *LineSplitter) Feed(chunk []byte) []string {
	var lines []string
	for len(chunk) > 0 {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			s.appendPartial(chunk)
			break
		}
		if s.skipping {
			s.skipping = false
		} else {
			s.buf = append(s.buf, chunk[:idx]...)
			lines = append(lines, string(bytes.TrimSuffix(s.buf, []byte{'\r'})))
		}
		s.buf = s.buf[:0]
		chunk = chunk[idx+1:]
	}
	return lines
}

// Flush returns the buffered residue as a final line, if any, and resets the splitter.
func (s *LineSplitter) Flush() []string {
	defer func() {
		s.buf = s.buf[:0]
		s.skipping = false
	}()
	if s.skipping || len(s.buf) == 0 {
		return nil
	}
	return []string{string(bytes.TrimSuffix(s.buf, []byte{'\r'}))}
}

// Pending returns the number of buffered bytes of the incomplete line.
func (s *LineSplitter) Pending() int {
	return len(s.buf)
}

func (s *LineSplitter) appendPartial(p []byte) {
	if s.skipping {
		return
	}
	if len(s.buf)+len(p) > s.max {
		s.buf = s.buf[:0]
		s.skipping = true
		return
	}
	s.buf = append(s.buf, p...)
}

// Field splits an SSE line into field name and value.
// The optional single space after the colon is stripped.
func Field(line string) (string, string) {
	idx := indexColon(line)
	if idx < 0 {
		return line, ""
	}

	field := line[:idx]
	value := line[idx+1:]

	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}

	return field, value
}

func indexColon(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}
