// ABOUTME: Table-driven tests for the chunk-fed line splitter and field parsing
// ABOUTME: Covers split lines across chunks, CRLF, residue drain and oversize lines

package sse

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLineSplitterFeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		chunks []string
		want   []string
		rest   []string
	}{
		{
			name:   "single complete line",
			chunks: []string{"data: one\n"},
			want:   []string{"data: one"},
		},
		{
			name:   "line split across chunks",
			chunks: []string{"data: {\"a\"", ":1}\n"},
			want:   []string{`data: {"a":1}`},
		},
		{
			name:   "several lines in one chunk",
			chunks: []string{"a\n\nb\n"},
			want:   []string{"a", "", "b"},
		},
		{
			name:   "crlf terminators",
			chunks: []string{"a\r\nb\r", "\n"},
			want:   []string{"a", "b"},
		},
		{
			name:   "residue kept until flush",
			chunks: []string{"data: x\n", "{\"error\":{}}"},
			want:   []string{"data: x"},
			rest:   []string{`{"error":{}}`},
		},
		{
			name:   "empty body",
			chunks: nil,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewLineSplitter(0)
			var got []string
			for _, c := range tt.chunks {
				got = append(got, s.Feed([]byte(c))...)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.rest, s.Flush()); diff != "" {
				t.Errorf("flush mismatch (-want +got):\n%s", diff)
			}
			if s.Pending() != 0 {
				t.Errorf("Pending() = %d after Flush", s.Pending())
			}
		})
	}
}

func TestLineSplitterDropsOversizeLine(t *testing.T) {
	t.Parallel()

	s := NewLineSplitter(8)
	got := s.Feed([]byte("short\n" + strings.Repeat("x", 6)))
	got = append(got, s.Feed([]byte(strings.Repeat("y", 6)))...)
	got = append(got, s.Feed([]byte("zz\nnext\n"))...)

	want := []string{"short", "next"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line, field, value string
	}{
		{"data: hello", "data", "hello"},
		{"data:nospace", "data", "nospace"},
		{"data: key: value", "data", "key: value"},
		{"data: [DONE]", "data", "[DONE]"},
		{`{"error":1}`, `{"error"`, "1}"},
		{"bare", "bare", ""},
	}
	for _, tt := range tests {
		f, v := Field(tt.line)
		if f != tt.field || v != tt.value {
			t.Errorf("Field(%q) = (%q, %q), want (%q, %q)", tt.line, f, v, tt.field, tt.value)
		}
	}
}

func BenchmarkLineSplitterFeed(b *testing.B) {
	var sb strings.Builder
	for range 50 {
		sb.WriteString(`data: {"choices":[{"delta":{"content":"tok"}}]}` + "\n\n")
	}
	payload := []byte(sb.String())

	for b.Loop() {
		s := NewLineSplitter(0)
		for i := 0; i < len(payload); i += 97 {
			end := min(i+97, len(payload))
			_ = s.Feed(payload[i:end])
		}
		_ = s.Flush()
	}
}
