// ABOUTME: One-shot completion command: reads a file, completes at a 1-based line/column and prints the text
// ABOUTME: Streams partial text with --stream; renders faint ghost text when stdout is a terminal

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mauromedda/pi-complete-go/internal/completion"
	"github.com/mauromedda/pi-complete-go/internal/document"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

var (
	faint   = lipgloss.NewStyle().Faint(true)
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

type completeFlags struct {
	line     int
	col      int
	maxLines int
	stream   bool
	id       string
}

func newCompleteCmd(rf *rootFlags) *cobra.Command {
	f := &completeFlags{}
	cmd := &cobra.Command{
		Use:   "complete FILE",
		Short: "Complete FILE at a cursor position and print the suggestion",
		Example: `# Complete main.go at line 42, column 8
pi-complete complete main.go --line 42 --col 8

# Read the buffer from stdin and stream the suggestion
cat main.go | pi-complete complete - --line 42 --col 8 --stream --id main.go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, rf, f, args[0])
		},
	}
	cmd.Flags().IntVarP(&f.line, "line", "l", 1, "Cursor line (1-based)")
	cmd.Flags().IntVarP(&f.col, "col", "c", 1, "Cursor column in characters (1-based)")
	cmd.Flags().IntVar(&f.maxLines, "max-lines", 0, "Stop after this many completed lines (default from settings)")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "Print text as it arrives")
	cmd.Flags().StringVar(&f.id, "id", "", "Document identifier (default: absolute path of FILE)")
	return cmd
}

func runComplete(cmd *cobra.Command, rf *rootFlags, f *completeFlags, path string) error {
	if f.line < 1 || f.col < 1 {
		return errors.New("--line and --col are 1-based")
	}
	snap, err := readSnapshot(cmd.InOrStdin(), path, f.id)
	if err != nil {
		return err
	}
	snap.Line = f.line - 1
	snap.Character = f.col - 1

	a, err := newApp(rf, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.ensureServer(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ghost := isTerminal(out)
	printed := 0
	emit := func(text string) {
		if len(text) <= printed {
			return
		}
		chunk := text[printed:]
		if ghost {
			chunk = faint.Render(chunk)
		}
		fmt.Fprint(out, chunk)
		printed = len(text)
	}

	co := completion.CompleteOptions{MaxLines: f.maxLines}
	if f.stream {
		co.OnPartial = func(text string) bool {
			emit(text)
			return true
		}
	}

	res := a.engine.Complete(ctx, snap, nil, co)
	emit(res.Text)
	if res.Text != "" && !strings.HasSuffix(res.Text, "\n") {
		fmt.Fprintln(out)
	}
	printStatus(cmd.ErrOrStderr(), res)

	switch res.Reason {
	case ai.ReasonError:
		if res.Err == nil {
			return errors.New("completion failed")
		}
		return res.Err
	case ai.ReasonExceedContextSize:
		if res.Overflow != nil {
			return fmt.Errorf("context window exceeded: %s", res.Overflow)
		}
		return res.Err
	case ai.ReasonAborted:
		return ctx.Err()
	}
	return nil
}

// readSnapshot loads the buffer from path, or stdin when path is "-".
func readSnapshot(stdin io.Reader, path, id string) (document.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
		if id == "" {
			id = "stdin"
		}
	} else {
		data, err = os.ReadFile(path)
		if id == "" {
			id, _ = filepath.Abs(path)
		}
	}
	if err != nil {
		return document.Snapshot{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return document.Snapshot{ID: id, Text: string(data)}, nil
}

func isTerminal(w io.Writer) bool {
	fd, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(fd.Fd()))
}

// printStatus reports the terminal reason on w when it is a terminal.
func printStatus(w io.Writer, res ai.Result) {
	if !isTerminal(w) {
		return
	}
	line := fmt.Sprintf("[%s]", res.Reason)
	if res.Overflow != nil {
		line += " " + res.Overflow.String()
	}
	style := faint
	if res.Reason == ai.ReasonError || res.Reason == ai.ReasonExceedContextSize {
		style = warning
	}
	fmt.Fprintln(w, style.Render(line))
}
