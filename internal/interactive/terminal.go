// Package interactive settles ambiguous rows, either by asking a person at
// the terminal or from decisions recorded in an earlier run.
package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
)

// DefaultMaxOptions caps how many ranked candidates are offered.
const DefaultMaxOptions = 4

// Terminal prompts on Out and reads the answer from In. Prompts from
// concurrent rows are serialized.
type Terminal struct {
	MaxOptions int

	mu    sync.Mutex
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan inputLine
}

type inputLine struct {
	text string
	err  error
}

// NewTerminal returns a chooser reading from in and writing prompts to out.
func NewTerminal(in io.Reader, out io.Writer, maxOptions int) *Terminal {
	if maxOptions <= 0 {
		maxOptions = DefaultMaxOptions
	}
	return &Terminal{MaxOptions: maxOptions, in: bufio.NewReader(in), out: out, lines: make(chan inputLine)}
}

// readLines feeds lines to Choose until the input fails. A line read while no
// prompt is waiting is held for the next prompt.
func (t *Terminal) readLines() {
	defer close(t.lines)
	for {
		text, err := t.in.ReadString('\n')
		t.lines <- inputLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// next waits for one line of input or for ctx to be done.
func (t *Terminal) next(ctx context.Context) (inputLine, error) {
	t.once.Do(func() { go t.readLines() })
	select {
	case <-ctx.Done():
		return inputLine{}, ctx.Err()
	case l, ok := <-t.lines:
		if !ok {
			return inputLine{err: io.EOF}, nil
		}
		if err := ctx.Err(); err != nil {
			return inputLine{}, err
		}
		return l, nil
	}
}

// Choose implements repair.Chooser. Entering "s" skips the row, and end of
// input declines it. Canceling ctx abandons the prompt.
func (t *Terminal) Choose(ctx context.Context, req repair.ChoiceRequest) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := min(t.MaxOptions, len(req.Candidates))
	fmt.Fprint(t.out, Describe(req, n))
	fmt.Fprintf(t.out, "Selection [1-%d, s to skip]: ", n)
	for {
		l, ctxErr := t.next(ctx)
		if ctxErr != nil {
			fmt.Fprintln(t.out)
			return 0, ctxErr
		}
		answer, err := strings.TrimSpace(l.text), l.err
		if answer == "" && err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(t.out)
				return 0, fmt.Errorf("%w: input closed at line %d", repair.ErrDeclined, req.Line)
			}
			return 0, fmt.Errorf("read selection: %w", err)
		}
		if strings.EqualFold(answer, "s") {
			return 0, fmt.Errorf("%w: skipped line %d", repair.ErrDeclined, req.Line)
		}
		if choice, convErr := strconv.Atoi(answer); convErr == nil && choice >= 1 && choice <= n {
			return choice - 1, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: invalid selection %q at line %d", repair.ErrDeclined, answer, req.Line)
		}
		fmt.Fprintf(t.out, "Invalid selection. Enter a number between 1 and %d: ", n)
	}
}

// Describe renders the first n ranked candidates of an ambiguous row.
func Describe(req repair.ChoiceRequest, n int) string {
	if n > len(req.Candidates) {
		n = len(req.Candidates)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ambiguous CSV row at line %d.\n", req.Line)
	fmt.Fprintf(&sb, "Raw row: %s\n", strings.Join(req.Raw, ","))
	sb.WriteString("Choose the correct repair:\n")
	for i, c := range req.Candidates[:n] {
		fmt.Fprintf(&sb, "%d. merge into '%s' (score=%.3f) -> %s\n", i+1, c.Column.Name, c.Score, preview(req.Header, c.Fields))
	}
	return sb.String()
}

func preview(header, fields []string) string {
	parts := make([]string, len(fields))
	for i, v := range fields {
		name := strconv.Itoa(i + 1)
		if i < len(header) {
			name = header[i]
		}
		parts[i] = name + "=" + v
	}
	return strings.Join(parts, " | ")
}
