package interactive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/KaramelBytes/csvrepair-cli/internal/report"
)

// ErrNoDecision is returned by Scripted for rows it has no answer for.
var ErrNoDecision = errors.New("no recorded decision")

// Scripted answers from decisions keyed by source line.
type Scripted struct {
	byLine map[int]string
}

// NewScripted builds a chooser from recorded decisions. Later entries for the
// same line win.
func NewScripted(d *report.Decisions) *Scripted {
	s := &Scripted{byLine: map[int]string{}}
	if d == nil {
		return s
	}
	for _, c := range d.Choices {
		s.byLine[c.Line] = c.Column
	}
	return s
}

// Len returns the number of lines with a decision.
func (s *Scripted) Len() int { return len(s.byLine) }

func (s *Scripted) Choose(_ context.Context, req repair.ChoiceRequest) (int, error) {
	col, ok := s.byLine[req.Line]
	if !ok {
		return 0, fmt.Errorf("line %d: %w", req.Line, ErrNoDecision)
	}
	for i, c := range req.Candidates {
		if c.Column.Name == col {
			return i, nil
		}
	}
	return 0, fmt.Errorf("line %d: recorded column %q is not a candidate", req.Line, col)
}

// Chain asks each chooser in turn, moving on only when one has no decision.
type Chain []repair.Chooser

func (c Chain) Choose(ctx context.Context, req repair.ChoiceRequest) (int, error) {
	for _, ch := range c {
		if ch == nil {
			continue
		}
		idx, err := ch.Choose(ctx, req)
		if errors.Is(err, ErrNoDecision) {
			continue
		}
		return idx, err
	}
	return 0, fmt.Errorf("%w: no chooser could decide line %d", repair.ErrDeclined, req.Line)
}

// Recorder wraps a chooser and remembers every successful decision so a run
// can be replayed with Scripted.
type Recorder struct {
	Next repair.Chooser

	mu      sync.Mutex
	choices []report.Decision
}

func (r *Recorder) Choose(ctx context.Context, req repair.ChoiceRequest) (int, error) {
	idx, err := r.Next.Choose(ctx, req)
	if err != nil {
		return idx, err
	}
	if idx >= 0 && idx < len(req.Candidates) {
		r.mu.Lock()
		r.choices = append(r.choices, report.Decision{Line: req.Line, Column: req.Candidates[idx].Column.Name})
		r.mu.Unlock()
	}
	return idx, nil
}

// Decisions returns the recorded choices ordered by line.
func (r *Recorder) Decisions() []report.Decision {
	r.mu.Lock()
	out := append([]report.Decision(nil), r.choices...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}
