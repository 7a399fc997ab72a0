package repair

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// ScoredCandidate is a candidate with its plausibility score.
type ScoredCandidate struct {
	Candidate
	Score float64
}

// Resolution records how the winning candidate was selected.
type Resolution int

const (
	ResolvedNone Resolution = iota
	ResolvedSingle
	ResolvedClear
	ResolvedChosen
)

func (r Resolution) String() string {
	switch r {
	case ResolvedSingle:
		return "single"
	case ResolvedClear:
		return "clear"
	case ResolvedChosen:
		return "chosen"
	default:
		return "none"
	}
}

// Margin is the ambiguity threshold. The top two candidates are ambiguous when
// their score difference is below max(Absolute, Relative*|top|).
type Margin struct {
	Absolute float64
	Relative float64
}

// Threshold returns the effective margin for a given top score.
func (m Margin) Threshold(top float64) float64 {
	return math.Max(m.Absolute, m.Relative*math.Abs(top))
}

// ChoiceRequest is handed to a Chooser for an ambiguous row. Candidates are
// ranked best first.
type ChoiceRequest struct {
	Row        int
	Line       int
	Header     []string
	Raw        []string
	Candidates []ScoredCandidate
}

// Chooser settles ambiguous rows, typically by asking a human. It returns the
// index of the selected candidate in req.Candidates.
type Chooser interface {
	Choose(ctx context.Context, req ChoiceRequest) (int, error)
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc func(ctx context.Context, req ChoiceRequest) (int, error)

func (f ChooserFunc) Choose(ctx context.Context, req ChoiceRequest) (int, error) {
	return f(ctx, req)
}

// Rank sorts candidates by descending score. Equal scores keep their input
// order, which is the configured text column order.
func Rank(cands []ScoredCandidate) []ScoredCandidate {
	out := append([]ScoredCandidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Column.Order < out[j].Column.Order
	})
	return out
}

// IsAmbiguous reports whether the two best ranked candidates are too close to
// call.
func IsAmbiguous(ranked []ScoredCandidate, m Margin) bool {
	if len(ranked) < 2 {
		return false
	}
	top, second := ranked[0].Score, ranked[1].Score
	return top-second < m.Threshold(top)
}

// Resolve selects the winning candidate for one row. A single candidate wins
// outright, a clear winner is taken automatically, and an ambiguous row goes
// to the chooser. Without a chooser, or when the chooser fails, the row is an
// AmbiguousRowError.
func Resolve(ctx context.Context, req ChoiceRequest, m Margin, chooser Chooser) (ScoredCandidate, Resolution, error) {
	switch len(req.Candidates) {
	case 0:
		return ScoredCandidate{}, ResolvedNone, &UnrepairableRowError{Row: req.Row, Line: req.Line, Fields: req.Raw}
	case 1:
		return req.Candidates[0], ResolvedSingle, nil
	}

	ranked := Rank(req.Candidates)
	if !IsAmbiguous(ranked, m) {
		return ranked[0], ResolvedClear, nil
	}

	ambiguous := func(err error) error {
		return &AmbiguousRowError{Row: req.Row, Line: req.Line, Fields: req.Raw, Candidates: ranked, Err: err}
	}
	if chooser == nil {
		return ScoredCandidate{}, ResolvedNone, ambiguous(ErrNoChooser)
	}
	req.Candidates = ranked
	idx, err := chooser.Choose(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ScoredCandidate{}, ResolvedNone, ctxErr
		}
		return ScoredCandidate{}, ResolvedNone, ambiguous(err)
	}
	if idx < 0 || idx >= len(ranked) {
		return ScoredCandidate{}, ResolvedNone, ambiguous(fmt.Errorf("selection %d out of range [0,%d)", idx, len(ranked)))
	}
	return ranked[idx], ResolvedChosen, nil
}
