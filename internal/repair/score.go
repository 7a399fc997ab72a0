package repair

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Weights tunes the plausibility heuristics. All signals are deterministic.
type Weights struct {
	// Pieces rewards each extra comma-joined piece in the merged value.
	Pieces float64 `mapstructure:"pieces" yaml:"pieces" json:"pieces"`
	// Length rewards longer merged values on a log scale.
	Length float64 `mapstructure:"length" yaml:"length" json:"length"`
	// Neighbor rewards each short structured token bordering the merge span.
	Neighbor float64 `mapstructure:"neighbor" yaml:"neighbor" json:"neighbor"`
	// Continuation penalizes merged pieces (after the first) that start with an
	// upper-case letter; a new field is likelier there than a continuation.
	Continuation float64 `mapstructure:"continuation" yaml:"continuation" json:"continuation"`
	// EmptyPiece penalizes each empty piece inside the merged value.
	EmptyPiece float64 `mapstructure:"empty_piece" yaml:"empty_piece" json:"empty_piece"`
	// Degenerate penalizes a merged value made only of commas and whitespace.
	Degenerate float64 `mapstructure:"degenerate" yaml:"degenerate" json:"degenerate"`
	// Profile scales the column-profile deviation penalty. Zero disables it.
	Profile float64 `mapstructure:"profile" yaml:"profile" json:"profile"`

	TextDeviationScale float64 `mapstructure:"text_deviation_scale" yaml:"text_deviation_scale" json:"text_deviation_scale"`
	NumericMismatch    float64 `mapstructure:"numeric_mismatch" yaml:"numeric_mismatch" json:"numeric_mismatch"`
	MissingValue       float64 `mapstructure:"missing_value" yaml:"missing_value" json:"missing_value"`
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		Pieces:             1.0,
		Length:             0.5,
		Neighbor:           0.5,
		Continuation:       2.0,
		EmptyPiece:         0.25,
		Degenerate:         10.0,
		Profile:            1.0,
		TextDeviationScale: 0.6,
		NumericMismatch:    5.0,
		MissingValue:       2.0,
	}
}

// RowContext is the read-only context a candidate is scored against.
type RowContext struct {
	Layout *Layout
	Raw    []string
}

// Scorer assigns plausibility scores; higher is more plausible. A Scorer is
// immutable once built and safe for concurrent use.
type Scorer struct {
	Weights  Weights
	Profiles Profiles
}

// Score is a pure function of the candidate and its row context.
func (s Scorer) Score(c Candidate, rc RowContext) float64 {
	w := s.Weights
	score := w.Pieces * float64(len(c.Pieces)-1)
	score += w.Length * math.Log1p(float64(utf8.RuneCountInString(c.Value)))

	if c.Start > 0 && c.Start-1 < len(rc.Raw) && isSimpleToken(rc.Raw[c.Start-1]) {
		score += w.Neighbor
	}
	if c.End+1 < len(rc.Raw) && isSimpleToken(rc.Raw[c.End+1]) {
		score += w.Neighbor
	}

	for i, p := range c.Pieces {
		if p == "" {
			score -= w.EmptyPiece
			continue
		}
		if i > 0 && startsUpper(p) {
			score -= w.Continuation
		}
	}
	if isDegenerate(c.Value) {
		score -= w.Degenerate
	}
	if w.Profile != 0 && len(s.Profiles) > 0 {
		score -= w.Profile * s.Profiles.Deviation(c.Fields, rc.Layout, w)
	}
	return score
}

// isSimpleToken reports whether a field looks like a short structured value:
// a number or a compact code without spaces.
func isSimpleToken(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	if isNumeric(t) {
		return true
	}
	if utf8.RuneCountInString(t) > 12 {
		return false
	}
	for _, r := range t {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case '-', '_', '.', '/', ':', '#':
			continue
		}
		return false
	}
	return true
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(strings.TrimLeftFunc(s, unicode.IsSpace))
	return unicode.IsUpper(r)
}

func isDegenerate(v string) bool {
	return strings.TrimFunc(v, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	}) == ""
}
