package repair

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoChooser is wrapped by AmbiguousRowError when no interactive chooser
	// is configured.
	ErrNoChooser = errors.New("no interactive chooser available")
	// ErrDeclined is returned by a chooser that cannot or will not pick a
	// candidate (for example on end of input).
	ErrDeclined = errors.New("no repair selected")
)

// ConfigError reports a configuration that cannot be applied to the header.
// It is raised once, before any row is processed.
type ConfigError struct {
	Column string
	Header []string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("column %q not found in header [%s]", e.Column, strings.Join(e.Header, ", "))
	}
	return "invalid configuration: " + e.Reason
}

// RowError is implemented by the per-row failures.
type RowError interface {
	error
	RowIndex() int
	LineNumber() int
	RawFields() []string
}

// UnrepairableRowError reports an overflow row for which no configured text
// column produced a candidate.
type UnrepairableRowError struct {
	Row    int
	Line   int
	Fields []string
}

func (e *UnrepairableRowError) Error() string {
	return fmt.Sprintf("line %d: row has %d fields and no text column can absorb the overflow", e.Line, len(e.Fields))
}

func (e *UnrepairableRowError) RowIndex() int       { return e.Row }
func (e *UnrepairableRowError) LineNumber() int     { return e.Line }
func (e *UnrepairableRowError) RawFields() []string { return e.Fields }

// AmbiguousRowError reports an overflow row whose best candidates scored
// within the ambiguity margin and could not be settled by a chooser.
type AmbiguousRowError struct {
	Row        int
	Line       int
	Fields     []string
	Candidates []ScoredCandidate
	Err        error
}

func (e *AmbiguousRowError) Error() string {
	cols := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		cols[i] = fmt.Sprintf("%s (%.3f)", c.Column.Name, c.Score)
	}
	msg := fmt.Sprintf("line %d: ambiguous repair between %s", e.Line, strings.Join(cols, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AmbiguousRowError) Unwrap() error       { return e.Err }
func (e *AmbiguousRowError) RowIndex() int       { return e.Row }
func (e *AmbiguousRowError) LineNumber() int     { return e.Line }
func (e *AmbiguousRowError) RawFields() []string { return e.Fields }

// AsRowError reports whether err is a per-row failure and returns it.
func AsRowError(err error) (RowError, bool) {
	var u *UnrepairableRowError
	if errors.As(err, &u) {
		return u, true
	}
	var a *AmbiguousRowError
	if errors.As(err, &a) {
		return a, true
	}
	return nil, false
}
