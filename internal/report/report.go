// Package report records what a repair run did so failures can be reviewed
// and ambiguous choices replayed.
package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/KaramelBytes/csvrepair-cli/internal/utils"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Report summarizes one repair run.
type Report struct {
	RunID       string       `json:"run_id" yaml:"run_id"`
	Input       string       `json:"input" yaml:"input"`
	Output      string       `json:"output,omitempty" yaml:"output,omitempty"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time    `json:"finished_at" yaml:"finished_at"`
	Header      []string     `json:"header" yaml:"header"`
	TextColumns []string     `json:"text_columns" yaml:"text_columns"`
	Policy      string       `json:"policy" yaml:"policy"`
	Stats       repair.Stats `json:"stats" yaml:"stats"`
	Failures    []Failure    `json:"failures" yaml:"failures"`
	Decisions   []Decision   `json:"decisions,omitempty" yaml:"decisions,omitempty"`
}

// Failure describes a row that was not repaired.
type Failure struct {
	Row        int                `json:"row" yaml:"row"`
	Line       int                `json:"line" yaml:"line"`
	Kind       string             `json:"kind" yaml:"kind"`
	Message    string             `json:"message" yaml:"message"`
	Fields     []string           `json:"fields" yaml:"fields"`
	Candidates []CandidateSummary `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

// CandidateSummary is one ranked option of an ambiguous row.
type CandidateSummary struct {
	Column string   `json:"column" yaml:"column"`
	Score  float64  `json:"score" yaml:"score"`
	Fields []string `json:"fields" yaml:"fields"`
}

// New starts a report for the given input with a fresh run ID.
func New(input string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Input:     input,
		StartedAt: time.Now(),
		Failures:  []Failure{},
	}
}

// Finish copies the outcome of a run into the report.
func (r *Report) Finish(res *repair.Result) {
	r.FinishedAt = time.Now()
	if res == nil {
		return
	}
	r.SetLayout(res.Layout)
	r.Stats = res.Stats
	for _, f := range res.Failures {
		r.Failures = append(r.Failures, FailureOf(f))
	}
}

// SetLayout records the header and resolved text columns of the run.
func (r *Report) SetLayout(l *repair.Layout) {
	if l == nil {
		return
	}
	r.Header = l.Header
	r.TextColumns = l.Names()
}

// Fail records a run that stopped on a per-row error.
func (r *Report) Fail(err error) {
	r.FinishedAt = time.Now()
	if re, ok := repair.AsRowError(err); ok {
		r.Failures = append(r.Failures, FailureOf(re))
		r.Stats.Failed++
	}
}

// FailureOf converts a row error for reporting.
func FailureOf(e repair.RowError) Failure {
	f := Failure{
		Row:     e.RowIndex(),
		Line:    e.LineNumber(),
		Kind:    "unrepairable",
		Message: e.Error(),
		Fields:  e.RawFields(),
	}
	var amb *repair.AmbiguousRowError
	if errors.As(e, &amb) {
		f.Kind = "ambiguous"
		for _, c := range amb.Candidates {
			f.Candidates = append(f.Candidates, CandidateSummary{Column: c.Column.Name, Score: c.Score, Fields: c.Fields})
		}
	}
	return f
}

// Summary is a one-line human readable digest.
func (r *Report) Summary() string {
	s := r.Stats
	return fmt.Sprintf("%d rows: %d exact, %d padded, %d repaired (%d chosen), %d failed",
		s.Rows, s.Exact, s.Short, s.Overflow, s.Chosen, s.Failed)
}

// Save writes the report atomically, as YAML for .yaml/.yml paths and
// indented JSON otherwise.
func (r *Report) Save(path string) error {
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
	default:
		b, err = utils.PrettyJSON(r)
		if err != nil {
			return err
		}
	}
	return utils.SafeWriteFile(path, b)
}
