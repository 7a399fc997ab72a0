// Package repair restores rows of a comma-separated file whose free-text
// columns contain unquoted commas.
//
// A row with more fields than the header is repaired by merging a contiguous
// run of fields back into one configured text column. When several text
// columns are configured each one yields a candidate; candidates are scored
// and the best one wins unless the top two are within the ambiguity margin,
// in which case a Chooser decides or the row fails.
package repair

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrorPolicy controls what happens when a single row cannot be repaired.
type ErrorPolicy string

const (
	// PolicyAbort stops the run at the first failing row.
	PolicyAbort ErrorPolicy = "abort"
	// PolicyCollect keeps going and reports every failing row in the Result.
	PolicyCollect ErrorPolicy = "collect"
)

// ParsePolicy validates a policy name. Empty selects PolicyAbort.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyCollect:
		return PolicyCollect, nil
	default:
		return "", fmt.Errorf("unknown error policy %q (use abort or collect)", s)
	}
}

// Options configures a Repairer.
type Options struct {
	// TextColumns lists the free-text columns in tie-break order.
	TextColumns []string
	// Margin is the ambiguity threshold between the top two candidates.
	Margin Margin
	// Weights tunes candidate scoring.
	Weights Weights
	// UseProfiles derives column profiles from clean rows to inform scoring.
	UseProfiles bool
	// Policy decides whether a failing row aborts the run.
	Policy ErrorPolicy
	// Workers bounds concurrent row processing; values below 1 mean 1.
	Workers int
	// Chooser settles ambiguous rows. Nil makes ambiguous rows fail.
	Chooser Chooser
	// Logger receives per-row diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns conservative defaults: one DESCRIPTION column,
// abort on the first failing row, no chooser.
func DefaultOptions() Options {
	return Options{
		TextColumns: []string{DefaultTextColumn},
		Margin:      Margin{Absolute: 0.5},
		Weights:     DefaultWeights(),
		UseProfiles: true,
		Policy:      PolicyAbort,
		Workers:     1,
	}
}

// Row is one tokenized input record. Line is the 1-based source line; zero
// means unknown and is derived from the row index.
type Row struct {
	Line   int
	Fields []string
}

// RepairedRow is one output record, exactly as wide as the header.
type RepairedRow struct {
	Index      int
	Line       int
	Kind       Kind
	Fields     []string
	Column     string // text column that absorbed the overflow
	Score      float64
	Resolution Resolution
}

// Stats counts how rows were handled.
type Stats struct {
	Rows     int `json:"rows" yaml:"rows"`
	Exact    int `json:"exact" yaml:"exact"`
	Short    int `json:"short" yaml:"short"`
	Overflow int `json:"overflow" yaml:"overflow"`
	Single   int `json:"single" yaml:"single"`
	Clear    int `json:"clear" yaml:"clear"`
	Chosen   int `json:"chosen" yaml:"chosen"`
	Failed   int `json:"failed" yaml:"failed"`
}

// Result is the outcome of a run. Rows and Failures are both in input order
// and together account for every input row.
type Result struct {
	Layout   *Layout
	Profiles Profiles
	Rows     []RepairedRow
	Failures []RowError
	Stats    Stats
}

// Records returns the repaired field slices in order, ready for a CSV writer.
func (r *Result) Records() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Fields
	}
	return out
}

// Repairer runs the classify, generate, score, resolve and reconstruct
// pipeline over a table. It holds no per-run state and may be reused.
type Repairer struct {
	opts Options
	log  *zap.Logger
}

// New validates the options and returns a Repairer.
func New(opts Options) (*Repairer, error) {
	if len(opts.TextColumns) == 0 {
		return nil, &ConfigError{Reason: "at least one text column must be configured"}
	}
	if opts.Margin.Absolute < 0 || opts.Margin.Relative < 0 {
		return nil, &ConfigError{Reason: "ambiguity margin must not be negative"}
	}
	policy, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	opts.Policy = policy
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Repairer{opts: opts, log: log}, nil
}

// plan is the immutable per-run state shared by all row workers.
type plan struct {
	layout *Layout
	scorer Scorer
}

type slot struct {
	row  RepairedRow
	err  error
	done bool
}

// Repair analyzes the header, then repairs every row. The header is checked
// before any row is touched; a ConfigError means nothing was processed.
func (rp *Repairer) Repair(ctx context.Context, header []string, rows []Row) (*Result, error) {
	layout, err := AnalyzeHeader(header, rp.opts.TextColumns)
	if err != nil {
		return nil, err
	}
	p := &plan{layout: layout, scorer: Scorer{Weights: rp.opts.Weights}}
	if rp.opts.UseProfiles {
		p.scorer.Profiles = BuildProfiles(layout.Width, rows)
	}
	rp.log.Debug("header analyzed",
		zap.Int("width", layout.Width),
		zap.Strings("text_columns", layout.Names()),
		zap.Int("rows", len(rows)))

	slots := make([]slot, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rp.opts.Workers)
	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := rp.repairRow(gctx, p, i, rows[i])
			slots[i] = slot{row: r, err: err, done: true}
			if err == nil {
				return nil
			}
			if _, ok := AsRowError(err); ok && rp.opts.Policy == PolicyCollect {
				return nil
			}
			return err
		})
	}
	if werr := g.Wait(); werr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Report the earliest failing row rather than whichever finished first.
		// Rows interrupted by the group's cancellation only carry ctx errors.
		for _, s := range slots {
			if _, ok := AsRowError(s.err); ok && s.done {
				return nil, s.err
			}
		}
		return nil, werr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Layout: layout, Profiles: p.scorer.Profiles}
	res.Stats.Rows = len(rows)
	for _, s := range slots {
		if s.err != nil {
			re, _ := AsRowError(s.err)
			res.Failures = append(res.Failures, re)
			res.Stats.Failed++
			rp.log.Warn("row not repaired", zap.Int("line", re.LineNumber()), zap.Error(s.err))
			continue
		}
		res.Rows = append(res.Rows, s.row)
		switch s.row.Kind {
		case Exact:
			res.Stats.Exact++
		case Short:
			res.Stats.Short++
		case Overflow:
			res.Stats.Overflow++
		}
		switch s.row.Resolution {
		case ResolvedSingle:
			res.Stats.Single++
		case ResolvedClear:
			res.Stats.Clear++
		case ResolvedChosen:
			res.Stats.Chosen++
		}
	}
	return res, nil
}

// RepairRow repairs a single row against a header. It is a convenience for
// callers that process rows one at a time; profiles are not used.
func (rp *Repairer) RepairRow(ctx context.Context, header []string, index int, row Row) (RepairedRow, error) {
	layout, err := AnalyzeHeader(header, rp.opts.TextColumns)
	if err != nil {
		return RepairedRow{}, err
	}
	return rp.repairRow(ctx, &plan{layout: layout, scorer: Scorer{Weights: rp.opts.Weights}}, index, row)
}

func (rp *Repairer) repairRow(ctx context.Context, p *plan, idx int, row Row) (RepairedRow, error) {
	line := row.Line
	if line == 0 {
		line = idx + 2 // header is line 1
	}
	width := p.layout.Width
	cls := Classify(len(row.Fields), width)
	out := RepairedRow{Index: idx, Line: line, Kind: cls.Kind}

	switch cls.Kind {
	case Exact, Short:
		out.Fields = Pad(row.Fields, width)
		return out, nil
	}

	raw := append([]string(nil), row.Fields...)
	cands := Generate(p.layout, raw)
	if len(cands) == 0 {
		return out, &UnrepairableRowError{Row: idx, Line: line, Fields: raw}
	}
	rc := RowContext{Layout: p.layout, Raw: raw}
	scored := make([]ScoredCandidate, len(cands))
	for i, c := range cands {
		scored[i] = ScoredCandidate{Candidate: c, Score: p.scorer.Score(c, rc)}
	}

	req := ChoiceRequest{Row: idx, Line: line, Header: p.layout.Header, Raw: raw, Candidates: scored}
	win, how, err := Resolve(ctx, req, rp.opts.Margin, rp.opts.Chooser)
	if err != nil {
		var amb *AmbiguousRowError
		if errors.As(err, &amb) {
			rp.log.Info("ambiguous row left unresolved", zap.Int("line", line), zap.Error(err))
		}
		return out, err
	}
	if how == ResolvedChosen {
		rp.log.Info("ambiguous row resolved by chooser",
			zap.Int("line", line), zap.String("column", win.Column.Name))
	}
	rp.log.Debug("row repaired",
		zap.Int("line", line),
		zap.Int("overflow", cls.Overflow),
		zap.String("column", win.Column.Name),
		zap.Float64("score", win.Score),
		zap.Stringer("resolution", how))

	out.Fields = Reconstruct(win.Candidate)
	out.Column = win.Column.Name
	out.Score = win.Score
	out.Resolution = how
	return out, nil
}
