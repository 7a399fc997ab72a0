package repair

import (
	"fmt"
	"strings"
)

// Inspection is a dry run over a table: nothing is resolved or prompted, every
// overflow row just lists its ranked candidates.
type Inspection struct {
	Name     string          `json:"name,omitempty"`
	Header   []string        `json:"header"`
	Columns  []TextColumn    `json:"text_columns"`
	Stats    Stats           `json:"stats"`
	Profiles []ProfileReport `json:"profiles,omitempty"`
	Rows     []RowReport     `json:"overflow_rows"`
	// Truncated counts overflow rows left out by the row limit.
	Truncated int `json:"truncated,omitempty"`
}

// ProfileReport is a named ColumnProfile.
type ProfileReport struct {
	Column        string  `json:"column"`
	Rows          int     `json:"rows"`
	MeanLength    float64 `json:"mean_length"`
	NumericRatio  float64 `json:"numeric_ratio"`
	NonEmptyRatio float64 `json:"non_empty_ratio"`
}

// RowReport lists the ranked candidates of one overflow row.
type RowReport struct {
	Line       int               `json:"line"`
	Overflow   int               `json:"overflow"`
	Ambiguous  bool              `json:"ambiguous"`
	Candidates []CandidateReport `json:"candidates"`
}

// CandidateReport is one scored option.
type CandidateReport struct {
	Column string   `json:"column"`
	Score  float64  `json:"score"`
	Value  string   `json:"value"`
	Fields []string `json:"fields"`
}

// Inspect classifies and scores every row without resolving anything. limit
// caps the overflow rows listed; zero lists all of them.
func Inspect(header []string, rows []Row, opts Options, limit int) (*Inspection, error) {
	layout, err := AnalyzeHeader(header, opts.TextColumns)
	if err != nil {
		return nil, err
	}
	scorer := Scorer{Weights: opts.Weights}
	if opts.UseProfiles {
		scorer.Profiles = BuildProfiles(layout.Width, rows)
	}
	ins := &Inspection{Header: layout.Header, Columns: layout.Columns}
	for i, p := range scorer.Profiles {
		if p == nil {
			continue
		}
		ins.Profiles = append(ins.Profiles, ProfileReport{
			Column:        layout.Header[i],
			Rows:          p.Rows,
			MeanLength:    p.MeanLength,
			NumericRatio:  p.NumericRatio,
			NonEmptyRatio: p.NonEmptyRatio,
		})
	}

	ins.Stats.Rows = len(rows)
	for idx, row := range rows {
		cls := Classify(len(row.Fields), layout.Width)
		switch cls.Kind {
		case Exact:
			ins.Stats.Exact++
			continue
		case Short:
			ins.Stats.Short++
			continue
		}
		ins.Stats.Overflow++
		line := row.Line
		if line == 0 {
			line = idx + 2
		}
		cands := Generate(layout, row.Fields)
		if len(cands) == 0 {
			ins.Stats.Failed++
		}
		if limit > 0 && len(ins.Rows) >= limit {
			ins.Truncated++
			continue
		}
		rc := RowContext{Layout: layout, Raw: row.Fields}
		scored := make([]ScoredCandidate, len(cands))
		for i, c := range cands {
			scored[i] = ScoredCandidate{Candidate: c, Score: scorer.Score(c, rc)}
		}
		ranked := Rank(scored)
		rr := RowReport{Line: line, Overflow: cls.Overflow, Ambiguous: IsAmbiguous(ranked, opts.Margin)}
		for _, sc := range ranked {
			rr.Candidates = append(rr.Candidates, CandidateReport{
				Column: sc.Column.Name,
				Score:  sc.Score,
				Value:  sc.Value,
				Fields: sc.Fields,
			})
		}
		ins.Rows = append(ins.Rows, rr)
	}
	return ins, nil
}

// Text renders the inspection for a terminal.
func (ins *Inspection) Text() string {
	var b strings.Builder
	b.WriteString("[LAYOUT]\n")
	if ins.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", ins.Name))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(ins.Header)))
	names := make([]string, len(ins.Columns))
	for i, c := range ins.Columns {
		names[i] = fmt.Sprintf("%s(#%d)", c.Name, c.Position+1)
	}
	b.WriteString(fmt.Sprintf("Text columns: %s\n", strings.Join(names, ", ")))

	s := ins.Stats
	b.WriteString("\n[ROWS]\n")
	b.WriteString(fmt.Sprintf("Total: %d (exact %d, short %d, overflow %d, unrepairable %d)\n",
		s.Rows, s.Exact, s.Short, s.Overflow, s.Failed))

	if len(ins.Profiles) > 0 {
		b.WriteString("\n[PROFILES]\n")
		for _, p := range ins.Profiles {
			b.WriteString(fmt.Sprintf("- %s: mean length %.1f, numeric %.0f%%, non-empty %.0f%% (n=%d)\n",
				p.Column, p.MeanLength, p.NumericRatio*100, p.NonEmptyRatio*100, p.Rows))
		}
	}

	if len(ins.Rows) > 0 {
		b.WriteString("\n[OVERFLOW ROWS]\n")
		for _, r := range ins.Rows {
			marker := ""
			if r.Ambiguous {
				marker = " AMBIGUOUS"
			}
			b.WriteString(fmt.Sprintf("- line %d (+%d)%s\n", r.Line, r.Overflow, marker))
			if len(r.Candidates) == 0 {
				b.WriteString("  • no candidate fits\n")
			}
			for _, c := range r.Candidates {
				b.WriteString(fmt.Sprintf("  • %s %.3f: %q\n", c.Column, c.Score, c.Value))
			}
		}
	}
	if ins.Truncated > 0 {
		b.WriteString(fmt.Sprintf("\n... %d more overflow row(s) not shown\n", ins.Truncated))
	}
	return b.String()
}
