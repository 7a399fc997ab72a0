package repair

import "strings"

// Candidate is one hypothesized repair of an overflow row: the raw fields
// Start..End (inclusive) are merged back into a single text value.
type Candidate struct {
	Column TextColumn
	Start  int
	End    int
	Pieces []string
	Value  string
	// Fields is the repaired row, exactly Layout.Width long.
	Fields []string
}

// Generate builds one candidate per configured text column, in configured
// order. Columns whose merge span does not fit inside the row are skipped.
func Generate(layout *Layout, fields []string) []Candidate {
	n := len(fields)
	overflow := n - layout.Width
	if overflow < 1 {
		return nil
	}
	out := make([]Candidate, 0, len(layout.Columns))
	for _, col := range layout.Columns {
		start := col.Position
		end := start + overflow
		if start < 0 || end > n-1 {
			continue
		}
		pieces := append([]string(nil), fields[start:end+1]...)
		value := strings.Join(pieces, ",")

		row := make([]string, 0, layout.Width)
		row = append(row, fields[:start]...)
		row = append(row, value)
		row = append(row, fields[end+1:]...)

		out = append(out, Candidate{
			Column: col,
			Start:  start,
			End:    end,
			Pieces: pieces,
			Value:  value,
			Fields: row,
		})
	}
	return out
}

// Reconstruct returns the repaired row for the winning candidate.
func Reconstruct(c Candidate) []string {
	return append([]string(nil), c.Fields...)
}
