package repair

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ColumnProfile summarizes the values a column holds in rows that already
// match the header width.
type ColumnProfile struct {
	Rows          int
	MeanLength    float64
	NumericRatio  float64
	NonEmptyRatio float64
}

// Profiles holds one profile per header position. A nil entry means no clean
// row was seen for that column.
type Profiles []*ColumnProfile

// BuildProfiles scans the rows whose width equals the header width and
// accumulates per-column length, numeric and emptiness statistics.
func BuildProfiles(width int, rows []Row) Profiles {
	type colAcc struct {
		n        int
		totalLen int
		numeric  int
		nonEmpty int
	}
	acc := make([]colAcc, width)
	for _, r := range rows {
		if len(r.Fields) != width {
			continue
		}
		for i, v := range r.Fields {
			a := &acc[i]
			a.n++
			a.totalLen += utf8.RuneCountInString(v)
			if v != "" {
				a.nonEmpty++
			}
			if isNumeric(v) {
				a.numeric++
			}
		}
	}
	out := make(Profiles, width)
	for i, a := range acc {
		if a.n == 0 {
			continue
		}
		n := float64(a.n)
		out[i] = &ColumnProfile{
			Rows:          a.n,
			MeanLength:    float64(a.totalLen) / n,
			NumericRatio:  float64(a.numeric) / n,
			NonEmptyRatio: float64(a.nonEmpty) / n,
		}
	}
	return out
}

// Deviation measures how far a candidate row strays from the column profiles.
// Zero means every field looks like the clean rows.
func (p Profiles) Deviation(fields []string, layout *Layout, w Weights) float64 {
	var dev float64
	for i, v := range fields {
		if i >= len(p) || p[i] == nil {
			continue
		}
		prof := p[i]
		d := math.Abs(float64(utf8.RuneCountInString(v))-prof.MeanLength) / (prof.MeanLength + 1)
		if layout != nil && layout.IsText(i) {
			d *= w.TextDeviationScale
		}
		dev += d
		if prof.NumericRatio >= 0.8 && !isNumeric(v) {
			dev += w.NumericMismatch
		}
		if prof.NonEmptyRatio >= 0.95 && v == "" {
			dev += w.MissingValue
		}
	}
	return dev
}

// isNumeric accepts plain decimal or scientific values, optionally with a
// trailing percent sign. Thousands separators are not accepted since the
// comma is the field delimiter here.
func isNumeric(s string) bool {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	if raw == "" {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}
