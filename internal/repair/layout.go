package repair

import (
	"fmt"
	"strings"
)

// DefaultTextColumn is the column repaired when none is configured.
const DefaultTextColumn = "DESCRIPTION"

// TextColumn is a configured free-text column resolved against the header.
type TextColumn struct {
	Name     string `json:"name"`
	Position int    `json:"position"` // 0-based index in the header
	Order    int    `json:"order"`    // position in the configured list; lower wins ties
}

// Layout is the immutable result of analyzing the header row.
type Layout struct {
	Header  []string
	Width   int
	Columns []TextColumn

	text map[int]struct{}
}

// AnalyzeHeader records the expected width and resolves every configured text
// column to its header position. A missing column fails before any row is read.
func AnalyzeHeader(header []string, textColumns []string) (*Layout, error) {
	if len(header) == 0 {
		return nil, &ConfigError{Reason: "header row is empty"}
	}
	if len(textColumns) == 0 {
		return nil, &ConfigError{Reason: "at least one text column must be configured"}
	}
	l := &Layout{
		Header: append([]string(nil), header...),
		Width:  len(header),
		text:   make(map[int]struct{}, len(textColumns)),
	}
	seen := map[string]struct{}{}
	for _, name := range textColumns {
		if strings.TrimSpace(name) == "" {
			return nil, &ConfigError{Reason: "text column name is blank"}
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		pos := indexOf(l.Header, name)
		if pos < 0 {
			return nil, &ConfigError{Column: name, Header: l.Header}
		}
		l.Columns = append(l.Columns, TextColumn{Name: name, Position: pos, Order: len(l.Columns)})
		l.text[pos] = struct{}{}
	}
	return l, nil
}

// IsText reports whether the header position is a configured text column.
func (l *Layout) IsText(pos int) bool {
	_, ok := l.text[pos]
	return ok
}

// Names returns the configured text column names in order.
func (l *Layout) Names() []string {
	out := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		out[i] = c.Name
	}
	return out
}

func (l *Layout) String() string {
	return fmt.Sprintf("%d columns, text columns %v", l.Width, l.Names())
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
