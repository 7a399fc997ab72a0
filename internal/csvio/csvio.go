// Package csvio reads and writes the delimited files handled by the repair
// commands.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/KaramelBytes/csvrepair-cli/internal/utils"
)

const bom = "\ufeff"

// Table is a tokenized file: the header plus every data record with its
// source line.
type Table struct {
	Header []string
	Rows   []repair.Row
}

// Empty reports whether the input had no header row at all.
func (t *Table) Empty() bool { return t == nil || len(t.Header) == 0 }

// Read tokenizes r without enforcing a field count. Quoted fields are honored
// and stray quotes are tolerated; blank lines are skipped.
func Read(r io.Reader, delim rune) (*Table, error) {
	if delim == 0 {
		delim = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	t := &Table{}
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read record %d: %w", len(t.Rows)+1, err)
		}
		line, _ := cr.FieldPos(0)
		if t.Header == nil {
			rec[0] = strings.TrimPrefix(rec[0], bom)
			t.Header = rec
			continue
		}
		t.Rows = append(t.Rows, repair.Row{Line: line, Fields: rec})
	}
	return t, nil
}

// ReadFile opens and reads path. A zero delim is sniffed from the extension.
func ReadFile(path string, delim rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if delim == 0 {
		delim = SniffDelimiter(path)
	}
	return Read(f, delim)
}

// Write emits the header and rows with standard quoting: fields containing
// the delimiter, a quote or a line break are quoted and quotes are doubled.
// A nil header writes nothing.
func Write(w io.Writer, header []string, rows [][]string, delim rune) error {
	if header == nil {
		return nil
	}
	if delim == 0 {
		delim = ','
	}
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) == 1 && row[0] == "" {
			// encoding/csv writes a lone empty field as a blank line, which
			// readers skip; quote it so the row survives.
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}
			if _, err := io.WriteString(w, `""`+"\n"); err != nil {
				return err
			}
			continue
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path atomically.
func WriteFile(path string, header []string, rows [][]string, delim rune) error {
	if delim == 0 {
		delim = SniffDelimiter(path)
	}
	var buf bytes.Buffer
	if err := Write(&buf, header, rows, delim); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// SniffDelimiter picks tab for .tsv files and comma otherwise.
func SniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// ParseDelimiter maps a flag value to a delimiter rune. Empty means auto.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";", "semicolon":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %s", s)
	}
}
