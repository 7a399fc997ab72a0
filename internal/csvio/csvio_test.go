package csvio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/csvrepair-cli/internal/csvio"
)

func TestReadKeepsRaggedRowsAndLines(t *testing.T) {
	in := "\ufeffID,DESCRIPTION,NOTES\n" +
		"1,plain,note\n" +
		"\n" +
		"2,Desc with,many,commas,note\n" +
		"3\n"
	tab, err := csvio.Read(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := tab.Header; !reflect.DeepEqual(got, []string{"ID", "DESCRIPTION", "NOTES"}) {
		t.Fatalf("header = %q", got)
	}
	if len(tab.Rows) != 3 {
		t.Fatalf("expected 3 rows (blank line skipped), got %d", len(tab.Rows))
	}
	if n := len(tab.Rows[1].Fields); n != 5 {
		t.Fatalf("overflow row should keep 5 fields, got %d", n)
	}
	wantLines := []int{2, 4, 5}
	for i, r := range tab.Rows {
		if r.Line != wantLines[i] {
			t.Fatalf("row %d line = %d, want %d", i, r.Line, wantLines[i])
		}
	}
}

func TestReadToleratesStrayQuotes(t *testing.T) {
	in := "A,B\n1,he said \"hi\" twice\n"
	tab, err := csvio.Read(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := tab.Rows[0].Fields[1]; got != `he said "hi" twice` {
		t.Fatalf("unexpected field %q", got)
	}
}

func TestReadEmptyInput(t *testing.T) {
	tab, err := csvio.Read(strings.NewReader(""), ',')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !tab.Empty() {
		t.Fatalf("expected empty table, got %+v", tab)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	header := []string{"ID", "DESCRIPTION", "NOTES"}
	rows := [][]string{
		{"2", "Desc with,many,commas", "Stable note"},
		{"3", `quote "inside"`, "multi\nline"},
		{"4", " leading space", ""},
		{"5", "", "trailing,"},
	}
	var buf bytes.Buffer
	if err := csvio.Write(&buf, header, rows, ','); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `2,"Desc with,many,commas",Stable note`) {
		t.Fatalf("expected merged field to be quoted, got:\n%s", buf.String())
	}
	tab, err := csvio.Read(&buf, ',')
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if !reflect.DeepEqual(tab.Header, header) {
		t.Fatalf("header changed: %q", tab.Header)
	}
	for i, r := range tab.Rows {
		if !reflect.DeepEqual(r.Fields, rows[i]) {
			t.Fatalf("row %d changed: %q != %q", i, r.Fields, rows[i])
		}
	}
}

func TestWriteLoneEmptyFieldSurvives(t *testing.T) {
	var buf bytes.Buffer
	if err := csvio.Write(&buf, []string{"ONLY"}, [][]string{{""}, {"x"}}, ','); err != nil {
		t.Fatalf("write: %v", err)
	}
	tab, err := csvio.Read(&buf, ',')
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(tab.Rows) != 2 || tab.Rows[0].Fields[0] != "" {
		t.Fatalf("unexpected rows %+v", tab.Rows)
	}
}

func TestFileHelpersSniffTSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.tsv")
	if err := csvio.WriteFile(p, []string{"A", "B"}, [][]string{{"x,y", "z"}}, 0); err != nil {
		t.Fatalf("write file: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(b) != "A\tB\nx,y\tz\n" {
		t.Fatalf("unexpected tsv content %q", b)
	}
	tab, err := csvio.ReadFile(p, 0)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if tab.Rows[0].Fields[0] != "x,y" {
		t.Fatalf("unexpected field %q", tab.Rows[0].Fields[0])
	}
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ",": ',', "tab": '\t', ";": ';', "pipe": '|'} {
		got, err := csvio.ParseDelimiter(in)
		if err != nil || got != want {
			t.Fatalf("ParseDelimiter(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := csvio.ParseDelimiter("::"); err == nil {
		t.Fatalf("expected error for unsupported delimiter")
	}
}
