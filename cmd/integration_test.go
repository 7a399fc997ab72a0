package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const mixedCSV = `ID,DESCRIPTION,NOTES,QTY,STATUS
1,Simple description,Simple note,5,OPEN
2,Desc with,many,commas,Stable note,9,OPEN
3,Normal desc,Note has,too,many,commas,11,OPEN
4,Short row,Note
5,Another description,Another note,7,CLOSED
`

const repairedCSV = `ID,DESCRIPTION,NOTES,QTY,STATUS
1,Simple description,Simple note,5,OPEN
2,"Desc with,many,commas",Stable note,9,OPEN
3,Normal desc,"Note has,too,many,commas",11,OPEN
4,Short row,Note,,
5,Another description,Another note,7,CLOSED
`

const tieCSV = "T1,T2\nx,y\na,b,c\n"

// resetFlags clears values and Changed state that persist across invocations
// of the package-level commands.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, "", args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestCLI_RepairScenario(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "items.csv")
	writeFile(t, in, mixedCSV)

	out := runCmd(t, "repair", in, "-c", "DESCRIPTION", "-c", "NOTES", "--prompt", "never")
	if !strings.Contains(out, "✓ Repaired") {
		t.Fatalf("missing success line: %q", out)
	}
	got := readFile(t, filepath.Join(home, "items.repaired.csv"))
	if got != repairedCSV {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestCLI_RepairUnknownColumnWritesNothing(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "items.csv")
	out := filepath.Join(home, "out.csv")
	writeFile(t, in, mixedCSV)

	_, err := execute(t, "", "repair", in, "-o", out, "-c", "COMMENTS")
	if err == nil || !strings.Contains(err.Error(), `"COMMENTS"`) {
		t.Fatalf("expected missing column error, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("output should not exist, stat err = %v", statErr)
	}
}

func TestCLI_AmbiguousRowAbortsByDefault(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "tie.csv")
	writeFile(t, in, tieCSV)

	rep := filepath.Join(home, "run.json")
	_, err := execute(t, "", "repair", in, "-c", "T1,T2", "--prompt", "never", "--workers", "1", "--report", rep)
	if err == nil || !strings.Contains(err.Error(), "--on-error collect") {
		t.Fatalf("expected ambiguous row error, got %v", err)
	}

	var r struct {
		Header      []string `json:"header"`
		TextColumns []string `json:"text_columns"`
		Failures    []struct {
			Line int `json:"line"`
		} `json:"failures"`
	}
	if err := json.Unmarshal([]byte(readFile(t, rep)), &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if strings.Join(r.Header, ",") != "T1,T2" || strings.Join(r.TextColumns, ",") != "T1,T2" {
		t.Fatalf("report is missing the layout: %+v", r)
	}
	if len(r.Failures) != 1 || r.Failures[0].Line != 3 {
		t.Fatalf("unexpected failures: %+v", r.Failures)
	}
}

func TestCLI_PromptChoosesAndRecords(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "tie.csv")
	out := filepath.Join(home, "fixed.csv")
	choices := filepath.Join(home, "choices.yaml")
	writeFile(t, in, tieCSV)

	stdout, err := execute(t, "oops\n2\n", "repair", in, "-o", out, "-c", "T1", "-c", "T2",
		"--prompt", "always", "--save-choices", choices)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if !strings.Contains(stdout, "Ambiguous CSV row at line 3.") || !strings.Contains(stdout, "Invalid selection") {
		t.Fatalf("prompt not shown as expected: %q", stdout)
	}
	if got := readFile(t, out); got != "T1,T2\nx,y\na,\"b,c\"\n" {
		t.Fatalf("unexpected output: %q", got)
	}
	if !strings.Contains(readFile(t, choices), "column: T2") {
		t.Fatalf("choice not recorded")
	}

	// Replay without a terminal.
	replayed := filepath.Join(home, "replayed.csv")
	runCmd(t, "repair", in, "-o", replayed, "-c", "T1", "-c", "T2", "--prompt", "never", "--choices", choices)
	if readFile(t, replayed) != readFile(t, out) {
		t.Fatalf("replay differs from the interactive run")
	}
}

func TestCLI_CollectWritesRejectsAndReport(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "tie.csv")
	out := filepath.Join(home, "fixed.csv")
	rejects := filepath.Join(home, "rejects.csv")
	rep := filepath.Join(home, "run.json")
	writeFile(t, in, tieCSV)

	stdout := runCmd(t, "repair", in, "-o", out, "-c", "T1,T2", "--prompt", "never",
		"--on-error", "collect", "--rejects", rejects, "--report", rep)
	if !strings.Contains(stdout, "⚠ 1 row(s) could not be repaired; first at line 3") {
		t.Fatalf("missing warning: %q", stdout)
	}
	if got := readFile(t, out); got != "T1,T2\nx,y\n" {
		t.Fatalf("unexpected output: %q", got)
	}
	if got := readFile(t, rejects); got != "T1,T2\na,b,c\n" {
		t.Fatalf("unexpected rejects: %q", got)
	}
	var r struct {
		Stats struct {
			Rows   int `json:"rows"`
			Failed int `json:"failed"`
		} `json:"stats"`
		Failures []struct {
			Kind string `json:"kind"`
		} `json:"failures"`
	}
	if err := json.Unmarshal([]byte(readFile(t, rep)), &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if r.Stats.Rows != 2 || r.Stats.Failed != 1 || len(r.Failures) != 1 || r.Failures[0].Kind != "ambiguous" {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestCLI_EmptyInputGivesEmptyOutput(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "empty.csv")
	writeFile(t, in, "")
	runCmd(t, "repair", in)
	if got := readFile(t, filepath.Join(home, "empty.repaired.csv")); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestCLI_RepairRefusesToOverwriteInput(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "items.csv")
	writeFile(t, in, mixedCSV)
	if _, err := execute(t, "", "repair", in, "-o", in); err == nil {
		t.Fatalf("expected an error when output equals input")
	}
	if readFile(t, in) != mixedCSV {
		t.Fatalf("input was modified")
	}
}

func TestCLI_InspectMarksAmbiguousRows(t *testing.T) {
	home := tempHome(t)
	in := filepath.Join(home, "tie.csv")
	writeFile(t, in, tieCSV)

	out := runCmd(t, "inspect", in, "-c", "T1,T2")
	if !strings.Contains(out, "- line 3 (+1) AMBIGUOUS") {
		t.Fatalf("missing ambiguous marker:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, "tie.repaired.csv")); !os.IsNotExist(err) {
		t.Fatalf("inspect must not write a repaired file")
	}

	jsonOut := runCmd(t, "inspect", in, "-c", "T1,T2", "--json")
	var ins struct {
		Rows []struct {
			Ambiguous bool `json:"ambiguous"`
		} `json:"overflow_rows"`
	}
	if err := json.Unmarshal([]byte(jsonOut), &ins); err != nil {
		t.Fatalf("decode inspect json: %v", err)
	}
	if len(ins.Rows) != 1 || !ins.Rows[0].Ambiguous {
		t.Fatalf("unexpected inspection: %+v", ins)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := tempHome(t)
	runCmd(t, "config", "set", "text_columns", "DESCRIPTION,NOTES")
	runCmd(t, "config", "set", "weights.continuation", "3")
	if _, err := os.Stat(filepath.Join(home, ".csvrepair", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "text_columns: DESCRIPTION,NOTES") || !strings.Contains(out, "weights.continuation: 3.000") {
		t.Fatalf("unexpected config show:\n%s", out)
	}
	if _, err := execute(t, "", "config", "set", "prompt", "sometimes"); err == nil {
		t.Fatalf("expected invalid prompt to fail")
	}

	// configured columns apply without flags
	in := filepath.Join(home, "items.csv")
	writeFile(t, in, mixedCSV)
	runCmd(t, "repair", in, "--prompt", "never")
	if got := readFile(t, filepath.Join(home, "items.repaired.csv")); got != repairedCSV {
		t.Fatalf("unexpected output:\n%s", got)
	}
}
