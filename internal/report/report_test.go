package report_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/KaramelBytes/csvrepair-cli/internal/report"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func collectResult(t *testing.T) *repair.Result {
	t.Helper()
	opts := repair.DefaultOptions()
	opts.TextColumns = []string{"T1", "T2"}
	opts.Policy = repair.PolicyCollect
	rp, err := repair.New(opts)
	require.NoError(t, err)
	res, err := rp.Repair(context.Background(), []string{"T1", "T2"}, []repair.Row{
		{Line: 2, Fields: []string{"x", "y"}},
		{Line: 3, Fields: []string{"a", "b", "c"}},
	})
	require.NoError(t, err)
	return res
}

func TestReportFinishRecordsAmbiguousCandidates(t *testing.T) {
	rep := report.New("in.csv")
	_, err := uuid.Parse(rep.RunID)
	require.NoError(t, err)

	rep.Finish(collectResult(t))
	assert.Equal(t, []string{"T1", "T2"}, rep.TextColumns)
	assert.Equal(t, 1, rep.Stats.Failed)
	require.Len(t, rep.Failures, 1)
	f := rep.Failures[0]
	assert.Equal(t, "ambiguous", f.Kind)
	assert.Equal(t, 3, f.Line)
	require.Len(t, f.Candidates, 2)
	assert.Equal(t, "T1", f.Candidates[0].Column)
	assert.Contains(t, rep.Summary(), "1 failed")
}

func TestReportFailFromAbort(t *testing.T) {
	rep := report.New("in.csv")
	layout, err := repair.AnalyzeHeader([]string{"T1", "T2"}, []string{"T2"})
	require.NoError(t, err)
	rep.SetLayout(layout)
	rep.Fail(&repair.UnrepairableRowError{Row: 4, Line: 6, Fields: []string{"a"}})
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "unrepairable", rep.Failures[0].Kind)
	assert.Equal(t, 1, rep.Stats.Failed)
	assert.Equal(t, []string{"T1", "T2"}, rep.Header)
	assert.Equal(t, []string{"T2"}, rep.TextColumns)
}

func TestReportSaveFormats(t *testing.T) {
	dir := t.TempDir()
	rep := report.New("in.csv")
	rep.Finish(collectResult(t))

	jsonPath := filepath.Join(dir, "run.json")
	require.NoError(t, rep.Save(jsonPath))
	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.Equal(t, rep.RunID, fromJSON["run_id"])

	yamlPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, rep.Save(yamlPath))
	b, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(b, &fromYAML))
	assert.Equal(t, rep.RunID, fromYAML["run_id"])
}

func TestDecisionsRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "choices.yaml")
	in := &report.Decisions{Input: "in.csv", Choices: []report.Decision{{Line: 3, Column: "NOTES"}}}
	require.NoError(t, report.SaveDecisions(p, in))
	out, err := report.LoadDecisions(p)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadDecisionsRejectsInvalidEntries(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("choices:\n  - line: 0\n    column: NOTES\n"), 0o644))
	_, err := report.LoadDecisions(p)
	assert.Error(t, err)
}
