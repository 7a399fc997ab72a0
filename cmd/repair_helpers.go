package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	cfgpkg "github.com/KaramelBytes/csvrepair-cli/internal/config"
	"github.com/KaramelBytes/csvrepair-cli/internal/csvio"
	"github.com/KaramelBytes/csvrepair-cli/internal/interactive"
	"github.com/KaramelBytes/csvrepair-cli/internal/repair"
	"github.com/KaramelBytes/csvrepair-cli/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// repairFlags holds the flags shared by repair, repair-batch and inspect.
type repairFlags struct {
	textColumns []string
	margin      float64
	relMargin   float64
	onError     string
	workers     int
	prompt      string
	maxOptions  int
	delimiter   string
	noProfiles  bool
}

func (f *repairFlags) bindScoring(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringSliceVarP(&f.textColumns, "text-column", "c", nil, "free-text column that may absorb unquoted commas (repeatable, in tie-break order)")
	fs.Float64Var(&f.margin, "margin", 0, "minimum score gap between the top two candidates (overrides config)")
	fs.Float64Var(&f.relMargin, "relative-margin", 0, "minimum gap as a fraction of the top score (overrides config)")
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (auto from extension if omitted)")
	fs.BoolVar(&f.noProfiles, "no-profiles", false, "do not derive column profiles from clean rows")
}

func (f *repairFlags) bindRun(cmd *cobra.Command) {
	f.bindScoring(cmd)
	fs := cmd.Flags()
	fs.StringVar(&f.onError, "on-error", "", "what to do with a row that cannot be repaired: abort | collect")
	fs.IntVar(&f.workers, "workers", 0, "rows processed concurrently (overrides config)")
	fs.StringVar(&f.prompt, "prompt", "", "ask about ambiguous rows: auto | always | never")
	fs.IntVar(&f.maxOptions, "max-options", 0, "candidates shown per prompt (overrides config)")
}

// effectiveConfig returns the loaded configuration, loading it on demand.
func effectiveConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// buildOptions merges config values with flags that were set explicitly.
func buildOptions(cmd *cobra.Command, f *repairFlags, c *cfgpkg.Global) (repair.Options, error) {
	opts := repair.DefaultOptions()
	fl := cmd.Flags()

	if len(c.TextColumns) > 0 {
		opts.TextColumns = c.TextColumns
	}
	if fl.Changed("text-column") {
		opts.TextColumns = f.textColumns
	}
	opts.Margin = repair.Margin{Absolute: c.AmbiguityMargin, Relative: c.RelativeMargin}
	if fl.Changed("margin") {
		opts.Margin.Absolute = f.margin
	}
	if fl.Changed("relative-margin") {
		opts.Margin.Relative = f.relMargin
	}
	opts.Weights = c.Weights
	opts.UseProfiles = c.UseProfiles && !f.noProfiles

	policy := c.OnError
	if fl.Changed("on-error") {
		policy = f.onError
	}
	p, err := repair.ParsePolicy(policy)
	if err != nil {
		return opts, err
	}
	opts.Policy = p

	opts.Workers = c.Workers
	if fl.Changed("workers") {
		if f.workers < 1 {
			return opts, fmt.Errorf("--workers must be at least 1")
		}
		opts.Workers = f.workers
	}
	opts.Logger = logger
	return opts, nil
}

func promptMode(cmd *cobra.Command, f *repairFlags, c *cfgpkg.Global) (string, error) {
	mode := c.Prompt
	if cmd.Flags().Changed("prompt") {
		mode = f.prompt
	}
	switch mode {
	case "", cfgpkg.PromptAuto:
		return cfgpkg.PromptAuto, nil
	case cfgpkg.PromptAlways, cfgpkg.PromptNever:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported --prompt: %s (use auto|always|never)", mode)
	}
}

func resolveDelimiter(flag, cfgValue, input string) (rune, error) {
	s := cfgValue
	if flag != "" {
		s = flag
	}
	d, err := csvio.ParseDelimiter(s)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		d = csvio.SniffDelimiter(input)
	}
	return d, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newPrompt returns the terminal chooser for mode, or nil when rows should
// not be asked about. One prompt is shared by every file of a run so buffered
// answers are not lost between files.
func newPrompt(mode string, maxOptions int, in io.Reader, out io.Writer) *interactive.Terminal {
	if mode == cfgpkg.PromptAlways || (mode == cfgpkg.PromptAuto && isTerminal(in)) {
		return interactive.NewTerminal(in, out, maxOptions)
	}
	return nil
}

// buildChooser puts replayed decisions in front of the prompt. The Recorder is
// nil when nothing can decide an ambiguous row.
func buildChooser(choicesPath string, prompt *interactive.Terminal) (*interactive.Recorder, error) {
	var chain interactive.Chain
	if choicesPath != "" {
		d, err := report.LoadDecisions(choicesPath)
		if err != nil {
			return nil, err
		}
		chain = append(chain, interactive.NewScripted(d))
	}
	if prompt != nil {
		chain = append(chain, prompt)
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return &interactive.Recorder{Next: chain}, nil
}

// repairJob describes one input file and where its outputs go.
type repairJob struct {
	Input       string
	Output      string
	Rejects     string
	Report      string
	SaveChoices string
	Delimiter   rune
}

// runRepairJob reads, repairs and writes one file. The report is returned
// even when the run fails so callers can persist it.
func runRepairJob(ctx context.Context, job repairJob, opts repair.Options, rec *interactive.Recorder) (*report.Report, error) {
	rep := report.New(job.Input)
	rep.Output = job.Output
	rep.Policy = string(opts.Policy)
	if rec != nil {
		opts.Chooser = rec
	}

	if abs(job.Input) == abs(job.Output) {
		return rep, fmt.Errorf("output %s would overwrite the input", job.Output)
	}
	table, err := csvio.ReadFile(job.Input, job.Delimiter)
	if err != nil {
		return rep, err
	}
	if table.Empty() {
		if err := csvio.WriteFile(job.Output, nil, nil, job.Delimiter); err != nil {
			return rep, fmt.Errorf("write output: %w", err)
		}
		rep.Finish(nil)
		return rep, saveArtifacts(job, rep, rec)
	}

	rp, err := repair.New(opts)
	if err != nil {
		return rep, err
	}
	res, err := rp.Repair(ctx, table.Header, table.Rows)
	if err != nil {
		if layout, lerr := repair.AnalyzeHeader(table.Header, opts.TextColumns); lerr == nil {
			rep.SetLayout(layout)
		}
		rep.Fail(err)
		if rec != nil {
			rep.Decisions = rec.Decisions()
		}
		if saveErr := saveArtifacts(job, rep, rec); saveErr != nil && logger != nil {
			logger.Warn("could not save run artifacts", zap.Error(saveErr))
		}
		return rep, err
	}

	if err := csvio.WriteFile(job.Output, res.Layout.Header, res.Records(), job.Delimiter); err != nil {
		return rep, fmt.Errorf("write output: %w", err)
	}
	if job.Rejects != "" {
		rows := make([][]string, len(res.Failures))
		for i, f := range res.Failures {
			rows[i] = f.RawFields()
		}
		if err := csvio.WriteFile(job.Rejects, res.Layout.Header, rows, job.Delimiter); err != nil {
			return rep, fmt.Errorf("write rejects: %w", err)
		}
	}
	rep.Finish(res)
	if rec != nil {
		rep.Decisions = rec.Decisions()
	}
	return rep, saveArtifacts(job, rep, rec)
}

func saveArtifacts(job repairJob, rep *report.Report, rec *interactive.Recorder) error {
	if job.Report != "" {
		if err := rep.Save(job.Report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if job.SaveChoices != "" && rec != nil {
		d := &report.Decisions{Input: job.Input, Choices: rec.Decisions()}
		if err := report.SaveDecisions(job.SaveChoices, d); err != nil {
			return fmt.Errorf("write choices: %w", err)
		}
	}
	return nil
}

func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}

// printOutcome reports a finished file the way the other commands do.
func printOutcome(w io.Writer, rep *report.Report) {
	fmt.Fprintf(w, "✓ Repaired %s -> %s (%s)\n", rep.Input, rep.Output, rep.Summary())
	if n := len(rep.Failures); n > 0 {
		fmt.Fprintf(w, "⚠ %d row(s) could not be repaired; first at line %d\n", n, rep.Failures[0].Line)
	}
}
