package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/macropower/ratefilter/api"
	"github.com/macropower/ratefilter/pkg/config"
	"github.com/macropower/ratefilter/pkg/engine"
	"github.com/macropower/ratefilter/pkg/log"
	"github.com/macropower/ratefilter/pkg/rates"
	"github.com/macropower/ratefilter/pkg/ui"
	"github.com/macropower/ratefilter/pkg/ui/theme"
)

const (
	cmdLong = `Remove rate records from an XML document.

Every <Rates> element whose trimmed <Class> text is "Coeff Fixe" is a
candidate. The matching records are listed first; nothing is written until
the removal is confirmed. The cleaned document is written next to the input
with a "_cleaned" suffix.`

	cmdExamples = `  # Preview and confirm removals from a file:
  ratefilter rates.xml

  # Only remove agreed pay records:
  ratefilter rates.xml --predicate pay-agreed

  # Only remove adjacent pay+bill pairs where both records match:
  ratefilter rates.xml --paired

  # Match with a CEL expression:
  ratefilter rates.xml --match 'class == "Coeff Fixe" && num(fields.Amount) == 0.0'

  # Show a diff without writing anything:
  ratefilter rates.xml --diff --dry-run

  # Filter stdin to stdout without prompting:
  cat rates.xml | ratefilter - --yes > cleaned.xml`
)

// ErrMissingInput is returned when no input file is given.
var ErrMissingInput = errors.New("an input file is required, use - for stdin")

type RunArgs struct {
	*RootArgs

	Path         string
	ConfigPath   string
	OutputPath   string
	Mode         string
	Predicate    string
	Expression   string
	Class        string
	Encodings    string
	PreviewLimit int
	Paired       bool
	Yes          bool
	DryRun       bool
	Diff         bool
	ShowOutput   bool
	WriteConfig  bool
	ShowConfig   bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&ra.ConfigPath, "config", "", "Path to the ratefilter configuration file")
	flags.StringVarP(&ra.OutputPath, "output", "o", "", `Output path, "-" for stdout (default <file>_cleaned.<ext>)`)
	flags.StringVar(&ra.Mode, "mode", "", fmt.Sprintf("Removal mode, one of: %s", engine.AllModes))
	flags.StringVar(&ra.Predicate, "predicate", "", fmt.Sprintf("Match predicate, one of: %s", rates.AllPredicates))
	flags.StringVar(&ra.Expression, "match", "", "CEL match expression, implies --predicate expr")
	flags.StringVar(&ra.Class, "class", "", fmt.Sprintf("Class text that marks a record (default %q)", rates.DefaultClass))
	flags.StringVar(&ra.Encodings, "encodings", "", "Comma-separated encodings to try in order")
	flags.IntVar(&ra.PreviewLimit, "preview-limit", rates.DefaultPreviewLimit, "Maximum number of groups listed in the preview")
	flags.BoolVar(&ra.Paired, "paired", false, "Only remove adjacent pay+bill pairs where both records match")
	flags.BoolVarP(&ra.Yes, "yes", "y", false, "Remove without asking for confirmation")
	flags.BoolVar(&ra.DryRun, "dry-run", false, "Show the preview and exit without writing")
	flags.BoolVar(&ra.Diff, "diff", false, "Show a unified diff of the input and the cleaned document")
	flags.BoolVar(&ra.ShowOutput, "show-output", false, "Show the first lines of the cleaned document")
	flags.BoolVar(&ra.WriteConfig, "write-config", false, "Write the default configuration files and exit")
	flags.BoolVar(&ra.ShowConfig, "show-config", false, "Print the active configuration and exit")

	for name, values := range map[string][]string{
		"mode":      modeNames(),
		"predicate": rates.AllPredicates,
	} {
		err := cmd.RegisterFlagCompletionFunc(name,
			cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp),
		)
		if err != nil {
			panic(fmt.Errorf("register %s completion: %w", name, err))
		}
	}

	err := cmd.MarkFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "run [file]",
		Short:             "Default command, can be used explicitly if the file name is ambiguous",
		Example:           cmdExamples,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: runCompletion,
		SilenceUsage:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ra.Path = ""
			if len(args) > 0 {
				ra.Path = args[0]
			}

			return run(cmd, ra)
		},
	}
	ra.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runCompletion(_ *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return []cobra.Completion{"xml"}, cobra.ShellCompDirectiveFilterFileExt
	}

	return nil, cobra.ShellCompDirectiveNoFileComp
}

func modeNames() []string {
	names := make([]string, 0, len(engine.AllModes))
	for _, m := range engine.AllModes {
		names = append(names, string(m))
	}

	return names
}

// applyFlags overrides cfg with the flags that were set on the command line
// or through the environment.
func (ra *RunArgs) applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("predicate") {
		cfg.Filter.Predicate = ra.Predicate
	}
	if flags.Changed("match") {
		cfg.Filter.Expression = ra.Expression
		if !flags.Changed("predicate") {
			cfg.Filter.Predicate = rates.PredicateExpr
		}
	}
	if flags.Changed("class") {
		cfg.Filter.Class = ra.Class
	}
	if flags.Changed("mode") {
		cfg.Filter.Mode = ra.Mode
	}
	if flags.Changed("paired") {
		paired := ra.Paired
		cfg.Filter.Paired = &paired
	}
	if flags.Changed("encodings") {
		encodings := []string{}
		for e := range strings.SplitSeq(ra.Encodings, ",") {
			if e = strings.TrimSpace(e); e != "" {
				encodings = append(encodings, e)
			}
		}
		cfg.Decode.Encodings = encodings
	}
	if flags.Changed("preview-limit") {
		limit := ra.PreviewLimit
		cfg.Preview.Limit = &limit
	}
}

func loadConfig(cmd *cobra.Command, ra *RunArgs, configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath, config.WithColor(isTerminal(cmd.ErrOrStderr())))
	if err != nil {
		return nil, err //nolint:wrapcheck // Already annotated with the path.
	}

	ra.applyFlags(cmd.Flags(), cfg)

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	configPath := ra.ConfigPath
	if configPath == "" {
		configPath = config.GetPath()
	}

	if ra.WriteConfig {
		return config.WriteDefaultConfig(configPath, false) //nolint:wrapcheck // Return the original error.
	}

	cfg, err := loadConfig(cmd, ra, configPath)
	if err != nil {
		return err
	}

	th := theme.New(ra.Theme)
	stderr := cmd.ErrOrStderr()

	if ra.ShowConfig {
		slog.Info("active configuration", slog.String("path", configPath))

		return showConfig(cmd.OutOrStdout(), th, cfg)
	}

	if ra.Path == "" {
		return ErrMissingInput
	}

	opts, err := cfg.EngineOpts()
	if err != nil {
		return fmt.Errorf("configure engine: %w", err)
	}

	e, err := engine.New(opts...)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	name := ra.Path
	if name == api.Stdio {
		name = "stdin"
	}

	logger := slog.Default().With(slog.String("input", name))
	ctx := log.NewContext(cmd.Context(), logger)

	raw, err := api.ReadInput(ra.Path, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	proposal, err := e.Preview(ctx, name, raw)
	if err != nil {
		return err //nolint:wrapcheck // Engine errors name the input.
	}

	width := terminalWidth(stderr)
	previewer := ui.NewPreviewer(th, ui.WithLimit(*cfg.Preview.Limit), ui.WithWidth(width))
	mustN(fmt.Fprintln(stderr, previewer.Render(proposal)))

	outPath := ra.OutputPath
	if outPath == "" {
		outPath = api.CleanedName(ra.Path, cfg.Output.Suffix)
	}

	if proposal.Plan.Empty() && outPath != api.Stdio {
		logger.InfoContext(ctx, "nothing to remove, no output written")

		return nil
	}

	// Apply only builds the cleaned document in memory; it is written once
	// confirmed.
	res, err := e.Apply(ctx, proposal)
	if err != nil {
		return err //nolint:wrapcheck // Engine errors name the input.
	}

	if ra.Diff {
		diff := ui.NewDiffer(th).Diff(name, outPath, proposal.Text, string(res.Output))
		mustN(fmt.Fprint(stderr, diff))
	}

	if ra.ShowOutput {
		h := ui.NewHighlighter(th, "XML")

		out, err := h.Render(string(res.Output), width, *cfg.Preview.OutputLines)
		if err != nil {
			return fmt.Errorf("render output: %w", err)
		}

		mustN(fmt.Fprint(stderr, out))
	}

	if ra.DryRun {
		mustN(fmt.Fprintln(stderr, th.SubtleStyle.Render("Dry run, nothing was written.")))

		return nil
	}

	if !ra.Yes && !proposal.Plan.Empty() {
		ok, err := confirm(ctx, cmd, ra, th, proposal)
		if err != nil {
			return err
		}
		if !ok {
			mustN(fmt.Fprintln(stderr, th.SubtleStyle.Render("Aborted, nothing was written.")))

			return nil
		}
	}

	err = writeOutput(cmd.OutOrStdout(), outPath, res.Output)
	if err != nil {
		return err
	}

	where := "stdout"
	if outPath != api.Stdio {
		where = outPath
	}

	mustN(fmt.Fprintln(stderr, th.ResultTitleStyle.Render(fmt.Sprintf(
		"Removed %d of %d records, %d remaining. Wrote %s (%s).",
		res.Removed, res.Total, res.Remaining, where, humanize.Bytes(uint64(len(res.Output))),
	))))

	return nil
}

// confirm asks the operator to confirm the removals. Log records emitted
// while the prompt is shown are buffered and flushed afterwards, so they do
// not disturb the prompt.
func confirm(ctx context.Context, cmd *cobra.Command, ra *RunArgs, th *theme.Theme, p *engine.Proposal) (bool, error) {
	prompter := ui.NewPrompter(th, ui.WithIO(cmd.InOrStdin(), cmd.ErrOrStderr()))
	if ra.Path == api.Stdio || !prompter.Interactive() {
		return false, fmt.Errorf("%w: %w, pass --yes to remove without confirmation", engine.ErrAborted, ui.ErrNotInteractive)
	}

	logBuf := log.NewBuffer(log.DefaultBufferSize)

	logHandler, err := log.CreateHandlerWithStrings(logBuf, ra.LogLevel, ra.LogFormat)
	if err != nil {
		return false, fmt.Errorf("create log handler: %w", err)
	}

	prev := slog.Default()
	slog.SetDefault(slog.New(logHandler))

	ok, err := prompter.Confirm(ctx,
		fmt.Sprintf("Remove %d records from %s?", p.Plan.Removed(), p.Name),
		fmt.Sprintf("%d of %d records will remain.", p.Plan.Remaining(), p.Plan.Total),
	)

	slog.SetDefault(prev)
	flushLogs(cmd.ErrOrStderr(), logBuf)

	if err != nil {
		return false, err //nolint:wrapcheck // Already wrapped by the prompter.
	}

	return ok, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == api.Stdio {
		_, err := stdout.Write(data)
		if err != nil {
			return fmt.Errorf("write to stdout: %w", err)
		}

		return nil
	}

	err := api.WriteFileAtomic(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

func showConfig(w io.Writer, th *theme.Theme, cfg *config.Config) error {
	yamlBytes, err := cfg.MarshalYAML()
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}

	yamlConfig := string(yamlBytes)

	h := ui.NewHighlighter(th, "YAML", ui.WithoutLineNumbers())

	prettyConfig, err := h.Render(yamlConfig, 0, 0)
	if err != nil {
		mustN(fmt.Fprintln(w, yamlConfig))

		return err //nolint:wrapcheck // Return the original error.
	}

	mustN(fmt.Fprint(w, prettyConfig))

	return nil
}

func flushLogs(w io.Writer, buf *log.Buffer) {
	slog.Debug("flush logs to console",
		slog.Int("count", len(buf.Entries())),
		slog.Int("dropped", buf.Dropped()),
	)

	err := buf.Flush(w)
	if err != nil {
		panic(err)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or zero if w is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}

	return width
}
