package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/ratefilter/internal/cli"
	"github.com/macropower/ratefilter/pkg/engine"
	"github.com/macropower/ratefilter/pkg/ui"
)

const input = `<?xml version="1.0" encoding="UTF-8"?>
<Assignment>
  <Rates rateType="pay" rateStatus="agreed">
    <Class>Coeff Fixe</Class>
    <Amount>10.00</Amount>
  </Rates>
  <Rates rateType="bill" rateStatus="agreed">
    <Class>Horaire</Class>
    <Amount>12.00</Amount>
  </Rates>
</Assignment>
`

const cleaned = `<?xml version="1.0" encoding="UTF-8"?>
<Assignment>
  <Rates rateType="bill" rateStatus="agreed">
    <Class>Horaire</Class>
    <Amount>12.00</Amount>
  </Rates>
</Assignment>
`

type result struct {
	err    error
	stdout string
	stderr string
}

// execute runs the root command. The configuration file is looked up in
// dir, where it does not exist unless a test writes it.
func execute(t *testing.T, dir, stdin string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := cli.NewRootCmd()
	cmd.SetArgs(append(args, "--config", filepath.Join(dir, "config.yaml")))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return result{err: err, stdout: stdout.String(), stderr: stderr.String()}
}

func writeInput(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "rates.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// The command sets the default slog logger, so these tests do not run in
// parallel.
//
//nolint:paralleltest // Modifies the default logger.
func TestRunWritesCleanedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, input)

	res := execute(t, dir, "", path, "--yes")
	require.NoError(t, res.err)

	got, err := os.ReadFile(filepath.Join(dir, "rates_cleaned.xml"))
	require.NoError(t, err)
	assert.Equal(t, cleaned, string(got))

	assert.Contains(t, res.stderr, "Found 1 matching records in 2 (1 group).")
	assert.Contains(t, res.stderr, "Removed 1 of 2 records, 1 remaining.")
	assert.Empty(t, res.stdout)

	// The input is left alone.
	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, input, string(orig))
}

//nolint:paralleltest // Modifies the default logger.
func TestRunStdin(t *testing.T) {
	dir := t.TempDir()

	res := execute(t, dir, input, "-", "--yes")
	require.NoError(t, res.err)
	assert.Equal(t, cleaned, res.stdout)
	assert.Contains(t, res.stderr, "Wrote stdout")
}

//nolint:paralleltest // Modifies the default logger.
func TestRunStdinWithoutMatches(t *testing.T) {
	dir := t.TempDir()

	res := execute(t, dir, input, "-", "--yes", "--class", "Forfait")
	require.NoError(t, res.err)
	assert.Equal(t, input, res.stdout)
	assert.Contains(t, res.stderr, "No matching records in 2.")
}

//nolint:paralleltest // Modifies the default logger.
func TestRunOutputFlag(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, input)
	out := filepath.Join(dir, "out.xml")

	res := execute(t, dir, "", "run", path, "-y", "-o", out)
	require.NoError(t, res.err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, cleaned, string(got))
	assert.NoFileExists(t, filepath.Join(dir, "rates_cleaned.xml"))
}

//nolint:paralleltest // Modifies the default logger.
func TestRunNothingWritten(t *testing.T) {
	tcs := map[string]struct {
		wantErr    error
		args       []string
		wantStderr []string
	}{
		"not interactive": {
			wantErr: engine.ErrAborted,
		},
		"dry run": {
			args:       []string{"--dry-run", "--diff"},
			wantStderr: []string{"Dry run, nothing was written.", "-    <Class>Coeff Fixe</Class>", "rates_cleaned.xml"},
		},
		"show output": {
			args:       []string{"--dry-run", "--show-output"},
			wantStderr: []string{"<Class>Horaire</Class>"},
		},
		"no matches": {
			args:       []string{"--yes", "--class", "Forfait"},
			wantStderr: []string{"No matching records in 2."},
		},
		"expression": {
			args:       []string{"--yes", "--match", `rateType == "bill" && class == "Coeff Fixe"`},
			wantStderr: []string{"No matching records in 2."},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeInput(t, dir, input)

			res := execute(t, dir, "", append([]string{path}, tc.args...)...)
			if tc.wantErr != nil {
				require.ErrorIs(t, res.err, tc.wantErr)
			} else {
				require.NoError(t, res.err)
			}

			for _, s := range tc.wantStderr {
				assert.Contains(t, res.stderr, s)
			}

			assert.NoFileExists(t, filepath.Join(dir, "rates_cleaned.xml"))
		})
	}
}

//nolint:paralleltest // Modifies the default logger.
func TestRunNotInteractive(t *testing.T) {
	dir := t.TempDir()

	res := execute(t, dir, input, "-")
	require.ErrorIs(t, res.err, engine.ErrAborted)
	require.ErrorIs(t, res.err, ui.ErrNotInteractive)
	assert.Empty(t, res.stdout)
}

//nolint:paralleltest // Modifies the default logger.
func TestRunErrors(t *testing.T) {
	tcs := map[string]struct {
		check func(t *testing.T, err error)
		input string
		args  []string
	}{
		"missing input": {
			check: func(t *testing.T, err error) {
				t.Helper()
				require.ErrorIs(t, err, cli.ErrMissingInput)
			},
		},
		"malformed xml": {
			input: "<Assignment><Rates></Assignment>",
			args:  []string{"-", "--yes"},
			check: func(t *testing.T, err error) {
				t.Helper()

				var parseErr *engine.ParseError
				require.ErrorAs(t, err, &parseErr)
			},
		},
		"undecodable input": {
			input: "<A>\xff</A>",
			args:  []string{"-", "--yes", "--encodings", "utf-8"},
			check: func(t *testing.T, err error) {
				t.Helper()

				var decodeErr *engine.DecodeError
				require.ErrorAs(t, err, &decodeErr)
			},
		},
		"unknown mode": {
			input: input,
			args:  []string{"-", "--yes", "--mode", "regex"},
			check: func(t *testing.T, err error) {
				t.Helper()
				require.ErrorIs(t, err, engine.ErrUnknownMode)
			},
		},
		"expr without expression": {
			input: input,
			args:  []string{"-", "--yes", "--predicate", "expr"},
			check: func(t *testing.T, err error) {
				t.Helper()
				require.ErrorContains(t, err, "filter.expression is required")
			},
		},
		"too many args": {
			args: []string{"a.xml", "b.xml"},
			check: func(t *testing.T, err error) {
				t.Helper()
				require.ErrorContains(t, err, "accepts at most 1 arg")
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			res := execute(t, t.TempDir(), tc.input, tc.args...)
			tc.check(t, res.err)
			assert.Empty(t, res.stdout)
		})
	}
}

//nolint:paralleltest // Modifies the default logger.
func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()

	config := `apiVersion: ratefilter.jacobcolvin.com/v1beta1
kind: Configuration
filter:
  paired: true
  mode: tree
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))

	// The lone pay record is not part of a matching pair.
	res := execute(t, dir, input, "-", "--yes")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "No matching records in 2.")
	assert.Contains(t, res.stdout, "<Class>Coeff Fixe</Class>")

	// Flags override the configuration file.
	res = execute(t, dir, input, "-", "--yes", "--paired=false")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "Coeff Fixe")
	assert.Contains(t, res.stdout, "<Class>Horaire</Class>")
}

//nolint:paralleltest // Modifies the default logger.
func TestRunInvalidConfigFile(t *testing.T) {
	dir := t.TempDir()

	config := `apiVersion: ratefilter.jacobcolvin.com/v1beta1
kind: Configuration
filter:
  mode: regex
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o600))

	res := execute(t, dir, input, "-", "--yes")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "mode: regex")
}

//nolint:paralleltest // Modifies the default logger.
func TestWriteAndShowConfig(t *testing.T) {
	dir := t.TempDir()

	res := execute(t, dir, "", "--write-config")
	require.NoError(t, res.err)
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))
	assert.FileExists(t, filepath.Join(dir, "config.v1beta1.json"))

	res = execute(t, dir, "", "--show-config", "--class", "Forfait")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "apiVersion: ratefilter.jacobcolvin.com/v1beta1")
	assert.Contains(t, res.stdout, "class: Forfait")
}
