package ui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/ratefilter/pkg/engine"
	"github.com/macropower/ratefilter/pkg/rates"
	"github.com/macropower/ratefilter/pkg/ui"
	"github.com/macropower/ratefilter/pkg/ui/theme"
)

const threeRecords = `<?xml version="1.0" encoding="UTF-8"?>
<Assignment xmlns="urn:example:assignment">
  <Rates rateType="pay" rateStatus="agreed">
    <Class>Coeff Fixe</Class>
    <StartDate>2024-01-01</StartDate>
    <Amount>10.00</Amount>
  </Rates>
  <Rates rateType="pay" rateStatus="agreed">
    <Class>Horaire</Class>
    <StartDate>2024-01-01</StartDate>
    <Amount>12.00</Amount>
  </Rates>
  <Rates rateType="pay" rateStatus="proposed">
    <Class>Coeff Fixe</Class>
    <StartDate>2024-02-01</StartDate>
    <Amount>14.00</Amount>
  </Rates>
</Assignment>
`

const pairs = `<Assignment>
  <Rates rateType="pay" rateStatus="agreed">
    <Class>Coeff Fixe</Class>
    <StartDate>2024-03-01</StartDate>
    <Amount>10.00</Amount>
  </Rates>
  <Rates rateType="bill" rateStatus="agreed">
    <Class>Coeff Fixe</Class>
    <Amount>15.00</Amount>
  </Rates>
  <Rates rateType="pay" rateStatus="agreed">
    <Class>Horaire</Class>
  </Rates>
</Assignment>
`

func propose(t *testing.T, input string, opts ...engine.Opt) *engine.Proposal {
	t.Helper()

	e, err := engine.New(opts...)
	require.NoError(t, err)

	p, err := e.PreviewText(t.Context(), "rates.xml", input)
	require.NoError(t, err)

	return p
}

func TestPreviewRender(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input      string
		opts       []engine.Opt
		previewer  []ui.PreviewerOpt
		want       []string
		wantAbsent []string
	}{
		"blocks": {
			input: threeRecords,
			want: []string{
				"ratefilter",
				"rates.xml",
				"urn:example:assignment",
				`Class="Coeff Fixe"`,
				"span",
				"Found 2 matching records in 3 (2 groups).",
				"Start date",
				"2024-01-01",
				"2024-02-01",
				"14.00",
				"Totals: pay 24.00",
			},
			wantAbsent: []string{"more", "paired"},
		},
		"limited": {
			input:      threeRecords,
			previewer:  []ui.PreviewerOpt{ui.WithLimit(1)},
			want:       []string{"... and 1 more", "2024-01-01"},
			wantAbsent: []string{"2024-02-01"},
		},
		"pairs": {
			input: pairs,
			opts:  []engine.Opt{engine.WithPaired(true), engine.WithMode(engine.ModeTree)},
			want: []string{
				"(none)",
				"tree, paired",
				"Found 2 matching records in 3 (1 group).",
				"Pay",
				"Bill",
				"2024-03-01",
				"Totals: pay 10.00, bill 15.00",
			},
		},
		"no matches": {
			input: threeRecords,
			opts: []engine.Opt{
				engine.WithPredicate(rates.Criteria{Class: "Forfait"}),
			},
			want:       []string{"No matching records in 3."},
			wantAbsent: []string{"Totals"},
		},
		"missing amounts": {
			input: `<A><Rates rateType="pay"><Class>Coeff Fixe</Class></Rates></A>`,
			want: []string{
				"Totals: 0.00 (1 record without a numeric Amount)",
				"N/A",
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			p := propose(t, tc.input, tc.opts...)
			got := ui.NewPreviewer(theme.Default, tc.previewer...).Render(p)

			for _, s := range tc.want {
				assert.Contains(t, got, s)
			}
			for _, s := range tc.wantAbsent {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestPreviewWidth(t *testing.T) {
	t.Parallel()

	p := propose(t, threeRecords)
	got := ui.NewPreviewer(theme.Default, ui.WithWidth(24)).Render(p)

	for line := range strings.SplitSeq(got, "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 24, line)
	}
}

func TestHighlighter(t *testing.T) {
	t.Parallel()

	input := "<a>\n  <b/>\n  <c/>\n  <d/>\n</a>\n"

	tcs := map[string]struct {
		opts     []ui.HighlighterOpt
		want     string
		width    int
		maxLines int
	}{
		"line numbers": {
			want: "   1  <a>\n   2    <b/>\n   3    <c/>\n   4    <d/>\n   5  </a>\n",
		},
		"without line numbers": {
			opts: []ui.HighlighterOpt{ui.WithoutLineNumbers()},
			want: input,
		},
		"max lines": {
			opts:     []ui.HighlighterOpt{ui.WithoutLineNumbers()},
			maxLines: 2,
			want:     "<a>\n  <b/>\n… 3 more lines\n",
		},
		"truncated": {
			opts:  []ui.HighlighterOpt{ui.WithoutLineNumbers()},
			width: 4,
			want:  "<a>\n  <…\n  <…\n  <…\n</a>\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := append([]ui.HighlighterOpt{ui.WithFormatter("noop")}, tc.opts...)
			h := ui.NewHighlighter(theme.Default, "XML", opts...)

			got, err := h.Render(input, tc.width, tc.maxLines)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDiffer(t *testing.T) {
	t.Parallel()

	d := ui.NewDiffer(theme.Default)

	got := d.Diff("rates.xml", "rates_cleaned.xml", "<a>\n  <b/>\n</a>\n", "<a>\n</a>\n")
	assert.Contains(t, got, "--- rates.xml")
	assert.Contains(t, got, "+++ rates_cleaned.xml")
	assert.Contains(t, got, "@@")
	assert.Contains(t, got, "-  <b/>")

	assert.Empty(t, d.Diff("a", "b", "same\n", "same\n"))
}

func TestPrompterNotInteractive(t *testing.T) {
	t.Parallel()

	p := ui.NewPrompter(theme.Default, ui.WithIO(strings.NewReader("y\n"), &bytes.Buffer{}))
	assert.False(t, p.Interactive())

	ok, err := p.Confirm(t.Context(), "Remove?", "")
	require.ErrorIs(t, err, ui.ErrNotInteractive)
	assert.False(t, ok)
}
