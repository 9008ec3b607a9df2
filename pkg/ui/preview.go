// Package ui renders removal proposals for the terminal and asks for
// confirmation before anything is written.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"

	"github.com/macropower/ratefilter/pkg/engine"
	"github.com/macropower/ratefilter/pkg/rates"
	"github.com/macropower/ratefilter/pkg/ui/theme"
)

// Previewer renders a [engine.Proposal] as a summary and a table of the
// groups that will be removed.
type Previewer struct {
	t     *theme.Theme
	limit int
	width int
}

// PreviewerOpt configures a [Previewer].
type PreviewerOpt func(*Previewer)

// WithLimit sets the maximum number of groups listed.
func WithLimit(limit int) PreviewerOpt {
	return func(p *Previewer) {
		p.limit = limit
	}
}

// WithWidth truncates rendered lines to width cells. Zero disables
// truncation.
func WithWidth(width int) PreviewerOpt {
	return func(p *Previewer) {
		p.width = width
	}
}

// NewPreviewer creates a new [Previewer].
func NewPreviewer(t *theme.Theme, opts ...PreviewerOpt) *Previewer {
	p := &Previewer{
		t:     t,
		limit: rates.DefaultPreviewLimit,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Render returns the preview of prop.
func (p *Previewer) Render(prop *engine.Proposal) string {
	var b strings.Builder

	b.WriteString(p.t.LogoStyle.Render("ratefilter"))
	b.WriteString(" ")
	b.WriteString(p.t.SelectedStyle.Render(prop.Name))
	b.WriteString("\n\n")

	namespace := prop.Namespace
	if namespace == "" {
		namespace = "(none)"
	}
	if prop.Fallback {
		namespace += " (unqualified lookup)"
	}

	mode := string(prop.Mode)
	if prop.Plan.Paired {
		mode += ", paired"
	}

	for _, kv := range [][2]string{
		{"Encoding", prop.Encoding},
		{"Namespace", namespace},
		{"Predicate", prop.Predicate},
		{"Mode", mode},
	} {
		b.WriteString(p.t.SubtleStyle.Render(fmt.Sprintf("%-10s", kv[0]+":")))
		b.WriteString(" ")
		b.WriteString(kv[1])
		b.WriteString("\n")
	}

	b.WriteString("\n")

	plan := prop.Plan
	if plan.Empty() {
		fmt.Fprintf(&b, "No matching records in %d.\n", plan.Total)

		return p.truncate(b.String())
	}

	b.WriteString(p.t.HeaderStyle.Render(fmt.Sprintf(
		"Found %d matching records in %d (%s).",
		plan.Removed(), plan.Total, plural(len(plan.Groups), "group"),
	)))
	b.WriteString("\n")

	if plan.Nested > 0 {
		b.WriteString(p.t.SubtleStyle.Render(fmt.Sprintf(
			"%s enclosed by another match are removed with it.",
			plural(plan.Nested, "record"),
		)))
		b.WriteString("\n")
	}

	summaries, more := prop.Summaries(p.limit)
	b.WriteString(p.table(summaries, plan.Paired).Render())
	b.WriteString("\n")

	if more > 0 {
		b.WriteString(p.t.SubtleStyle.Render(fmt.Sprintf("... and %d more", more)))
		b.WriteString("\n")
	}

	b.WriteString(p.totals(prop.Totals()))
	b.WriteString("\n")

	return p.truncate(b.String())
}

func (p *Previewer) table(summaries []rates.Summary, paired bool) *table.Table {
	headers := []string{"#", "Line", "Type", "Start date", "Amount"}
	if paired {
		headers = []string{"#", "Line", "Start date", "Pay", "Bill"}
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		if paired {
			rows = append(rows, []string{
				strconv.Itoa(s.Number), strconv.Itoa(s.Line), s.StartDate, s.PayAmount, s.BillAmount,
			})

			continue
		}

		rows = append(rows, []string{
			strconv.Itoa(s.Number), strconv.Itoa(s.Line), s.Type, s.StartDate, s.Amount,
		})
	}

	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.t.BorderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return cell.Inherit(p.t.HeaderStyle)
			}

			return cell
		})
}

func (p *Previewer) totals(t rates.Totals) string {
	parts := []string{}
	for _, kv := range []struct {
		name   string
		amount decimal.Decimal
	}{
		{"pay", t.Pay},
		{"bill", t.Bill},
		{"other", t.Other},
	} {
		if kv.amount.IsZero() {
			continue
		}

		parts = append(parts, kv.name+" "+kv.amount.StringFixed(2))
	}

	out := "Totals: "
	if len(parts) == 0 {
		out += "0.00"
	} else {
		out += strings.Join(parts, ", ")
	}

	if t.Unparsed > 0 {
		out += fmt.Sprintf(" (%s without a numeric Amount)", plural(t.Unparsed, "record"))
	}

	return p.t.SubtleStyle.Render(out)
}

func (p *Previewer) truncate(s string) string {
	if p.width <= 0 {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, p.width, p.t.Ellipsis)
	}

	return strings.Join(lines, "\n")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return fmt.Sprintf("%d %ss", n, noun)
}
