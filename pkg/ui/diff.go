package ui

import (
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"github.com/macropower/ratefilter/pkg/ui/theme"
)

// Differ renders unified diffs between the input and cleaned documents.
type Differ struct {
	t *theme.Theme
}

// NewDiffer creates a new [Differ].
func NewDiffer(t *theme.Theme) *Differ {
	return &Differ{t: t}
}

// Diff returns the styled unified diff of before and after, or an empty
// string if they are equal.
func (d *Differ) Diff(oldLabel, newLabel, before, after string) string {
	unified := udiff.Unified(oldLabel, newLabel, before, after)
	if unified == "" {
		return ""
	}

	lines := strings.Split(strings.TrimSuffix(unified, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			lines[i] = d.t.HeaderStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = d.t.HunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = d.t.InsertedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = d.t.DeletedStyle.Render(line)
		}
	}

	return strings.Join(lines, "\n") + "\n"
}
