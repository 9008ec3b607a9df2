package ui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/macropower/ratefilter/pkg/ui/theme"
)

// Highlighter renders source text with chroma syntax highlighting and line
// numbers.
type Highlighter struct {
	lexer               chroma.Lexer
	formatter           chroma.Formatter
	theme               *theme.Theme
	lineNumbersDisabled bool
}

// HighlighterOpt configures a [Highlighter].
type HighlighterOpt func(*Highlighter)

// WithFormatter sets the chroma formatter by name, e.g. "noop" for plain
// output.
func WithFormatter(name string) HighlighterOpt {
	return func(h *Highlighter) {
		h.formatter = formatters.Get(name)
	}
}

// WithoutLineNumbers disables the line number gutter.
func WithoutLineNumbers() HighlighterOpt {
	return func(h *Highlighter) {
		h.lineNumbersDisabled = true
	}
}

// NewHighlighter creates a [Highlighter] for language, e.g. "XML" or
// "YAML". The formatter follows the terminal color profile.
func NewHighlighter(t *theme.Theme, language string, opts ...HighlighterOpt) *Highlighter {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	formatterName := "noop"
	switch termenv.ColorProfile() {
	case termenv.TrueColor:
		formatterName = "terminal16m"
	case termenv.ANSI256:
		formatterName = "terminal256"
	case termenv.ANSI:
		formatterName = "terminal8"
	}

	h := &Highlighter{
		lexer:     chroma.Coalesce(lexer),
		formatter: formatters.Get(formatterName),
		theme:     t,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Render highlights up to maxLines lines of text, truncating each to width
// cells. Zero disables either limit.
func (h *Highlighter) Render(text string, width, maxLines int) (string, error) {
	text = strings.TrimRight(text, "\n")
	lines := strings.Split(text, "\n")

	omitted := 0
	if maxLines > 0 && len(lines) > maxLines {
		omitted = len(lines) - maxLines
		text = strings.Join(lines[:maxLines], "\n")
	}

	iterator, err := h.lexer.Tokenise(nil, text)
	if err != nil {
		return "", fmt.Errorf("lexer tokenize: %w", err)
	}

	buf := &bytes.Buffer{}

	err = h.formatter.Format(buf, h.theme.ChromaStyle, iterator)
	if err != nil {
		return "", fmt.Errorf("format: %w", err)
	}

	var result strings.Builder

	styled := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	for i, line := range styled {
		result.WriteString(h.formatLine(line, i+1, width))
		result.WriteRune('\n')
	}

	if omitted > 0 {
		result.WriteString(h.theme.SubtleStyle.Render(fmt.Sprintf("%s %d more lines", theme.Ellipsis, omitted)))
		result.WriteRune('\n')
	}

	return result.String(), nil
}

func (h *Highlighter) formatLine(line string, lineNum, width int) string {
	if h.lineNumbersDisabled {
		if width > 0 {
			line = ansi.Truncate(line, width, h.theme.Ellipsis)
		}

		return line
	}

	gutter := fmt.Sprintf("%4d  ", lineNum)
	if width > 0 {
		line = ansi.Truncate(line, max(0, width-len(gutter)), h.theme.Ellipsis)
	}

	return h.theme.LineNumberStyle.Render(gutter) + line
}
