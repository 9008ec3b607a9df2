// Package theme derives terminal styles from chroma syntax highlighting
// styles, so the preview, diff and prompts share one palette.
package theme

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

var (
	ErrInvalidName    = errors.New("invalid theme name")
	ErrRegisterStyles = errors.New("register styles")

	Default = New("github")
)

type Theme struct {
	BorderStyle         lipgloss.Style
	DeletedStyle        lipgloss.Style
	ErrorTextStyle      lipgloss.Style
	GenericTextStyle    lipgloss.Style
	HeaderStyle         lipgloss.Style
	HunkStyle           lipgloss.Style
	InsertedStyle       lipgloss.Style
	LineNumberStyle     lipgloss.Style
	LogoStyle           lipgloss.Style
	ResultTitleStyle    lipgloss.Style
	SelectedStyle       lipgloss.Style
	SelectedSubtleStyle lipgloss.Style
	SubtleStyle         lipgloss.Style

	ChromaStyle *chroma.Style
	Ellipsis    string
}

// New creates a [Theme] from the named chroma style. The names "light",
// "dark" and "auto" select a github style.
func New(theme string) *Theme {
	style := newChromaStyle(theme)

	var (
		genericStyle = lipgloss.NewStyle().
				Foreground(style.lipglossFromToken(chroma.Background))

		logoStyle = lipgloss.NewStyle().
				Foreground(style.lipglossFromTokenBg(chroma.Background)).
				Background(style.lipglossFromToken(chroma.NameTag)).
				Bold(true).
				Padding(0, 1)

		selectedStyle = lipgloss.NewStyle().
				Foreground(style.lipglossFromToken(chroma.NameTag))

		selectedSubtleStyle = lipgloss.NewStyle().
					Foreground(style.lipglossFromTokenWithFactor(chroma.NameTag, 0.3))

		subtleStyle = lipgloss.NewStyle().
				Foreground(style.lipglossFromToken(chroma.Comment))

		headerStyle = selectedStyle.Bold(true)

		errorTextStyle = lipgloss.NewStyle().
				Foreground(style.lipglossFromToken(chroma.GenericDeleted))

		resultTitleStyle = genericStyle.
					Background(style.lipglossFromToken(chroma.GenericInserted)).
					Padding(0, 1)

		insertedStyle = lipgloss.NewStyle().
				Foreground(style.lipglossFromToken(chroma.GenericInserted))

		deletedStyle = errorTextStyle

		hunkStyle = lipgloss.NewStyle().
				Foreground(style.lipglossFromToken(chroma.GenericSubheading))
	)

	return &Theme{
		BorderStyle:         subtleStyle,
		DeletedStyle:        deletedStyle,
		ErrorTextStyle:      errorTextStyle,
		GenericTextStyle:    genericStyle,
		HeaderStyle:         headerStyle,
		HunkStyle:           hunkStyle,
		InsertedStyle:       insertedStyle,
		LineNumberStyle:     subtleStyle,
		LogoStyle:           logoStyle,
		ResultTitleStyle:    resultTitleStyle,
		SelectedStyle:       selectedStyle,
		SelectedSubtleStyle: selectedSubtleStyle,
		SubtleStyle:         subtleStyle,

		ChromaStyle: style.style,
		Ellipsis:    Ellipsis,
	}
}

// Register adds a chroma style that [New] can then select by name.
func Register(name string, entries chroma.StyleEntries) error {
	if name == "" {
		return ErrInvalidName
	}

	customTheme, err := chroma.NewStyle(name, entries)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegisterStyles, err)
	}

	styles.Register(customTheme)

	return nil
}

type chromaStyle struct {
	style *chroma.Style
}

func newChromaStyle(theme string) chromaStyle {
	s := styles.Get(getStyle(theme))
	if s == nil {
		s = styles.Fallback
	}

	return chromaStyle{
		style: s,
	}
}

func (cs chromaStyle) lipglossFromToken(c chroma.TokenType) lipgloss.Color {
	s := cs.style.Get(c)

	return lipgloss.Color(s.Colour.String()) //nolint:misspell // Chroma naming.
}

func (cs chromaStyle) lipglossFromTokenBg(c chroma.TokenType) lipgloss.Color {
	s := cs.style.Get(c)

	return lipgloss.Color(s.Background.String())
}

func (cs chromaStyle) lipglossFromTokenWithFactor(c chroma.TokenType, factor float64) lipgloss.Color {
	s := cs.style.Get(c)

	sc := s.Colour.BrightenOrDarken(factor) //nolint:misspell // Chroma naming.

	return lipgloss.Color(sc.String())
}

func getStyle(style string) string {
	switch style {
	case "dark":
		return "github-dark"
	case "light":
		return "github"
	case "auto", "":
		return getDefaultStyle()
	default:
		return style
	}
}

func getDefaultStyle() string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return "" // Fallback.
	}
	if termenv.HasDarkBackground() {
		return "github-dark"
	}

	return "github"
}
