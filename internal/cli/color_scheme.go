package cli

import (
	"image/color"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/exp/charmtone"

	"github.com/macropower/ratefilter/pkg/ui/theme"
)

// ColorSchemeFunc derives the help and error colors from the theme named by
// $RATEFILTER_THEME. Flags are not parsed yet when fang asks for the scheme.
func ColorSchemeFunc(c lipgloss.LightDarkFunc) fang.ColorScheme {
	return ThemeColorScheme(theme.New(os.Getenv(flagToEnvName("theme"))), c)
}

func ThemeColorScheme(t *theme.Theme, c lipgloss.LightDarkFunc) fang.ColorScheme {
	return fang.ColorScheme{
		Base:           toColor(t.GenericTextStyle.GetForeground()),
		Title:          toColor(t.LogoStyle.GetBackground()),
		Codeblock:      c(charmtone.Salt, lipgloss.Color("#2F2E36")),
		Program:        toColor(t.SelectedStyle.GetForeground()),
		Command:        toColor(t.SelectedStyle.GetForeground()),
		DimmedArgument: toColor(t.SubtleStyle.GetForeground()),
		Comment:        toColor(t.SubtleStyle.GetForeground()),
		Flag:           toColor(t.SelectedStyle.GetForeground()),
		Argument:       toColor(t.GenericTextStyle.GetForeground()),
		Description:    toColor(t.GenericTextStyle.GetForeground()),
		FlagDefault:    toColor(t.SelectedSubtleStyle.GetForeground()),
		QuotedString:   toColor(t.GenericTextStyle.GetForeground()),
		ErrorHeader: [2]color.Color{
			c(charmtone.Butter, charmtone.Butter),
			toColor(t.ErrorTextStyle.GetForeground()),
		},
	}
}

// toColor converts a theme color for fang. Theme colors are hex strings,
// which implement [color.Color].
func toColor(c any) color.Color {
	if cc, ok := c.(color.Color); ok {
		return cc
	}

	return nil
}
