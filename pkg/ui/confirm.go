package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/macropower/ratefilter/pkg/ui/theme"
)

// ErrNotInteractive is returned by [Prompter.Confirm] when input is not a
// terminal.
var ErrNotInteractive = errors.New("input is not a terminal")

// Prompter asks the operator to confirm proposed removals.
type Prompter struct {
	t          *theme.Theme
	in         io.Reader
	out        io.Writer
	isTerminal func() bool
}

// PrompterOpt configures a [Prompter].
type PrompterOpt func(*Prompter)

// WithIO sets the prompt input and output. Input must be a terminal.
func WithIO(in io.Reader, out io.Writer) PrompterOpt {
	return func(p *Prompter) {
		p.in = in
		p.out = out
	}
}

// NewPrompter creates a new [Prompter] reading from stdin and writing to
// stderr.
func NewPrompter(t *theme.Theme, opts ...PrompterOpt) *Prompter {
	p := &Prompter{
		t:   t,
		in:  os.Stdin,
		out: os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.isTerminal = func() bool {
		f, ok := p.in.(*os.File)

		return ok && term.IsTerminal(int(f.Fd()))
	}

	return p
}

// Interactive reports whether [Prompter.Confirm] can prompt.
func (p *Prompter) Interactive() bool {
	return p.isTerminal()
}

// Confirm asks whether to remove the records described by description.
// Declining, or interrupting the prompt, returns false.
func (p *Prompter) Confirm(ctx context.Context, title, description string) (bool, error) {
	if !p.isTerminal() {
		return false, ErrNotInteractive
	}

	confirmed := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Remove").
				Negative("Cancel").
				Value(&confirmed),
		),
	).
		WithShowHelp(false).
		WithInput(p.in).
		WithOutput(p.out).
		WithTheme(theme.HuhTheme(p.t))

	err := form.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("run confirm prompt: %w", err)
	}

	return confirmed, nil
}
