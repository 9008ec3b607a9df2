package yaml

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// Error is a YAML error with the location it refers to. The location is
// either a [*token.Token] from the decoder or a [*yaml.Path] from schema
// validation; when Source is set, Error renders the surrounding lines.
type Error struct {
	Err    error
	Path   *yaml.Path
	Token  *token.Token
	Source []byte
	Color  bool
}

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{Err: err}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

type ErrorOpt func(e *Error)

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

// WithColor enables ANSI colors in the rendered source.
func WithColor(color bool) ErrorOpt {
	return func(e *Error) {
		e.Color = color
	}
}

// Annotate applies opts to err if it is an [*Error], and returns err.
func Annotate(err error, opts ...ErrorOpt) error {
	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		for _, opt := range opts {
			opt(yamlErr)
		}
	}

	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return ""
	}
	if e.Path == nil && e.Token == nil {
		return e.Err.Error()
	}

	tk := e.Token
	if tk == nil && len(e.Source) > 0 {
		var err error

		tk, err = tokenAtPath(e.Source, e.Path)
		if err != nil {
			slog.Debug("could not find config path in source",
				slog.String("path", e.Path.String()),
				slog.Any("err", err),
			)
		}
	}

	if tk == nil {
		return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
	}

	msg := fmt.Sprintf("[%d:%d] %v", tk.Position.Line, tk.Position.Column, e.Err)

	return msg + "\n" + printErrorToken(tk, e.Color)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func printErrorToken(tk *token.Token, color bool) string {
	var pp printer.Printer

	return strings.TrimRight(pp.PrintErrorToken(tk, color), "\n")
}

func tokenAtPath(source []byte, path *yaml.Path) (*token.Token, error) {
	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil, fmt.Errorf("filter source by path: %w", err)
	}

	// FilterFile returns the value node; point at the key when there is one.
	if key := keyToken(file, path); key != nil {
		return key, nil
	}

	return node.GetToken(), nil
}

func keyToken(file *ast.File, path *yaml.Path) *token.Token {
	s := path.String()

	dot := strings.LastIndex(s, ".")
	if dot == -1 || dot < strings.LastIndex(s, "[") {
		return nil
	}

	parent, err := yaml.PathString(s[:dot])
	if err != nil {
		return nil
	}

	node, err := parent.FilterFile(file)
	if err != nil {
		return nil
	}

	mapping, ok := node.(*ast.MappingNode)
	if !ok {
		return nil
	}

	for _, v := range mapping.Values {
		if v.Key.String() == s[dot+1:] {
			return v.Key.GetToken()
		}
	}

	return nil
}
