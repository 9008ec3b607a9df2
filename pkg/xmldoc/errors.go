package xmldoc

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// ParseError reports malformed XML.
type ParseError struct {
	Err  error
	Msg  string
	Line int
}

func newParseError(err error) *ParseError {
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ParseError{Err: err, Msg: syntaxErr.Msg, Line: syntaxErr.Line}
	}

	return &ParseError{Err: err, Msg: err.Error()}
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed xml: line %d: %s", e.Line, e.Msg)
	}

	return "malformed xml: " + e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
