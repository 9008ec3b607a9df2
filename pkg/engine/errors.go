package engine

import (
	"errors"
	"fmt"

	"github.com/macropower/ratefilter/pkg/xmldoc"
)

var (
	// ErrUnknownMode is returned for a removal mode other than [ModeSpan] or
	// [ModeTree].
	ErrUnknownMode = errors.New("unknown mode")

	// ErrAborted indicates that the operator declined the proposed removals.
	ErrAborted = errors.New("aborted")

	// ErrApplied is returned when a [Proposal] is applied more than once.
	ErrApplied = errors.New("proposal already applied")

	// ErrVerify indicates that the produced document did not re-parse to the
	// expected number of records. No output is emitted.
	ErrVerify = errors.New("output verification failed")
)

// ParseError reports malformed XML.
type ParseError = xmldoc.ParseError

// DecodeError reports that no candidate encoding could decode the input.
type DecodeError struct {
	Err  error
	Name string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
