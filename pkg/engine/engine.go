// Package engine removes rate records from XML documents.
//
// Removal is a two-phase interaction. [Engine.Preview] decodes and parses the
// input and computes a [rates.Plan] without touching anything; the caller
// shows the proposal to an operator and then calls [Engine.Apply], which
// produces the cleaned document. Apply is all-or-nothing: it returns either
// the complete, verified output or an error.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/macropower/ratefilter/pkg/charset"
	"github.com/macropower/ratefilter/pkg/log"
	"github.com/macropower/ratefilter/pkg/rates"
	"github.com/macropower/ratefilter/pkg/xmldoc"
)

// Mode selects the document back-end used for removal.
type Mode string

const (
	// ModeSpan cuts records out of the original text, keeping all other
	// formatting.
	ModeSpan Mode = "span"
	// ModeTree removes records from a parsed tree and re-serializes it.
	ModeTree Mode = "tree"
)

// AllModes lists the supported modes.
var AllModes = []Mode{ModeSpan, ModeTree}

// Engine finds records matching a predicate and removes them.
type Engine struct {
	decoder   *charset.Decoder
	predicate rates.Predicate
	lookup    xmldoc.Lookup
	mode      Mode
	paired    bool
}

// Opt configures an [Engine].
type Opt func(*Engine)

// WithMode sets the removal back-end.
func WithMode(m Mode) Opt {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithPaired enables paired mode, where only adjacent pay+bill pairs that
// both match are removed.
func WithPaired(paired bool) Opt {
	return func(e *Engine) {
		e.paired = paired
	}
}

// WithPredicate sets the match predicate.
func WithPredicate(p rates.Predicate) Opt {
	return func(e *Engine) {
		e.predicate = p
	}
}

// WithLookup sets the record and class element names.
func WithLookup(lk xmldoc.Lookup) Opt {
	return func(e *Engine) {
		e.lookup = lk
	}
}

// WithDecoder sets the decoder used for raw input.
func WithDecoder(d *charset.Decoder) Opt {
	return func(e *Engine) {
		e.decoder = d
	}
}

// New creates a new [Engine]. By default it removes every record whose class
// is [rates.DefaultClass], in span mode.
func New(opts ...Opt) (*Engine, error) {
	e := &Engine{
		decoder:   charset.NewDecoder(),
		predicate: rates.Criteria{Class: rates.DefaultClass},
		lookup:    xmldoc.DefaultLookup(),
		mode:      ModeSpan,
	}
	for _, opt := range opts {
		opt(e)
	}

	if !slices.Contains(AllModes, e.mode) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, e.mode)
	}
	if e.predicate == nil {
		return nil, errors.New("predicate is required")
	}

	err := e.decoder.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid encodings: %w", err)
	}

	return e, nil
}

// Mode returns the configured removal back-end.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Proposal is the outcome of [Engine.Preview]: a plan that has not yet been
// applied.
type Proposal struct {
	doc xmldoc.Document

	// Plan is the set of groups that will be removed.
	Plan *rates.Plan
	// Name identifies the input in messages.
	Name string
	// Text is the decoded input.
	Text string
	// Encoding is the encoding the input was decoded from.
	Encoding string
	// Namespace is the namespace resolved from the root element.
	Namespace string
	// Predicate describes the match predicate.
	Predicate string
	Mode      Mode
	// Fallback reports whether records were found by unqualified lookup.
	Fallback bool
	applied  bool
	// reencode is set when the input was not UTF-8, so the declaration of
	// span output must be rewritten.
	reencode bool
}

// Summaries returns preview lines for up to limit groups, and the number of
// groups left out.
func (p *Proposal) Summaries(limit int) ([]rates.Summary, int) {
	return p.Plan.Summaries(limit)
}

// Totals returns the summed amounts of the records that will be removed.
func (p *Proposal) Totals() rates.Totals {
	return p.Plan.Totals()
}

// Result is the outcome of [Engine.Apply].
type Result struct {
	// Encoding is the encoding the input was decoded from. Output is always
	// UTF-8.
	Encoding string
	// Output is the cleaned document.
	Output []byte
	// Total is the number of records in the input.
	Total int
	// Removed is the number of records removed. Pairs count twice.
	Removed int
	// Remaining is the number of records left in the output.
	Remaining int
	// Groups is the number of removal units (records or pairs).
	Groups int
}

// Preview decodes raw, parses it and computes the removal plan.
func (e *Engine) Preview(ctx context.Context, name string, raw []byte) (*Proposal, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	decoded, err := e.decoder.Decode(raw)
	if err != nil {
		if errors.Is(err, charset.ErrUnsupported) {
			return nil, &DecodeError{Name: name, Err: err}
		}

		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	log.WithContext(ctx).DebugContext(ctx, "decoded input",
		slog.String("name", name),
		slog.String("encoding", decoded.Encoding),
		slog.String("declared", decoded.Declared),
	)

	return e.preview(ctx, name, decoded)
}

// PreviewText is like [Engine.Preview] for input that is already decoded.
func (e *Engine) PreviewText(ctx context.Context, name, text string) (*Proposal, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	return e.preview(ctx, name, &charset.Result{Text: text, Encoding: charset.UTF8})
}

func (e *Engine) preview(ctx context.Context, name string, decoded *charset.Result) (*Proposal, error) {
	doc, err := e.parse(decoded.Text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	plan := rates.Select(doc.Records(), e.predicate, e.paired)

	p := &Proposal{
		doc:       doc,
		Plan:      plan,
		Name:      name,
		Text:      decoded.Text,
		Encoding:  decoded.Encoding,
		Namespace: doc.Namespace(),
		Fallback:  doc.Fallback(),
		Predicate: e.predicate.String(),
		Mode:      e.mode,
		reencode:  !decoded.IsUTF8(),
	}

	log.WithContext(ctx).DebugContext(ctx, "computed removal plan",
		slog.String("name", name),
		slog.String("namespace", p.Namespace),
		slog.Bool("fallback", p.Fallback),
		slog.Int("total", plan.Total),
		slog.Int("groups", len(plan.Groups)),
		slog.Int("removed", plan.Removed()),
	)

	return p, nil
}

//nolint:ireturn // Both back-ends satisfy xmldoc.Document.
func (e *Engine) parse(text string) (xmldoc.Document, error) {
	if e.mode == ModeTree {
		return xmldoc.ParseTree(text, e.lookup)
	}

	return xmldoc.ParseSpan(text, e.lookup)
}

// Apply removes the records of p and returns the cleaned document.
//
// The output is re-parsed before it is returned and its records are counted
// in the namespace they were found in. If it is not well-formed or does not
// contain exactly the expected number of records, Apply returns an error
// wrapping [ErrVerify] and no output.
func (e *Engine) Apply(ctx context.Context, p *Proposal) (*Result, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}
	if p.applied {
		return nil, ErrApplied
	}

	p.applied = true

	out, err := p.doc.Remove(p.Plan)
	if err != nil {
		return nil, fmt.Errorf("remove records from %s: %w", p.Name, err)
	}

	if p.Mode == ModeSpan && p.reencode {
		out = []byte(xmldoc.RewriteDeclaredEncoding(string(out), "UTF-8"))
	}

	want := p.Plan.Remaining()

	got, err := xmldoc.CountIn(string(out), e.lookup, xmldoc.Space(p.doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerify, err)
	}
	if got != want {
		return nil, fmt.Errorf("%w: expected %d remaining records, found %d", ErrVerify, want, got)
	}

	res := &Result{
		Output:    out,
		Encoding:  p.Encoding,
		Total:     p.Plan.Total,
		Removed:   p.Plan.Removed(),
		Remaining: got,
		Groups:    len(p.Plan.Groups),
	}

	log.WithContext(ctx).InfoContext(ctx, "removed rate records",
		slog.String("name", p.Name),
		slog.Int("total", res.Total),
		slog.Int("removed", res.Removed),
		slog.Int("remaining", res.Remaining),
		slog.Int("groups", res.Groups),
	)

	return res, nil
}

// Run previews and applies in one step, without confirmation.
func (e *Engine) Run(ctx context.Context, name string, raw []byte) (*Result, error) {
	p, err := e.Preview(ctx, name, raw)
	if err != nil {
		return nil, err
	}

	return e.Apply(ctx, p)
}
