package rates

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/macropower/ratefilter/pkg/expr"
)

const (
	PredicateClass     = "class"
	PredicateAgreed    = "agreed"
	PredicatePayAgreed = "pay-agreed"
	PredicateExpr      = "expr"
)

var (
	ErrUnknownPredicate = errors.New("unknown predicate")

	AllPredicates = []string{
		PredicateClass,
		PredicateAgreed,
		PredicatePayAgreed,
		PredicateExpr,
	}
)

// Predicate decides whether a single record qualifies for removal.
type Predicate interface {
	Match(r *Record) bool
	String() string
}

// Criteria matches on the Class text, ANDed with optional attribute values.
// Empty Type or Status means the attribute is not checked. When checked, an
// absent attribute never matches.
type Criteria struct {
	Class  string
	Type   string
	Status string
}

// Match implements [Predicate].
func (c Criteria) Match(r *Record) bool {
	if !r.HasClass || r.Class != c.Class {
		return false
	}
	if c.Type != "" {
		v, ok := r.Type()
		if !ok || v != c.Type {
			return false
		}
	}
	if c.Status != "" {
		v, ok := r.Status()
		if !ok || v != c.Status {
			return false
		}
	}

	return true
}

func (c Criteria) String() string {
	parts := []string{fmt.Sprintf("Class=%q", c.Class)}
	if c.Type != "" {
		parts = append(parts, fmt.Sprintf("%s=%q", AttrType, c.Type))
	}
	if c.Status != "" {
		parts = append(parts, fmt.Sprintf("%s=%q", AttrStatus, c.Status))
	}

	return strings.Join(parts, " && ")
}

// NewPredicate returns one of the named built-in predicates. For
// [PredicateExpr], expression is compiled with [NewExprPredicate].
//
//nolint:ireturn // Predicate variants are chosen at runtime.
func NewPredicate(name, class, expression string) (Predicate, error) {
	if class == "" {
		class = DefaultClass
	}

	switch name {
	case PredicateClass, "":
		return Criteria{Class: class}, nil
	case PredicateAgreed:
		return Criteria{Class: class, Status: StatusAgreed}, nil
	case PredicatePayAgreed:
		return Criteria{Class: class, Type: TypePay, Status: StatusAgreed}, nil
	case PredicateExpr:
		return NewExprPredicate(expression)
	}

	return nil, fmt.Errorf("%w: %q, expected one of %v", ErrUnknownPredicate, name, AllPredicates)
}

// ExprPredicate matches records with a CEL expression.
//
// CEL expressions have access to variables:
//   - `rateType` (string): The rateType attribute, empty when absent
//   - `rateStatus` (string): The rateStatus attribute, empty when absent
//   - `class` (string): The trimmed Class text
//   - `attrs` (map<string, string>): All attributes, use has(attrs.x) for presence
//   - `fields` (map<string, string>): Trimmed text of direct child elements
//
// For example:
//   - class == "Coeff Fixe" && rateStatus == "agreed"
//   - has(fields.Amount) && num(fields.Amount) == 0.0
type ExprPredicate struct {
	program    cel.Program
	expression string
}

// NewExprPredicate compiles expression into an [ExprPredicate].
func NewExprPredicate(expression string) (*ExprPredicate, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, errors.New("expression predicate requires an expression")
	}

	env, err := expr.NewEnvironment(
		cel.Variable("rateType", cel.StringType),
		cel.Variable("rateStatus", cel.StringType),
		cel.Variable("class", cel.StringType),
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, err
	}

	program, err := env.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", expression, err)
	}

	return &ExprPredicate{program: program, expression: expression}, nil
}

// Match implements [Predicate]. Evaluation errors and non-boolean results
// are treated as a non-match.
func (p *ExprPredicate) Match(r *Record) bool {
	rateType, _ := r.Type()
	rateStatus, _ := r.Status()

	result, _, err := p.program.Eval(map[string]any{
		"rateType":   rateType,
		"rateStatus": rateStatus,
		"class":      r.Class,
		"attrs":      r.Attrs,
		"fields":     r.Fields,
	})
	if err != nil {
		return false
	}

	if boolVal, ok := result.Value().(bool); ok {
		return boolVal
	}

	return false
}

func (p *ExprPredicate) String() string {
	return p.expression
}
