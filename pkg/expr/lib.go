package expr

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
	"github.com/shopspring/decimal"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),

		// `num` parses a decimal amount such as "12.50".
		// Example: num(fields.Amount) > 10.0.
		cel.Function("num",
			cel.Overload("num_string", []*cel.Type{cel.StringType}, cel.DoubleType,
				cel.UnaryBinding(func(s ref.Val) ref.Val {
					str, ok := s.(types.String)
					if !ok {
						return types.NewErr("num: invalid string value")
					}

					d, err := decimal.NewFromString(strings.TrimSpace(string(str)))
					if err != nil {
						return types.NewErr("num: %v", err)
					}

					f, _ := d.Float64()

					return types.Double(f)
				}),
			),
		),

		// `squash` trims the string and collapses inner whitespace runs to a
		// single space.
		// Example: squash(class) == "Coeff Fixe".
		cel.Function("squash",
			cel.Overload("squash_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(s ref.Val) ref.Val {
					str, ok := s.(types.String)
					if !ok {
						return types.NewErr("squash: invalid string value")
					}

					return types.String(strings.Join(strings.Fields(string(str)), " "))
				}),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}
