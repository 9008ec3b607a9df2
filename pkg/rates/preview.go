package rates

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultPreviewLimit is the number of groups summarized before truncation.
const DefaultPreviewLimit = 10

// Summary is a human-readable description of one removal group, used to let
// an operator confirm the plan before anything is written.
type Summary struct {
	Kind       string
	Type       string
	StartDate  string
	Amount     string
	PayAmount  string
	BillAmount string
	Number     int
	Line       int
	Paired     bool
}

func (s Summary) String() string {
	if s.Paired {
		return fmt.Sprintf("%s %d: StartDate=%s, Pay=%s, Bill=%s",
			s.Kind, s.Number, s.StartDate, s.PayAmount, s.BillAmount)
	}

	return fmt.Sprintf("%s %d: Type=%s, StartDate=%s, Amount=%s",
		s.Kind, s.Number, s.Type, s.StartDate, s.Amount)
}

// Summaries describes up to limit groups of the plan. A limit <= 0 uses
// [DefaultPreviewLimit]. The second return value is the number of groups
// left out.
func (p *Plan) Summaries(limit int) ([]Summary, int) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	n := min(limit, len(p.Groups))
	out := make([]Summary, 0, n)

	for i, g := range p.Groups[:n] {
		first := g.First()

		s := Summary{
			Number:    i + 1,
			Line:      first.Line,
			StartDate: first.Field(FieldStartDate),
			Type:      attrOrNA(first, AttrType),
			Amount:    first.Field(FieldAmount),
			Kind:      "Block",
		}
		if g.Paired() {
			s.Paired = true
			s.Kind = "Pair"
			s.PayAmount = first.Field(FieldAmount)
			s.BillAmount = g.Last().Field(FieldAmount)
		}

		out = append(out, s)
	}

	return out, len(p.Groups) - n
}

// Totals is the sum of the Amount fields of the records in a plan.
type Totals struct {
	Pay   decimal.Decimal
	Bill  decimal.Decimal
	Other decimal.Decimal
	// Unparsed counts records whose Amount is missing or not a number.
	Unparsed int
}

// Totals sums the amounts of every record in the plan, by rateType.
func (p *Plan) Totals() Totals {
	t := Totals{}

	for _, r := range p.Records() {
		raw, ok := r.Fields[FieldAmount]
		if !ok {
			t.Unparsed++
			continue
		}

		amount, err := decimal.NewFromString(raw)
		if err != nil {
			t.Unparsed++
			continue
		}

		switch {
		case r.IsType(TypePay):
			t.Pay = t.Pay.Add(amount)
		case r.IsType(TypeBill):
			t.Bill = t.Bill.Add(amount)
		default:
			t.Other = t.Other.Add(amount)
		}
	}

	return t
}

func attrOrNA(r *Record, name string) string {
	if v, ok := r.Attrs[name]; ok && v != "" {
		return v
	}

	return "N/A"
}
