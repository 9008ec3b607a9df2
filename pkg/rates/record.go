package rates

import "strings"

const (
	AttrType   = "rateType"
	AttrStatus = "rateStatus"

	FieldStartDate = "StartDate"
	FieldAmount    = "Amount"

	TypePay      = "pay"
	TypeBill     = "bill"
	StatusAgreed = "agreed"

	// DefaultClass is the classification text that triggers removal.
	DefaultClass = "Coeff Fixe"
)

// Record is one `<Rates>` element, as discovered in document order.
type Record struct {
	// Attrs holds the element attributes, keyed by local name.
	Attrs map[string]string
	// Fields holds the trimmed text of the first direct child element for
	// each local name.
	Fields map[string]string

	// Class is the trimmed text of the first descendant Class element.
	Class string

	// Index is the position of the record in discovery order.
	Index int
	// Enclosing is the index of the nearest record that contains this one,
	// or -1.
	Enclosing int
	// Prev is the index of the record that is this record's immediately
	// preceding sibling, separated only by whitespace, or -1.
	Prev int

	// Line is the 1-based line of the start tag, when known.
	Line int

	HasClass bool
}

// NewRecord creates a [Record] with no relations.
func NewRecord(index int, attrs, fields map[string]string) *Record {
	if attrs == nil {
		attrs = map[string]string{}
	}
	if fields == nil {
		fields = map[string]string{}
	}

	return &Record{
		Index:     index,
		Attrs:     attrs,
		Fields:    fields,
		Enclosing: -1,
		Prev:      -1,
	}
}

// SetClass records the raw text of the Class element.
func (r *Record) SetClass(text string) {
	r.Class = strings.TrimSpace(text)
	r.HasClass = true
}

// Type returns the rateType attribute and whether it is present.
func (r *Record) Type() (string, bool) {
	v, ok := r.Attrs[AttrType]
	return v, ok
}

// Status returns the rateStatus attribute and whether it is present.
func (r *Record) Status() (string, bool) {
	v, ok := r.Attrs[AttrStatus]
	return v, ok
}

// IsType reports whether rateType is present and equal to t.
func (r *Record) IsType(t string) bool {
	v, ok := r.Type()
	return ok && v == t
}

// Field returns the text of a direct child element, or "N/A".
func (r *Record) Field(name string) string {
	if v, ok := r.Fields[name]; ok && v != "" {
		return v
	}

	return "N/A"
}
