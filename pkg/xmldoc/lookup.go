package xmldoc

import (
	"io"
	"strings"

	"github.com/macropower/ratefilter/pkg/rates"
)

const (
	DefaultRecordTag = "Rates"
	DefaultClassTag  = "Class"
)

// Lookup names the elements that make up a record.
type Lookup struct {
	RecordTag string
	ClassTag  string
}

// DefaultLookup returns a [Lookup] for `<Rates>` records with a `<Class>` child.
func DefaultLookup() Lookup {
	return Lookup{RecordTag: DefaultRecordTag, ClassTag: DefaultClassTag}
}

func (lk Lookup) withDefaults() Lookup {
	if lk.RecordTag == "" {
		lk.RecordTag = DefaultRecordTag
	}
	if lk.ClassTag == "" {
		lk.ClassTag = DefaultClassTag
	}

	return lk
}

// Document is a parsed XML document with its discovered records.
type Document interface {
	// Records returns the discovered records in document order.
	Records() []*rates.Record
	// Namespace returns the namespace URI resolved from the root element.
	Namespace() string
	// Fallback reports whether records were found by the unqualified lookup.
	Fallback() bool
	// Remove applies plan and returns the serialized result. A document can
	// only be removed from once.
	Remove(plan *rates.Plan) ([]byte, error)
}

// elem is the back-end neutral view of an element used by discovery.
type elem struct {
	attrs    map[string]string
	space    string
	local    string
	text     string
	kids     []*elem
	backing  any // *etree.Element for tree documents.
	start    int
	end      int
	line     int
	adjacent bool // Only whitespace separates it from the previous element sibling.
}

type discovery struct {
	records  []*rates.Record
	elems    []*elem
	space    string
	fallback bool
}

// discover enumerates records depth-first in document order.
func discover(root *elem, lk Lookup) discovery {
	d := discovery{space: root.space}

	walkRecords(root, lk, d.space, &d)
	if len(d.records) == 0 && d.space != "" {
		d.fallback = true
		walkRecords(root, lk, "", &d)
	}

	return d
}

func walkRecords(root *elem, lk Lookup, space string, d *discovery) {
	var visit func(e *elem, enclosing int, prev int)

	visit = func(e *elem, enclosing, prev int) {
		self := -1
		if e.local == lk.RecordTag && e.space == space {
			self = len(d.records)

			r := rates.NewRecord(self, e.attrs, directFields(e))
			r.Enclosing = enclosing
			r.Line = e.line
			if e.adjacent {
				r.Prev = prev
			}
			if class := firstDescendant(e, lk.ClassTag); class != nil {
				r.SetClass(class.text)
			}

			d.records = append(d.records, r)
			d.elems = append(d.elems, e)

			enclosing = self
		}

		last := -1
		for _, kid := range e.kids {
			before := len(d.records)
			visit(kid, enclosing, last)

			last = -1
			if len(d.records) > before && d.elems[before] == kid {
				last = before
			}
		}
	}

	visit(root, -1, -1)
}

func directFields(e *elem) map[string]string {
	fields := map[string]string{}
	for _, kid := range e.kids {
		if _, ok := fields[kid.local]; !ok {
			fields[kid.local] = strings.TrimSpace(kid.text)
		}
	}

	return fields
}

func firstDescendant(e *elem, local string) *elem {
	for _, kid := range e.kids {
		if kid.local == local {
			return kid
		}
		if found := firstDescendant(kid, local); found != nil {
			return found
		}
	}

	return nil
}

// passThrough is used as the CharsetReader: input text is already UTF-8,
// whatever the declaration says.
func passThrough(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

// CountIn parses text and returns the number of records in the namespace
// space. It never falls back to unqualified records, so a document is
// recounted under the lookup its records were found with.
func CountIn(text string, lk Lookup, space string) (int, error) {
	root, err := parseElems(text)
	if err != nil {
		return 0, err
	}

	var d discovery
	walkRecords(root, lk.withDefaults(), space, &d)

	return len(d.records), nil
}

// Space returns the namespace records of doc were matched in: the resolved
// namespace, or none when the unqualified fallback was used.
func Space(doc Document) string {
	if doc.Fallback() {
		return ""
	}

	return doc.Namespace()
}
