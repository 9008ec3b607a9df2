package xmldoc

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/macropower/ratefilter/pkg/rates"
)

const (
	// IndentSpaces is the child indentation used when re-serializing a tree.
	IndentSpaces = 2

	declaration = `version="1.0" encoding="UTF-8"`
)

// TreeDocument is a document that removes records by detaching elements from
// an [etree.Document] and re-serializing it.
type TreeDocument struct {
	doc *etree.Document
	discovery
	removed bool
}

// ParseTree parses text into an element tree.
func ParseTree(text string, lk Lookup) (*TreeDocument, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = passThrough

	err := doc.ReadFromString(text)
	if err != nil {
		return nil, newParseError(err)
	}

	var rootEl *etree.Element

	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if rootEl != nil {
				return nil, &ParseError{Msg: "multiple root elements"}
			}

			rootEl = t

		case *etree.CharData:
			if !t.IsWhitespace() {
				return nil, &ParseError{Msg: "text outside the root element"}
			}
		}
	}

	if rootEl == nil {
		return nil, &ParseError{Msg: "no root element"}
	}

	return &TreeDocument{
		doc:       doc,
		discovery: discover(treeElem(rootEl, false), lk.withDefaults()),
	}, nil
}

func (d *TreeDocument) Records() []*rates.Record { return d.records }
func (d *TreeDocument) Namespace() string        { return d.space }
func (d *TreeDocument) Fallback() bool           { return d.fallback }

// Remove detaches every record of plan from its parent and serializes the
// tree with an XML declaration and two-space indentation.
//
// Each element is removed through the handle captured during discovery, so a
// textually identical sibling is never removed in its place.
func (d *TreeDocument) Remove(plan *rates.Plan) ([]byte, error) {
	if d.removed {
		return nil, ErrAlreadyRemoved
	}

	d.removed = true

	for _, r := range plan.Records() {
		el, ok := d.elems[r.Index].backing.(*etree.Element)
		if !ok {
			return nil, fmt.Errorf("record %d: missing element handle", r.Index)
		}

		parent := el.Parent()
		if parent == nil {
			return nil, fmt.Errorf("record %d: cannot remove the root element", r.Index)
		}

		if parent.RemoveChild(el) == nil {
			return nil, fmt.Errorf("record %d: element not found in parent", r.Index)
		}
	}

	for _, tok := range append([]etree.Token(nil), d.doc.Child...) {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			d.doc.RemoveChild(pi)
		}
	}

	d.doc.InsertChildAt(0, etree.NewProcInst("xml", declaration))
	d.doc.Indent(IndentSpaces)

	out, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize xml: %w", err)
	}

	return out, nil
}

// treeElem converts an etree element and its descendants into an [elem].
func treeElem(el *etree.Element, adjacent bool) *elem {
	e := &elem{
		space:    el.NamespaceURI(),
		local:    el.Tag,
		attrs:    map[string]string{},
		backing:  el,
		adjacent: adjacent,
	}

	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}

		e.attrs[a.Key] = a.Value
	}

	var (
		text       strings.Builder
		sawElement bool
		clean      bool
	)

	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			e.kids = append(e.kids, treeElem(t, sawElement && clean))
			sawElement = true
			clean = true

		case *etree.CharData:
			text.WriteString(t.Data)
			if !t.IsWhitespace() {
				clean = false
			}

		default:
			clean = false
		}
	}

	e.text = text.String()

	return e
}
