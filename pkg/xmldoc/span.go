package xmldoc

import (
	"encoding/xml"
	"errors"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/macropower/ratefilter/pkg/rates"
)

// ErrAlreadyRemoved is returned when Remove is called twice on a document.
var ErrAlreadyRemoved = errors.New("document already modified")

// SpanDocument is a document that removes records by cutting their byte
// spans out of the original text.
type SpanDocument struct {
	text string
	discovery
	removed bool
}

// ParseSpan parses text, recording the byte span of every element.
func ParseSpan(text string, lk Lookup) (*SpanDocument, error) {
	root, err := parseElems(text)
	if err != nil {
		return nil, err
	}

	return &SpanDocument{
		text:      text,
		discovery: discover(root, lk.withDefaults()),
	}, nil
}

func (d *SpanDocument) Records() []*rates.Record { return d.records }
func (d *SpanDocument) Namespace() string        { return d.space }
func (d *SpanDocument) Fallback() bool           { return d.fallback }

type cut struct {
	start  int
	end    int
	paired bool
}

// Remove cuts every group of plan out of the text.
//
// Cuts are applied from the end of the document backwards, so earlier offsets
// stay valid. When a single record is the only thing on its line (apart from
// indentation), the preceding line break and indentation are removed with it.
// A pair is removed from the start of its first line up to and including the
// line break that follows it.
func (d *SpanDocument) Remove(plan *rates.Plan) ([]byte, error) {
	if d.removed {
		return nil, ErrAlreadyRemoved
	}

	d.removed = true

	cuts := make([]cut, 0, len(plan.Groups))
	for _, g := range plan.Groups {
		cuts = append(cuts, cut{
			start:  d.elems[g.First().Index].start,
			end:    d.elems[g.Last().Index].end,
			paired: g.Paired(),
		})
	}

	sort.Slice(cuts, func(i, j int) bool { return cuts[i].start > cuts[j].start })

	content := d.text
	for _, c := range outermost(cuts) {
		start, end := c.start, c.end

		if c.paired {
			if ls, ok := lineStart(content, start); ok {
				start = ls
				end = afterNewline(content, end)
			}
		} else if nl, ok := precedingNewline(content, start); ok {
			start = nl
		}

		content = content[:start] + content[end:]
	}

	return []byte(content), nil
}

// outermost drops cuts that lie inside another cut, keeping the descending
// start order. A pair can enclose the pairs removed between its records.
func outermost(cuts []cut) []cut {
	kept := make([]cut, 0, len(cuts))
	for i, c := range cuts {
		inside := false
		for j, o := range cuts {
			if i != j && o.start <= c.start && c.end <= o.end {
				inside = true
				break
			}
		}

		if !inside {
			kept = append(kept, c)
		}
	}

	return kept
}

// precedingNewline returns the offset of the line break before pos, when only
// whitespace lies between them. A CRLF break is returned from its CR.
func precedingNewline(content string, pos int) (int, bool) {
	nl := strings.LastIndexByte(content[:pos], '\n')
	if nl == -1 || strings.TrimSpace(content[nl:pos]) != "" {
		return 0, false
	}
	if nl > 0 && content[nl-1] == '\r' {
		nl--
	}

	return nl, true
}

// lineStart returns the offset just after the line break before pos, when
// only whitespace lies between them.
func lineStart(content string, pos int) (int, bool) {
	nl := strings.LastIndexByte(content[:pos], '\n')
	if nl == -1 || strings.TrimSpace(content[nl:pos]) != "" {
		return 0, false
	}

	return nl + 1, true
}

// afterNewline returns the offset after the line break that follows pos,
// when only spaces and tabs lie between them.
func afterNewline(content string, pos int) int {
	rest := strings.TrimLeft(content[pos:], " \t")
	skipped := len(content) - pos - len(rest)

	switch {
	case strings.HasPrefix(rest, "\r\n"):
		return pos + skipped + 2
	case strings.HasPrefix(rest, "\n"):
		return pos + skipped + 1
	}

	return pos
}

// parseElems builds the element tree of text with byte offsets.
func parseElems(text string) (*elem, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = true
	dec.CharsetReader = passThrough

	lines := newLineIndex(text)

	var (
		root  *elem
		stack []*elem
		// clean tracks, per open element, whether only whitespace has been
		// seen since its last element child ended.
		clean []bool
	)

	for {
		start := int(dec.InputOffset())

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newParseError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			e := &elem{
				space: t.Name.Space,
				local: t.Name.Local,
				attrs: attrMap(t.Attr),
				start: start,
				line:  lines.line(start),
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, &ParseError{Msg: "multiple root elements", Line: e.line}
				}

				root = e
			} else {
				top := len(stack) - 1
				parent := stack[top]
				e.adjacent = len(parent.kids) > 0 && clean[top]
				parent.kids = append(parent.kids, e)
			}

			stack = append(stack, e)
			clean = append(clean, true)

		case xml.EndElement:
			e := stack[len(stack)-1]
			e.end = int(dec.InputOffset())

			stack = stack[:len(stack)-1]
			clean = clean[:len(clean)-1]
			if len(clean) > 0 {
				clean[len(clean)-1] = true
			}

		case xml.CharData:
			if len(stack) == 0 {
				if len(strings.TrimSpace(string(t))) > 0 {
					return nil, &ParseError{Msg: "text outside the root element", Line: lines.line(start)}
				}

				continue
			}

			top := stack[len(stack)-1]
			top.text += string(t)
			if len(strings.TrimSpace(string(t))) > 0 {
				clean[len(clean)-1] = false
			}

		case xml.Comment, xml.ProcInst, xml.Directive:
			if len(clean) > 0 {
				clean[len(clean)-1] = false
			}
		}
	}

	if root == nil {
		return nil, &ParseError{Msg: "no root element"}
	}

	return root, nil
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}

		m[a.Name.Local] = a.Value
	}

	return m
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := lineIndex{0}
	for i := range len(text) {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}

	return idx
}

func (li lineIndex) line(offset int) int {
	n, found := slices.BinarySearch(li, offset)
	if found {
		return n + 1
	}

	return n
}
