// Package xmldoc parses XML documents and removes `<Rates>` records from them.
//
// Two back-ends share one discovery walk:
//
//   - [SpanDocument] tracks the byte span of every element in the original
//     text and removes records by cutting those spans. Formatting outside the
//     removed records is preserved. This is best-effort: the cut only tidies
//     whitespace on the lines it touches.
//   - [TreeDocument] builds a [github.com/beevik/etree] tree, detaches the
//     record elements by identity and re-serializes the whole document with
//     two-space indentation.
//
// Element lookup resolves the effective namespace once, from the root element.
// Records are matched by local name within that namespace; when none are
// found, unqualified elements are tried instead. The class element and the
// field children of a record are matched by local name only.
package xmldoc
