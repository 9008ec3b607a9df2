// Package charset decodes raw document bytes into UTF-8 text.
//
// Decoding is an ordered list of attempts. The encoding declared by the
// document's XML declaration (if any) is tried first, followed by the
// configured candidates in order. The first candidate that decodes the input
// without error wins.
package charset

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	UTF8 = "utf-8"

	// Only the head of the document is inspected for a declaration.
	declarationWindow = 512
)

var (
	// ErrUnsupported indicates that none of the candidate encodings could
	// decode the input.
	ErrUnsupported = errors.New("unsupported encoding")

	// ErrUnknownEncoding indicates a candidate name that has no decoder.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// DefaultEncodings is the ordered fallback list.
	DefaultEncodings = []string{"utf-8", "iso-8859-1", "windows-1252", "latin-1"}

	declRegexp = regexp.MustCompile(`^\s*<\?xml[^>]*?\sencoding\s*=\s*["']([A-Za-z0-9._:\-]+)["']`)

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}
)

// Result is the outcome of a successful [Decoder.Decode].
type Result struct {
	// Text is the decoded document, without any byte order mark.
	Text string
	// Encoding is the canonical name of the encoding that was used.
	Encoding string
	// Declared is the encoding named by the XML declaration, if any.
	Declared string
	// Tried lists every encoding attempted, in order.
	Tried []string
}

// IsUTF8 reports whether the input was already UTF-8.
func (r *Result) IsUTF8() bool {
	return r.Encoding == UTF8
}

// Decoder tries a prioritized list of encodings.
type Decoder struct {
	candidates  []string
	useDeclared bool
}

// DecoderOpt configures a [Decoder].
type DecoderOpt func(*Decoder)

// WithEncodings replaces the ordered candidate list.
func WithEncodings(names ...string) DecoderOpt {
	return func(d *Decoder) {
		if len(names) > 0 {
			d.candidates = names
		}
	}
}

// WithDeclared controls whether the declared encoding is tried first.
func WithDeclared(enabled bool) DecoderOpt {
	return func(d *Decoder) {
		d.useDeclared = enabled
	}
}

// NewDecoder creates a new [Decoder] using [DefaultEncodings].
func NewDecoder(opts ...DecoderOpt) *Decoder {
	d := &Decoder{
		candidates:  DefaultEncodings,
		useDeclared: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Validate checks that every candidate name maps to a known decoder.
func (d *Decoder) Validate() error {
	for _, name := range d.candidates {
		if _, _, err := Lookup(name); err != nil {
			return err
		}
	}

	return nil
}

// Decode converts raw to UTF-8 text.
func (d *Decoder) Decode(raw []byte) (*Result, error) {
	res := &Result{}

	candidates := d.candidates
	if d.useDeclared {
		res.Declared = Declared(raw)
		if res.Declared != "" {
			candidates = append([]string{res.Declared}, candidates...)
		}
	}

	seen := map[string]bool{}

	for _, name := range candidates {
		enc, canonical, err := Lookup(name)
		if err != nil {
			if name == res.Declared {
				// An unknown declared label falls through to the fallback list.
				continue
			}

			return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
		}
		if seen[canonical] {
			continue
		}

		seen[canonical] = true
		res.Tried = append(res.Tried, canonical)

		text, ok := decodeWith(enc, raw)
		if !ok {
			continue
		}

		res.Text = text
		res.Encoding = canonical

		return res, nil
	}

	return nil, fmt.Errorf("%w: tried %s", ErrUnsupported, strings.Join(res.Tried, ", "))
}

// Lookup resolves an encoding label. A nil [encoding.Encoding] means strict
// UTF-8.
//
//nolint:ireturn // Returns the x/text interface.
func Lookup(name string) (encoding.Encoding, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return nil, UTF8, nil
	case "iso-8859-1", "iso8859-1", "iso_8859-1", "latin-1", "latin1", "l1":
		return charmap.ISO8859_1, "iso-8859-1", nil
	case "windows-1252", "cp1252", "x-cp1252":
		return charmap.Windows1252, "windows-1252", nil
	}

	// WHATWG labels cover the rest (and alias latin-1 to windows-1252, which is
	// why the cases above are resolved first).
	enc, canonical := htmlcharset.Lookup(name)
	if enc == nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}

	return enc, canonical, nil
}

// Declared returns the encoding named in the XML declaration of raw, or an
// empty string.
func Declared(raw []byte) string {
	head := bytes.TrimPrefix(raw, utf8BOM)
	if len(head) > declarationWindow {
		head = head[:declarationWindow]
	}

	m := declRegexp.FindSubmatch(head)
	if m == nil {
		return ""
	}

	return string(m[1])
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, bool) {
	if enc == nil {
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(raw) {
			return "", false
		}

		return string(raw), true
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", false
	}

	// x/text substitutes U+FFFD for bytes it cannot map; treat that as a failed
	// attempt unless the replacement character is genuinely present.
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(raw, []byte(string(utf8.RuneError))) {
		return "", false
	}

	return string(out), true
}
