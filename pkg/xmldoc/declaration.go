package xmldoc

import "regexp"

var declEncodingRegexp = regexp.MustCompile(`^(\s*<\?xml[^>]*?\sencoding\s*=\s*["'])([^"']*)(["'])`)

// RewriteDeclaredEncoding replaces the encoding pseudo-attribute of the XML
// declaration at the head of text. Text without a declaration, or whose
// declaration has no encoding, is returned unchanged.
func RewriteDeclaredEncoding(text, encoding string) string {
	loc := declEncodingRegexp.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}

	// Group 2 is the encoding value.
	return text[:loc[4]] + encoding + text[loc[5]:]
}
