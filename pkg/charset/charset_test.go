package charset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/ratefilter/pkg/charset"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		opts     []charset.DecoderOpt
		raw      []byte
		wantText string
		wantEnc  string
		wantDecl string
	}{
		"plain utf-8": {
			raw:      []byte(`<Rates><Class>Coeff Fixe</Class></Rates>`),
			wantText: `<Rates><Class>Coeff Fixe</Class></Rates>`,
			wantEnc:  "utf-8",
		},
		"utf-8 with bom": {
			raw:      append([]byte{0xEF, 0xBB, 0xBF}, []byte("<a>é</a>")...),
			wantText: "<a>é</a>",
			wantEnc:  "utf-8",
		},
		"invalid utf-8 falls back to iso-8859-1": {
			raw:      []byte("<a>caf\xe9</a>"),
			wantText: "<a>café</a>",
			wantEnc:  "iso-8859-1",
		},
		"declared encoding is tried first": {
			raw:      []byte("<?xml version=\"1.0\" encoding=\"windows-1252\"?><a>\x80</a>"),
			wantText: "<?xml version=\"1.0\" encoding=\"windows-1252\"?><a>€</a>",
			wantEnc:  "windows-1252",
			wantDecl: "windows-1252",
		},
		"inconsistent declaration falls back": {
			raw:      []byte("<?xml version='1.0' encoding='UTF-8'?><a>\xe9</a>"),
			wantText: "<?xml version='1.0' encoding='UTF-8'?><a>é</a>",
			wantEnc:  "iso-8859-1",
			wantDecl: "UTF-8",
		},
		"unknown declared label is ignored": {
			raw:      []byte(`<?xml version="1.0" encoding="no-such-thing"?><a/>`),
			wantText: `<?xml version="1.0" encoding="no-such-thing"?><a/>`,
			wantEnc:  "utf-8",
			wantDecl: "no-such-thing",
		},
		"declaration ignored when disabled": {
			opts:     []charset.DecoderOpt{charset.WithDeclared(false)},
			raw:      []byte("<?xml version=\"1.0\" encoding=\"windows-1252\"?><a>\xe9</a>"),
			wantText: "<?xml version=\"1.0\" encoding=\"windows-1252\"?><a>é</a>",
			wantEnc:  "iso-8859-1",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res, err := charset.NewDecoder(tc.opts...).Decode(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.wantText, res.Text)
			assert.Equal(t, tc.wantEnc, res.Encoding)
			assert.Equal(t, tc.wantDecl, res.Declared)
		})
	}
}

func TestDecodeUnsupported(t *testing.T) {
	t.Parallel()

	d := charset.NewDecoder(charset.WithEncodings("utf-8"), charset.WithDeclared(false))

	_, err := d.Decode([]byte("<a>\xff\xfe\xe9</a>"))
	require.ErrorIs(t, err, charset.ErrUnsupported)
	assert.Contains(t, err.Error(), "utf-8")
}

func TestDecodeUnknownCandidate(t *testing.T) {
	t.Parallel()

	d := charset.NewDecoder(charset.WithEncodings("klingon"))
	require.ErrorIs(t, d.Validate(), charset.ErrUnknownEncoding)

	_, err := d.Decode([]byte("<a/>"))
	require.ErrorIs(t, err, charset.ErrUnknownEncoding)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"UTF-8":        "utf-8",
		"latin1":       "iso-8859-1",
		"Latin-1":      "iso-8859-1",
		"ISO-8859-1":   "iso-8859-1",
		"cp1252":       "windows-1252",
		"windows-1252": "windows-1252",
		"shift_jis":    "shift_jis",
	}

	for label, want := range tcs {
		t.Run(label, func(t *testing.T) {
			t.Parallel()

			_, got, err := charset.Lookup(label)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDeclared(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ISO-8859-1", charset.Declared([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><r/>`)))
	assert.Equal(t, "utf-8", charset.Declared([]byte("\n  <?xml version='1.0' encoding='utf-8' standalone='yes'?>")))
	assert.Empty(t, charset.Declared([]byte(`<?xml version="1.0"?><r/>`)))
	assert.Empty(t, charset.Declared([]byte(`<r encoding="latin1"/>`)))
}
