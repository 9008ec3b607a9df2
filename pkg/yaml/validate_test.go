package yaml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/ratefilter/pkg/yaml"
)

const testSchema = `{
	"type": "object",
	"properties": {
		"kind": {"type": "string"},
		"filter": {
			"type": "object",
			"properties": {
				"mode": {"enum": ["span", "tree"]},
				"paired": {"type": "boolean"}
			},
			"additionalProperties": false
		},
		"decode": {
			"type": "object",
			"properties": {
				"encodings": {"type": "array", "items": {"type": "string"}, "minItems": 1}
			},
			"required": ["encodings"]
		}
	},
	"required": ["kind"]
}`

func TestNewValidator(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		schema  string
		errMsg  string
		wantErr bool
	}{
		"valid schema": {schema: testSchema},
		"empty schema": {schema: `{}`},
		"invalid json": {
			schema:  `{"type": json}`,
			wantErr: true,
			errMsg:  "unmarshal schema",
		},
		"invalid schema": {
			schema:  `{"type": "record"}`,
			wantErr: true,
			errMsg:  "compile schema",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			v, err := yaml.NewValidator("test.json", []byte(tc.schema))
			if tc.wantErr {
				require.ErrorContains(t, err, tc.errMsg)
				assert.Nil(t, v)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestValidatorValidate(t *testing.T) {
	t.Parallel()

	v := yaml.MustNewValidator("test.json", []byte(testSchema))

	tcs := map[string]struct {
		data     any
		wantPath string
	}{
		"valid": {
			data: map[string]any{
				"kind":   "Configuration",
				"filter": map[string]any{"mode": "tree", "paired": true},
			},
		},
		"missing kind": {
			data:     map[string]any{},
			wantPath: "$",
		},
		"unknown mode": {
			data: map[string]any{
				"kind":   "Configuration",
				"filter": map[string]any{"mode": "regex"},
			},
			wantPath: "$.filter.mode",
		},
		"additional property": {
			data: map[string]any{
				"kind":   "Configuration",
				"filter": map[string]any{"colour": "red"},
			},
			wantPath: "$.filter",
		},
		"wrong item type": {
			data: map[string]any{
				"kind":   "Configuration",
				"decode": map[string]any{"encodings": []any{"utf-8", 7}},
			},
			wantPath: "$.decode.encodings[1]",
		},
		"missing nested field": {
			data: map[string]any{
				"kind":   "Configuration",
				"decode": map[string]any{},
			},
			wantPath: "$.decode",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := v.Validate(tc.data)
			if tc.wantPath == "" {
				require.NoError(t, err)

				return
			}

			var yamlErr *yaml.Error
			require.ErrorAs(t, err, &yamlErr)
			require.NotNil(t, yamlErr.Path)
			assert.Equal(t, tc.wantPath, yamlErr.Path.String())
		})
	}
}

func TestMustNewValidatorPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		yaml.MustNewValidator("bad.json", []byte(`not json`))
	})
}
