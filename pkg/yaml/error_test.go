package yaml_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/ratefilter/pkg/yaml"
)

const source = `apiVersion: ratefilter.jacobcolvin.com/v1beta1
kind: Configuration
filter:
  predicate: agreed
  mode: regex
preview:
  limit: 5
`

func TestError(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err          *yaml.Error
		want         string
		wantContains []string
	}{
		"plain": {
			err:  yaml.NewError(errors.New("boom")),
			want: "boom",
		},
		"nil error": {
			err:  &yaml.Error{},
			want: "",
		},
		"path without source": {
			err: yaml.NewError(errors.New("value is not allowed"),
				yaml.WithPath(yaml.NewPathBuilder().Root().Child("filter").Child("mode").Build()),
			),
			want: "error at $.filter.mode: value is not allowed",
		},
		"path with source": {
			err: yaml.NewError(errors.New("value is not allowed"),
				yaml.WithPath(yaml.NewPathBuilder().Root().Child("filter").Child("mode").Build()),
				yaml.WithSource([]byte(source)),
			),
			wantContains: []string{"[5:3] value is not allowed", "mode: regex"},
		},
		"path missing from source": {
			err: yaml.NewError(errors.New("missing"),
				yaml.WithPath(yaml.NewPathBuilder().Root().Child("output").Child("suffix").Build()),
				yaml.WithSource([]byte(source)),
			),
			want: "error at $.output.suffix: missing",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := tc.err.Error()
			if tc.want != "" || len(tc.wantContains) == 0 {
				assert.Equal(t, tc.want, got)
			}
			for _, s := range tc.wantContains {
				assert.Contains(t, got, s)
			}
		})
	}
}

func TestDecoderError(t *testing.T) {
	t.Parallel()

	var v map[string]any

	err := yaml.NewDecoder(stringsReader("a: [1, 2\nb: c\n")).Decode(&v)
	require.Error(t, err)

	var yamlErr *yaml.Error
	require.ErrorAs(t, err, &yamlErr)
	require.NotNil(t, yamlErr.Token)
	assert.Contains(t, err.Error(), "[")
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain")
	require.Same(t, plain, yaml.Annotate(plain, yaml.WithSource([]byte(source))))

	yamlErr := yaml.NewError(errors.New("bad"))
	err := yaml.Annotate(yamlErr, yaml.WithSource([]byte(source)), yaml.WithColor(true))
	require.ErrorAs(t, err, &yamlErr)
	assert.Equal(t, []byte(source), yamlErr.Source)
	assert.True(t, yamlErr.Color)
}
