package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/ratefilter/pkg/config"
	"github.com/macropower/ratefilter/pkg/schema"
	"github.com/macropower/ratefilter/pkg/yaml"
)

type example struct {
	// Name is documented.
	Name  string `json:"name" jsonschema:"title=Name"`
	Count int    `json:"count,omitempty" jsonschema:"minimum=1"`
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	b, err := schema.NewGenerator(&example{},
		schema.WithComments("github.com/macropower/ratefilter/pkg/schema_test", "."),
	).Generate()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	defs, ok := got["$defs"].(map[string]any)
	require.True(t, ok)

	def, ok := defs["example"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, []any{"name"}, def["required"])
	assert.Equal(t, false, def["additionalProperties"])

	props, ok := def["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "count")
}

func TestGenerateConfig(t *testing.T) {
	t.Parallel()

	b, err := schema.NewGenerator(config.NewConfig()).Generate()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"const": "ratefilter.jacobcolvin.com/v1beta1"`)
	assert.Contains(t, string(b), `"FilterConfig"`)

	// The generated schema accepts the default configuration.
	v, err := yaml.NewValidator("/generated.json", b)
	require.NoError(t, err)

	c, err := config.NewLoaderFromBytes(config.DefaultConfigYAML(), config.WithValidator(v)).Load()
	require.NoError(t, err)
	assert.Equal(t, config.NewConfig(), c)
}
