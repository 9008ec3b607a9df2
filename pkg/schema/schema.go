// Package schema generates JSON schemas from Go configuration types.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator reflects a JSON schema from a Go value. Doc comments of the
// registered packages become schema descriptions.
type Generator struct {
	v        any
	comments map[string]string
}

// GeneratorOpt configures a [Generator].
type GeneratorOpt func(*Generator)

// WithComments maps the Go package import path base to the source directory
// dir, so doc comments of its types are included.
func WithComments(base, dir string) GeneratorOpt {
	return func(g *Generator) {
		g.comments[base] = dir
	}
}

// NewGenerator creates a new [Generator] for v.
func NewGenerator(v any, opts ...GeneratorOpt) *Generator {
	g := &Generator{
		v:        v,
		comments: map[string]string{},
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate returns the indented JSON schema.
func (g *Generator) Generate() ([]byte, error) {
	r := &jsonschema.Reflector{}

	for base, dir := range g.comments {
		err := r.AddGoComments(base, dir)
		if err != nil {
			return nil, fmt.Errorf("add go comments from %s: %w", dir, err)
		}
	}

	jss := r.Reflect(g.v)

	b, err := json.MarshalIndent(jss, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(b, '\n'), nil
}
