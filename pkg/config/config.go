package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/ratefilter/api"
	"github.com/macropower/ratefilter/pkg/charset"
	"github.com/macropower/ratefilter/pkg/engine"
	"github.com/macropower/ratefilter/pkg/rates"
	"github.com/macropower/ratefilter/pkg/xmldoc"
	"github.com/macropower/ratefilter/pkg/yaml"
)

//go:generate go run ../../internal/schemagen -o config.v1beta1.json

const (
	// APIVersion is the current configuration API version.
	APIVersion = "ratefilter.jacobcolvin.com/v1beta1"

	// Kind is the configuration kind.
	Kind = "Configuration"

	// SchemaFileName is written next to the configuration file.
	SchemaFileName = "config.v1beta1.json"
)

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed config.v1beta1.json
	schemaJSON []byte

	ValidAPIVersions = []string{APIVersion}
	ValidKinds       = []string{Kind}

	// DefaultValidator validates configuration against the embedded schema.
	DefaultValidator = yaml.MustNewValidator("/"+SchemaFileName, schemaJSON)

	// ErrInvalidConfig is returned by [Config.Validate].
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DefaultConfigYAML returns the embedded default configuration file.
func DefaultConfigYAML() []byte {
	return slices.Clone(defaultConfigYAML)
}

// SchemaJSON returns the embedded configuration JSON schema.
func SchemaJSON() []byte {
	return slices.Clone(schemaJSON)
}

// Config is the ratefilter configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Filter selects the records to remove.
	Filter *FilterConfig `json:"filter,omitempty" jsonschema:"title=Filter"`
	// Decode controls how input bytes are decoded.
	Decode *DecodeConfig `json:"decode,omitempty" jsonschema:"title=Decode"`
	// Preview controls what is shown before confirmation.
	Preview *PreviewConfig `json:"preview,omitempty" jsonschema:"title=Preview"`
	// Output controls where the cleaned document is written.
	Output *OutputConfig `json:"output,omitempty" jsonschema:"title=Output"`
	// APIVersion specifies the API version for this configuration.
	APIVersion string `json:"apiVersion" jsonschema:"title=API Version"`
	// Kind defines the type of configuration.
	Kind string `json:"kind" jsonschema:"title=Kind"`
}

// FilterConfig selects the records to remove.
type FilterConfig struct {
	// Paired only removes adjacent pay+bill pairs where both records match.
	Paired *bool `json:"paired,omitempty" jsonschema:"title=Paired"`
	// Predicate names the match predicate.
	Predicate string `json:"predicate,omitempty" jsonschema:"title=Predicate,enum=class,enum=agreed,enum=pay-agreed,enum=expr"`
	// Expression is the CEL expression used by the expr predicate.
	Expression string `json:"expression,omitempty" jsonschema:"title=Expression"`
	// Class is the Class text that marks a record for removal.
	Class string `json:"class,omitempty" jsonschema:"title=Class"`
	// Mode selects span (text) or tree removal.
	Mode string `json:"mode,omitempty" jsonschema:"title=Mode,enum=span,enum=tree"`
	// RecordTag is the local name of record elements.
	RecordTag string `json:"recordTag,omitempty" jsonschema:"title=Record Tag"`
	// ClassTag is the local name of the class element within a record.
	ClassTag string `json:"classTag,omitempty" jsonschema:"title=Class Tag"`
}

// DecodeConfig controls how input bytes are decoded.
type DecodeConfig struct {
	// Declared tries the encoding named by the XML declaration first.
	Declared *bool `json:"declared,omitempty" jsonschema:"title=Declared"`
	// Encodings is the ordered list of encodings to try.
	Encodings []string `json:"encodings,omitempty" jsonschema:"title=Encodings,minItems=1"`
}

// PreviewConfig controls what is shown before confirmation.
type PreviewConfig struct {
	// Limit is the maximum number of groups listed.
	Limit *int `json:"limit,omitempty" jsonschema:"title=Limit,minimum=0"`
	// OutputLines is the number of output lines shown by --show-output.
	OutputLines *int `json:"outputLines,omitempty" jsonschema:"title=Output Lines,minimum=1"`
}

// OutputConfig controls where the cleaned document is written.
type OutputConfig struct {
	// Suffix is inserted before the extension of the input name.
	Suffix string `json:"suffix,omitempty" jsonschema:"title=Suffix,minLength=1"`
}

// DefaultOutputLines is the default number of lines shown by --show-output.
const DefaultOutputLines = 50

// NewConfig returns a [Config] with every default filled in.
func NewConfig() *Config {
	c := &Config{
		APIVersion: APIVersion,
		Kind:       Kind,
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults fills unset fields with their defaults.
func (c *Config) EnsureDefaults() {
	if c.Filter == nil {
		c.Filter = &FilterConfig{}
	}
	if c.Decode == nil {
		c.Decode = &DecodeConfig{}
	}
	if c.Preview == nil {
		c.Preview = &PreviewConfig{}
	}
	if c.Output == nil {
		c.Output = &OutputConfig{}
	}

	c.Filter.EnsureDefaults()
	c.Decode.EnsureDefaults()
	c.Preview.EnsureDefaults()
	c.Output.EnsureDefaults()
}

func (f *FilterConfig) EnsureDefaults() {
	if f.Predicate == "" {
		f.Predicate = rates.PredicateClass
	}
	if f.Class == "" {
		f.Class = rates.DefaultClass
	}
	if f.Mode == "" {
		f.Mode = string(engine.ModeSpan)
	}
	if f.RecordTag == "" {
		f.RecordTag = xmldoc.DefaultRecordTag
	}
	if f.ClassTag == "" {
		f.ClassTag = xmldoc.DefaultClassTag
	}
	if f.Paired == nil {
		f.Paired = new(bool)
	}
}

func (d *DecodeConfig) EnsureDefaults() {
	if len(d.Encodings) == 0 {
		d.Encodings = slices.Clone(charset.DefaultEncodings)
	}
	if d.Declared == nil {
		declared := true
		d.Declared = &declared
	}
}

func (p *PreviewConfig) EnsureDefaults() {
	if p.Limit == nil {
		limit := rates.DefaultPreviewLimit
		p.Limit = &limit
	}
	if p.OutputLines == nil {
		lines := DefaultOutputLines
		p.OutputLines = &lines
	}
}

func (o *OutputConfig) EnsureDefaults() {
	if o.Suffix == "" {
		o.Suffix = api.CleanedSuffix
	}
}

// Validate checks the requirements the schema cannot express. It expects
// defaults to be filled in.
func (c *Config) Validate() error {
	if !slices.Contains(rates.AllPredicates, c.Filter.Predicate) {
		return fmt.Errorf("%w: filter.predicate: %w: %q", ErrInvalidConfig, rates.ErrUnknownPredicate, c.Filter.Predicate)
	}
	if c.Filter.Predicate == rates.PredicateExpr && c.Filter.Expression == "" {
		return fmt.Errorf("%w: filter.expression is required for the %q predicate", ErrInvalidConfig, rates.PredicateExpr)
	}
	if !slices.Contains(engine.AllModes, engine.Mode(c.Filter.Mode)) {
		return fmt.Errorf("%w: filter.mode: %w: %q", ErrInvalidConfig, engine.ErrUnknownMode, c.Filter.Mode)
	}

	err := c.Decode.Decoder().Validate()
	if err != nil {
		return fmt.Errorf("%w: decode.encodings: %w", ErrInvalidConfig, err)
	}

	if *c.Preview.Limit < 0 {
		return fmt.Errorf("%w: preview.limit must not be negative", ErrInvalidConfig)
	}

	return nil
}

// NewPredicate builds the configured match predicate.
//
//nolint:ireturn // Predicates are interchangeable.
func (f *FilterConfig) NewPredicate() (rates.Predicate, error) {
	p, err := rates.NewPredicate(f.Predicate, f.Class, f.Expression)
	if err != nil {
		return nil, fmt.Errorf("create predicate: %w", err)
	}

	return p, nil
}

// Lookup returns the configured element names.
func (f *FilterConfig) Lookup() xmldoc.Lookup {
	return xmldoc.Lookup{RecordTag: f.RecordTag, ClassTag: f.ClassTag}
}

// Decoder returns a decoder for the configured encodings.
func (d *DecodeConfig) Decoder() *charset.Decoder {
	declared := d.Declared == nil || *d.Declared

	return charset.NewDecoder(
		charset.WithEncodings(d.Encodings...),
		charset.WithDeclared(declared),
	)
}

// EngineOpts returns the [engine.Opt]s for this configuration.
func (c *Config) EngineOpts() ([]engine.Opt, error) {
	pred, err := c.Filter.NewPredicate()
	if err != nil {
		return nil, err
	}

	return []engine.Opt{
		engine.WithPredicate(pred),
		engine.WithMode(engine.Mode(c.Filter.Mode)),
		engine.WithPaired(*c.Filter.Paired),
		engine.WithLookup(c.Filter.Lookup()),
		engine.WithDecoder(c.Decode.Decoder()),
	}, nil
}

// JSONSchemaExtend restricts apiVersion and kind to the known values.
func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	for prop, values := range map[string][]string{
		"apiVersion": ValidAPIVersions,
		"kind":       ValidKinds,
	} {
		s, ok := jss.Properties.Get(prop)
		if !ok {
			panic(prop + " property not found in schema")
		}

		for _, v := range values {
			s.OneOf = append(s.OneOf, &jsonschema.Schema{
				Type:  "string",
				Const: v,
				Title: s.Title,
			})
		}

		_, _ = jss.Properties.Set(prop, s)
	}
}

// MarshalYAML encodes the configuration.
func (c *Config) MarshalYAML() ([]byte, error) {
	type plain Config

	b, err := yaml.Marshal((*plain)(c))
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}

	return b, nil
}

// GetPath returns the default configuration file path.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}
