package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/macropower/ratefilter/api"
	"github.com/macropower/ratefilter/pkg/yaml"
)

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*Loader)

// WithValidator sets a custom validator.
func WithValidator(v Validator) LoaderOpt {
	return func(l *Loader) {
		l.validator = v
	}
}

// WithColor renders the source lines of YAML errors with ANSI colors.
func WithColor(color bool) LoaderOpt {
	return func(l *Loader) {
		l.color = color
	}
}

// Loader validates and decodes configuration data. Errors point at the
// offending line of the source.
type Loader struct {
	validator Validator
	data      []byte
	color     bool
}

// NewLoaderFromBytes creates a [Loader] from byte data.
func NewLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader {
	l := &Loader{
		data:      data,
		validator: DefaultValidator,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// NewLoaderFromFile creates a [Loader] from a file path.
func NewLoaderFromFile(path string, opts ...LoaderOpt) (*Loader, error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Return the original error.
	}

	return NewLoaderFromBytes(data, opts...), nil
}

func (l *Loader) annotate(err error) error {
	return yaml.Annotate(err, yaml.WithSource(l.data), yaml.WithColor(l.color))
}

// Validate validates the configuration data against the schema.
func (l *Loader) Validate() error {
	var anyConfig any

	err := yaml.NewDecoder(bytes.NewReader(l.data)).Decode(&anyConfig)
	if err != nil {
		return l.annotate(err)
	}

	if l.validator != nil {
		err = l.validator.Validate(anyConfig)
		if err != nil {
			return l.annotate(err)
		}
	}

	return nil
}

// Load validates, decodes and defaults the configuration.
func (l *Loader) Load() (*Config, error) {
	err := l.Validate()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	err = yaml.NewDecoder(bytes.NewReader(l.data)).Decode(cfg)
	if err != nil {
		return nil, l.annotate(err)
	}

	cfg.EnsureDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads the configuration at path. A missing file yields the default
// configuration.
func Load(path string, opts ...LoaderOpt) (*Config, error) {
	l, err := NewLoaderFromFile(path, opts...)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewConfig(), nil
		}

		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := l.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	return cfg, nil
}

// WriteDefaultConfig writes the embedded default config.yaml and its JSON
// schema to the directory of path.
func WriteDefaultConfig(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "config")
	if err != nil {
		return err //nolint:wrapcheck // Return the original error.
	}

	schemaPath := filepath.Join(filepath.Dir(path), SchemaFileName)

	err = api.WriteFileAtomic(schemaPath, schemaJSON, 0o600)
	if err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}

	return nil
}
