// Package config provides the ratefilter configuration file.
//
// The file is YAML with `apiVersion` and `kind` headers, validated against an
// embedded JSON schema before it is decoded. Every section is optional;
// missing values are filled from [DefaultConfig].
package config
