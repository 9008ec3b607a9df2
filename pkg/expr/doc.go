// Package expr provides CEL (Common Expression Language) functionality
// for evaluating expressions against rate records.
//
// It creates CEL environments with the standard string, math and list
// extensions, plus custom functions for:
//   - Amount parsing (num)
//   - Whitespace normalization (squash)
//
// Callers declare the variables their expressions may use when creating the
// [Environment].
package expr
