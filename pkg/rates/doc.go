// Package rates models `<Rates>` records and decides which of them are removed.
//
// A [Record] is a read-only view of one element extracted by a document
// back-end. A [Predicate] decides whether a single record qualifies, and
// [Select] turns the qualifying records into a [Plan] of removal groups,
// either one record per group or adjacent pay+bill pairs.
package rates
