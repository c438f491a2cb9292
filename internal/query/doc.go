// Package query holds the stateless algorithms that operate over rows:
// filter predicate evaluation, multi-key sorting, and ranked search.
//
// None of these functions return errors for bad data. Values that cannot
// be compared natively are coerced to a number, then a date-time, and
// finally compared as case-folded strings. Unmatchable values simply do
// not match.
package query
