// Package expect evaluates assertion rules against HTTP responses.
//
// A rule pairs an operator (contains, eq, ne, schema, db) with one or more
// path/expected checks. Evaluation never stops early: every check produces a
// diagnostic whether it passes or fails, so one run reveals all mismatches.
package expect
