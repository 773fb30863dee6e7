// ABOUTME: Timestamp normalization package
// ABOUTME: Converts tabular timestamps into the ISO-8601 form the engine parses
// Package timefmt normalizes and parses the textual timestamps stored in a
// clock configuration.
//
// Two shapes are accepted: strings that already carry a 'T' separator, which
// pass through unchanged, and space-separated values as produced by tabular
// query results, which are rewritten to carry 'T' and, when no zone is
// present, a trailing 'Z'.
//
// Example:
//
//	timefmt.Normalize("1967-01-15 08:23:00") // "1967-01-15T08:23:00Z"
//	t, err := timefmt.Parse("2024-06-01T12:00:00+02:00")
package timefmt
