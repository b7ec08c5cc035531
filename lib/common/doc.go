// Package common holds the primitives shared across the core packages
// that don't belong to any one of them: the canonical hash function,
// the log15 setup helpers the CLI uses to wire level filtering and
// JSON output, and the ISO8601 timestamp formatting JSONFormat uses
// for time.Time log fields.
package common
