// Package normalize maps raw scanner payloads to canonical records.
//
// Normalization is pure, total, deterministic, and idempotent: the same
// payload always produces a byte-identical record, and a malformed payload
// produces a record flagged ParseError rather than an error, so provenance
// is never dropped. Canonical rules include email alias folding for
// providers that ignore dots and plus tags, E.164 phone form, and
// diacritic-stripped case-folded name tokens.
package normalize
