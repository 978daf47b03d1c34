package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Canonical scalar field names shared by the normalization and merge layers.
// Normalizers must only emit these names for scalar fields so comparators
// can be keyed on them.
const (
	// FieldEmail is the canonical (alias-folded) email address.
	FieldEmail = "email"
	// FieldDomain is the email domain in ASCII (punycode) form.
	FieldDomain = "domain"
	// FieldMXValid is "true"/"false" for MX record validity.
	FieldMXValid = "mx_valid"
	// FieldDisposable is "true"/"false" for disposable-provider domains.
	FieldDisposable = "disposable"
	// FieldBreachCount is the number of known breaches as a decimal string.
	FieldBreachCount = "breach_count"
	// FieldPhone is the E.164 phone number.
	FieldPhone = "phone"
	// FieldFullName is the case-folded, diacritic-stripped full name.
	FieldFullName = "full_name"
	// FieldUsername is the canonical lowercase username.
	FieldUsername = "username"
	// FieldCity is the extracted city component of an address.
	FieldCity = "city"
	// FieldCountry is the extracted country component of an address.
	FieldCountry = "country"
	// FieldLatitude is the decimal latitude as a string.
	FieldLatitude = "lat"
	// FieldLongitude is the decimal longitude as a string.
	FieldLongitude = "lng"
	// FieldImageHash is the SHA-256 of the image content.
	FieldImageHash = "image_hash"
	// FieldCameraModel is the camera make/model from EXIF data.
	FieldCameraModel = "camera_model"
)

// Canonical set-valued field names. Set fields union during merge and
// never conflict.
const (
	// SetNameTokens holds the normalized name tokens.
	SetNameTokens = "name_tokens"
	// SetUsernames holds usernames associated with the subject.
	SetUsernames = "usernames"
	// SetTags holds free-form source tags.
	SetTags = "tags"
)

// NormalizedRecord is the canonicalized output of one successful scanner
// task. Records are append-only: never mutated after creation, so they can
// be shared by reference between entities and snapshots.
type NormalizedRecord struct {
	// Source is the name of the scanner that produced the record.
	Source string `json:"source"`

	// QueryType is the query type the record was normalized for.
	QueryType QueryType `json:"query_type"`

	// CollectedAt is when the raw payload was collected.
	CollectedAt time.Time `json:"collected_at"`

	// ParseError is true when the raw payload was malformed or partial.
	// The record is still created (with whatever fields could be salvaged)
	// so provenance is never dropped.
	ParseError bool `json:"parse_error,omitempty"`

	// Fields holds canonical scalar fields keyed by the Field* constants.
	Fields map[string]string `json:"fields"`

	// Sets holds canonical set-valued fields keyed by the Set* constants.
	Sets map[string][]string `json:"sets,omitempty"`
}

// Field returns the named scalar field, or "" when absent.
func (r *NormalizedRecord) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Fingerprint returns a stable content hash of the record's source and
// canonical fields. Two records with the same fingerprint are exact
// duplicates (a source re-query) and collapse silently during merge.
//
// The timestamp is deliberately excluded: re-running the same scanner
// against the same value must produce the same fingerprint.
func (r *NormalizedRecord) Fingerprint() string {
	var b strings.Builder
	b.WriteString(r.Source)
	b.WriteByte('\n')
	b.WriteString(string(r.QueryType))
	b.WriteByte('\n')

	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Fields[k])
		b.WriteByte('\n')
	}

	setKeys := make([]string, 0, len(r.Sets))
	for k := range r.Sets {
		setKeys = append(setKeys, k)
	}
	sort.Strings(setKeys)
	for _, k := range setKeys {
		vals := append([]string(nil), r.Sets[k]...)
		sort.Strings(vals)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
