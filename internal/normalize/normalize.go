package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// Normalizer converts raw scanner payloads into canonical records. The zero
// value is usable; CountryPrefix defaults to "+1" when empty.
type Normalizer struct {
	// CountryPrefix is prepended to national-format phone numbers.
	CountryPrefix string
}

// New creates a Normalizer with the given default country prefix.
func New(countryPrefix string) *Normalizer {
	return &Normalizer{CountryPrefix: countryPrefix}
}

// Normalize maps one raw payload to a canonical record for the query type.
//
// Normalize is total: malformed or partial payloads produce a record with
// ParseError set and whatever fields could be salvaged, never an error.
// It is deterministic and idempotent: identical inputs (including now)
// yield byte-identical records.
func (n *Normalizer) Normalize(qt model.QueryType, source string, payload map[string]any, now time.Time) *model.NormalizedRecord {
	rec := &model.NormalizedRecord{
		Source:      source,
		QueryType:   qt,
		CollectedAt: now,
		Fields:      make(map[string]string),
		Sets:        make(map[string][]string),
	}

	switch qt {
	case model.QueryTypeEmail:
		n.normalizeEmail(rec, payload)
	case model.QueryTypePhone:
		n.normalizePhone(rec, payload)
	case model.QueryTypeName:
		n.normalizeName(rec, payload)
	case model.QueryTypeUsername:
		n.normalizeUsername(rec, payload)
	case model.QueryTypeImage:
		n.normalizeImage(rec, payload)
	default:
		rec.ParseError = true
	}

	// Cross-type enrichment shared by all payload shapes.
	extractAddress(rec, payload)
	if tags := stringList(payload, "tags"); len(tags) > 0 {
		rec.Sets[model.SetTags] = canonicalSet(tags, func(s string) (string, bool) {
			t := strings.ToLower(strings.TrimSpace(s))
			return t, t != ""
		})
	}

	if len(rec.Sets) == 0 {
		rec.Sets = nil
	}
	return rec
}

// firstString returns the first present, non-empty string value among keys.
func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// boolValue looks up a boolean, also accepting "true"/"false" strings.
func boolValue(payload map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// intValue looks up an integer, also accepting float64 (JSON numbers) and
// decimal strings.
func intValue(payload map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

// floatValue looks up a float, also accepting integers and decimal strings.
func floatValue(payload map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// stringList collects a []string or []any-of-strings value.
func stringList(payload map[string]any, key string) []string {
	switch v := payload[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// canonicalSet canonicalizes, deduplicates, and sorts a set-valued field so
// identical payloads always serialize identically.
func canonicalSet(values []string, canon func(string) (string, bool)) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		c, ok := canon(v)
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
