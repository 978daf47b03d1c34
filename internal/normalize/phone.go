package normalize

import (
	"regexp"
	"strings"

	"github.com/idrecon/idrecon/internal/model"
)

// e164Pattern is the shape of a canonical phone number: a plus sign, a
// non-zero country code digit, then 7 to 14 further digits.
var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// CanonicalPhone normalizes a phone number to E.164. Separators and
// national punctuation are stripped; numbers without a country code get
// the default prefix; "00" international dialing prefixes become "+".
func CanonicalPhone(raw, countryPrefix string) (string, bool) {
	if countryPrefix == "" {
		countryPrefix = "+1"
	}

	s := strings.TrimSpace(raw)
	international := strings.HasPrefix(s, "+")

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return "", false
	}

	var candidate string
	switch {
	case international:
		candidate = "+" + d
	case strings.HasPrefix(d, "00"):
		candidate = "+" + d[2:]
	default:
		candidate = countryPrefix + d
	}

	if !e164Pattern.MatchString(candidate) {
		return "", false
	}
	return candidate, true
}

// normalizePhone maps a phone-type payload to canonical fields.
func (n *Normalizer) normalizePhone(rec *model.NormalizedRecord, payload map[string]any) {
	raw := firstString(payload, "phone", "number", "value")
	phone, ok := CanonicalPhone(raw, n.CountryPrefix)
	if !ok {
		rec.ParseError = true
		return
	}
	rec.Fields[model.FieldPhone] = phone
}
