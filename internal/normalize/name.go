package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/idrecon/idrecon/internal/model"
)

// diacriticStripper decomposes to NFKD, removes combining marks, and
// recomposes, so "José" and "Jose" tokenize identically.
var diacriticStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// honorifics are leading titles carrying no identity signal.
var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true,
	"dr": true, "prof": true, "sir": true, "madam": true,
}

// CanonicalName returns the case-folded, diacritic-stripped full name and
// its token list. Honorific prefixes are dropped; generational suffixes
// (jr, iii) are kept as tokens since they distinguish people.
func CanonicalName(raw string) (full string, tokens []string) {
	stripped, _, err := transform.String(diacriticStripper, raw)
	if err != nil {
		stripped = raw
	}
	folded := cases.Fold().String(stripped)

	for _, word := range strings.Fields(folded) {
		token := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if token == "" {
			continue
		}
		if len(tokens) == 0 && honorifics[token] {
			continue
		}
		tokens = append(tokens, token)
	}

	return strings.Join(tokens, " "), tokens
}

// normalizeName maps a name-type payload to canonical fields.
func (n *Normalizer) normalizeName(rec *model.NormalizedRecord, payload map[string]any) {
	raw := firstString(payload, "name", "full_name", "value")
	full, tokens := CanonicalName(raw)
	if full == "" {
		rec.ParseError = true
		return
	}
	rec.Fields[model.FieldFullName] = full
	rec.Sets[model.SetNameTokens] = tokens
}
