package normalize

import (
	"strings"

	"github.com/idrecon/idrecon/internal/model"
)

// CanonicalUsername lowercases and trims a handle, dropping a leading "@".
func CanonicalUsername(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "@")
	if s == "" {
		return "", false
	}
	return s, true
}

// normalizeUsername maps a username-type payload to canonical fields.
func (n *Normalizer) normalizeUsername(rec *model.NormalizedRecord, payload map[string]any) {
	raw := firstString(payload, "username", "login", "handle", "value")
	username, ok := CanonicalUsername(raw)
	if !ok {
		rec.ParseError = true
	} else {
		rec.Fields[model.FieldUsername] = username
	}

	if related := stringList(payload, "usernames"); len(related) > 0 {
		rec.Sets[model.SetUsernames] = canonicalSet(related, CanonicalUsername)
	}
}
