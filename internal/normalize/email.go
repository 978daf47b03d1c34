package normalize

import (
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/idrecon/idrecon/internal/model"
)

// aliasFoldingDomains are providers where dots in the local part are
// ignored and a "+tag" suffix addresses the same mailbox. Folding these
// makes john.doe+x@gmail.com and johndoe@gmail.com compare equal.
var aliasFoldingDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"proton.me":      true,
	"protonmail.com": true,
	"pm.me":          true,
}

// domainAliases maps provider domains that deliver to the same mailbox
// namespace onto one canonical domain.
var domainAliases = map[string]string{
	"googlemail.com": "gmail.com",
}

// CanonicalEmail returns the alias-folded lowercase form of an email
// address and its ASCII (punycode) domain. ok is false when the input is
// not a plausible address.
func CanonicalEmail(raw string) (addr, domain string, ok bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", "", false
	}

	local, dom := s[:at], s[at+1:]

	// Internationalized domains compare in punycode form.
	if ascii, err := idna.Lookup.ToASCII(dom); err == nil && ascii != "" {
		dom = ascii
	}
	if canonical, aliased := domainAliases[dom]; aliased {
		dom = canonical
	}
	if !strings.Contains(dom, ".") {
		return "", "", false
	}

	if aliasFoldingDomains[dom] {
		if plus := strings.IndexByte(local, '+'); plus >= 0 {
			local = local[:plus]
		}
		local = strings.ReplaceAll(local, ".", "")
	}
	if local == "" {
		return "", "", false
	}

	return local + "@" + dom, dom, true
}

// normalizeEmail maps an email-type payload to canonical fields.
func (n *Normalizer) normalizeEmail(rec *model.NormalizedRecord, payload map[string]any) {
	raw := firstString(payload, "email", "address", "value")
	addr, domain, ok := CanonicalEmail(raw)
	if !ok {
		rec.ParseError = true
	} else {
		rec.Fields[model.FieldEmail] = addr
		rec.Fields[model.FieldDomain] = domain
	}

	if v, present := boolValue(payload, "mx_valid"); present {
		rec.Fields[model.FieldMXValid] = strconv.FormatBool(v)
	}
	if v, present := boolValue(payload, "disposable"); present {
		rec.Fields[model.FieldDisposable] = strconv.FormatBool(v)
	}
	if count, present := intValue(payload, "breach_count", "breaches"); present {
		rec.Fields[model.FieldBreachCount] = strconv.Itoa(count)
	} else if breached, present := boolValue(payload, "breach", "breached"); present && breached {
		rec.Fields[model.FieldBreachCount] = "1"
	}
}
