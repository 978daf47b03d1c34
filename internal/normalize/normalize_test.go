package normalize

import (
	"reflect"
	"testing"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

func TestCanonicalEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantAddr   string
		wantDomain string
		wantOK     bool
	}{
		{
			name:       "plain address lowercased",
			raw:        "Alice@Example.COM",
			wantAddr:   "alice@example.com",
			wantDomain: "example.com",
			wantOK:     true,
		},
		{
			name:       "gmail dots and plus tag fold away",
			raw:        "john.doe+test@gmail.com",
			wantAddr:   "johndoe@gmail.com",
			wantDomain: "gmail.com",
			wantOK:     true,
		},
		{
			name:       "googlemail folds to gmail",
			raw:        "john.doe@googlemail.com",
			wantAddr:   "johndoe@gmail.com",
			wantDomain: "gmail.com",
			wantOK:     true,
		},
		{
			name:       "dots survive on non-folding providers",
			raw:        "john.doe@example.com",
			wantAddr:   "john.doe@example.com",
			wantDomain: "example.com",
			wantOK:     true,
		},
		{
			name:       "internationalized domain becomes punycode",
			raw:        "user@bücher.de",
			wantAddr:   "user@xn--bcher-kva.de",
			wantDomain: "xn--bcher-kva.de",
			wantOK:     true,
		},
		{
			name:   "missing at sign",
			raw:    "not-an-email",
			wantOK: false,
		},
		{
			name:   "empty local part",
			raw:    "@example.com",
			wantOK: false,
		},
		{
			name:   "plus tag covering the whole gmail local part",
			raw:    "+tag@gmail.com",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			addr, domain, ok := CanonicalEmail(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("CanonicalEmail(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if addr != tt.wantAddr {
				t.Errorf("CanonicalEmail(%q) addr = %q, want %q", tt.raw, addr, tt.wantAddr)
			}
			if domain != tt.wantDomain {
				t.Errorf("CanonicalEmail(%q) domain = %q, want %q", tt.raw, domain, tt.wantDomain)
			}
		})
	}
}

func TestCanonicalPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		prefix string
		want   string
		wantOK bool
	}{
		{
			name:   "dashed national format gains the default prefix",
			raw:    "555-123-4567",
			prefix: "+1",
			want:   "+15551234567",
			wantOK: true,
		},
		{
			name:   "already international with separators",
			raw:    "+1-555-123-4567",
			prefix: "+1",
			want:   "+15551234567",
			wantOK: true,
		},
		{
			name:   "bare digits",
			raw:    "5551234567",
			prefix: "+1",
			want:   "+15551234567",
			wantOK: true,
		},
		{
			name:   "double zero dialing prefix",
			raw:    "0049 30 123456",
			prefix: "+1",
			want:   "+4930123456",
			wantOK: true,
		},
		{
			name:   "parenthesized area code",
			raw:    "(555) 123-4567",
			prefix: "+1",
			want:   "+15551234567",
			wantOK: true,
		},
		{
			name:   "empty prefix falls back to +1",
			raw:    "5551234567",
			want:   "+15551234567",
			wantOK: true,
		},
		{
			name:   "no digits",
			raw:    "call me maybe",
			prefix: "+1",
			wantOK: false,
		},
		{
			name:   "too short for e164",
			raw:    "1234",
			prefix: "+1",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := CanonicalPhone(tt.raw, tt.prefix)
			if ok != tt.wantOK {
				t.Fatalf("CanonicalPhone(%q) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("CanonicalPhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCanonicalName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantFull   string
		wantTokens []string
	}{
		{
			name:       "case folding and tokenization",
			raw:        "Jon Smith",
			wantFull:   "jon smith",
			wantTokens: []string{"jon", "smith"},
		},
		{
			name:       "diacritics stripped",
			raw:        "José García",
			wantFull:   "jose garcia",
			wantTokens: []string{"jose", "garcia"},
		},
		{
			name:       "honorific dropped, suffix kept",
			raw:        "Dr. Jonathan Smith III",
			wantFull:   "jonathan smith iii",
			wantTokens: []string{"jonathan", "smith", "iii"},
		},
		{
			name:     "empty input",
			raw:      "   ",
			wantFull: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			full, tokens := CanonicalName(tt.raw)
			if full != tt.wantFull {
				t.Errorf("CanonicalName(%q) full = %q, want %q", tt.raw, full, tt.wantFull)
			}
			if !reflect.DeepEqual(tokens, tt.wantTokens) {
				t.Errorf("CanonicalName(%q) tokens = %v, want %v", tt.raw, tokens, tt.wantTokens)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n := New("+1")

	t.Run("email payload with breach flag", func(t *testing.T) {
		t.Parallel()

		rec := n.Normalize(model.QueryTypeEmail, "breachdir", map[string]any{
			"email":  "johndoe@gmail.com",
			"breach": true,
		}, now)

		if rec.ParseError {
			t.Fatal("ParseError = true, want false")
		}
		if got := rec.Field(model.FieldEmail); got != "johndoe@gmail.com" {
			t.Errorf("email = %q, want johndoe@gmail.com", got)
		}
		if got := rec.Field(model.FieldBreachCount); got != "1" {
			t.Errorf("breach_count = %q, want 1", got)
		}
		if rec.Source != "breachdir" {
			t.Errorf("Source = %q, want breachdir", rec.Source)
		}
	})

	t.Run("aliased addresses from different sources normalize equal", func(t *testing.T) {
		t.Parallel()

		a := n.Normalize(model.QueryTypeEmail, "a", map[string]any{"email": "johndoe@gmail.com"}, now)
		b := n.Normalize(model.QueryTypeEmail, "b", map[string]any{"email": "john.doe@gmail.com"}, now)
		if a.Field(model.FieldEmail) != b.Field(model.FieldEmail) {
			t.Errorf("aliased addresses diverged: %q vs %q",
				a.Field(model.FieldEmail), b.Field(model.FieldEmail))
		}
	})

	t.Run("phone formats converge on e164", func(t *testing.T) {
		t.Parallel()

		a := n.Normalize(model.QueryTypePhone, "a", map[string]any{"phone": "+1-555-123-4567"}, now)
		b := n.Normalize(model.QueryTypePhone, "b", map[string]any{"phone": "5551234567"}, now)
		if a.Field(model.FieldPhone) != "+15551234567" {
			t.Errorf("a phone = %q, want +15551234567", a.Field(model.FieldPhone))
		}
		if a.Field(model.FieldPhone) != b.Field(model.FieldPhone) {
			t.Errorf("phone formats diverged: %q vs %q",
				a.Field(model.FieldPhone), b.Field(model.FieldPhone))
		}
	})

	t.Run("malformed payload yields parse error record", func(t *testing.T) {
		t.Parallel()

		rec := n.Normalize(model.QueryTypeEmail, "junk", map[string]any{"email": "not-an-email"}, now)
		if !rec.ParseError {
			t.Error("ParseError = false, want true")
		}
		if rec.Source != "junk" {
			t.Errorf("Source = %q, want junk (provenance must survive parse errors)", rec.Source)
		}
	})

	t.Run("image payload with gps and artist", func(t *testing.T) {
		t.Parallel()

		rec := n.Normalize(model.QueryTypeImage, "exifprobe", map[string]any{
			"image_hash":   "ABCDEF",
			"camera_model": "Canon EOS R5",
			"artist":       "José García",
			"lat":          51.5007,
			"lng":          -0.1246,
		}, now)

		if rec.ParseError {
			t.Fatal("ParseError = true, want false")
		}
		if got := rec.Field(model.FieldImageHash); got != "abcdef" {
			t.Errorf("image_hash = %q, want abcdef", got)
		}
		if got := rec.Field(model.FieldCameraModel); got != "canon eos r5" {
			t.Errorf("camera_model = %q, want canon eos r5", got)
		}
		if got := rec.Field(model.FieldFullName); got != "jose garcia" {
			t.Errorf("full_name = %q, want jose garcia", got)
		}
		if got := rec.Field(model.FieldLatitude); got != "51.500700" {
			t.Errorf("lat = %q, want 51.500700", got)
		}
	})

	t.Run("identical input normalizes identically", func(t *testing.T) {
		t.Parallel()

		payload := map[string]any{
			"username":  "Octocat",
			"usernames": []string{"OctoCat", "the-octocat", "octocat"},
			"tags":      []string{"Developer", "developer"},
		}
		a := n.Normalize(model.QueryTypeUsername, "ghprofile", payload, now)
		b := n.Normalize(model.QueryTypeUsername, "ghprofile", payload, now)

		if !reflect.DeepEqual(a, b) {
			t.Errorf("records differ:\n a = %+v\n b = %+v", a, b)
		}
		if a.Fingerprint() != b.Fingerprint() {
			t.Error("fingerprints differ for identical input")
		}
		wantUsernames := []string{"octocat", "the-octocat"}
		if !reflect.DeepEqual(a.Sets[model.SetUsernames], wantUsernames) {
			t.Errorf("usernames = %v, want %v", a.Sets[model.SetUsernames], wantUsernames)
		}
	})

	t.Run("unknown query type flags parse error", func(t *testing.T) {
		t.Parallel()

		rec := n.Normalize(model.QueryType("carrier-pigeon"), "x", nil, now)
		if !rec.ParseError {
			t.Error("ParseError = false, want true")
		}
	})
}
