package normalize

import (
	"strconv"
	"strings"

	"github.com/idrecon/idrecon/internal/model"
)

// formatCoordinate renders a coordinate with fixed precision so equal
// positions always serialize identically. Six decimal places is roughly
// 10cm of ground resolution, well past any source's accuracy.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// extractAddress pulls location components out of any payload shape.
// All fields are optional; nothing here can cause a parse error.
func extractAddress(rec *model.NormalizedRecord, payload map[string]any) {
	if city := firstString(payload, "city"); city != "" {
		rec.Fields[model.FieldCity] = strings.ToLower(strings.TrimSpace(city))
	}
	if country := firstString(payload, "country"); country != "" {
		rec.Fields[model.FieldCountry] = strings.ToLower(strings.TrimSpace(country))
	}

	lat, latOK := floatValue(payload, "lat", "latitude")
	lng, lngOK := floatValue(payload, "lng", "lon", "longitude")
	if latOK && lngOK && lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 {
		rec.Fields[model.FieldLatitude] = formatCoordinate(lat)
		rec.Fields[model.FieldLongitude] = formatCoordinate(lng)
	}
}

// normalizeImage maps an image-type payload to canonical fields. GPS
// coordinates are handled by extractAddress.
func (n *Normalizer) normalizeImage(rec *model.NormalizedRecord, payload map[string]any) {
	hash := firstString(payload, "image_hash", "sha256", "hash")
	if hash == "" {
		rec.ParseError = true
	} else {
		rec.Fields[model.FieldImageHash] = strings.ToLower(hash)
	}

	if camera := firstString(payload, "camera_model", "model"); camera != "" {
		rec.Fields[model.FieldCameraModel] = strings.ToLower(strings.TrimSpace(camera))
	}
	if artist := firstString(payload, "artist"); artist != "" {
		if full, tokens := CanonicalName(artist); full != "" {
			rec.Fields[model.FieldFullName] = full
			rec.Sets[model.SetNameTokens] = tokens
		}
	}
}
