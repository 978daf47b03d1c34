package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/idrecon/idrecon/internal/model"
)

func init() {
	Default().MustRegister(Metadata{
		Name:         "exifprobe",
		Description:  "EXIF metadata extraction from a local image file",
		Capabilities: []model.QueryType{model.QueryTypeImage},
		Reliability:  0.95,
		AvgLatency:   50 * time.Millisecond,
	}, func() (Adapter, error) {
		return NewEXIFProbe(maxImageBytes), nil
	})
}

// maxImageBytes limits how much image data the probe reads. 20MB covers
// full-resolution camera output while bounding memory use.
const maxImageBytes = 20 * 1024 * 1024

// EXIFProbe extracts EXIF metadata from a local image file referenced by
// the query value. GPS coordinates, camera make/model, and author tags are
// strong identity signals: the coordinates feed the merge layer's
// geographic comparator directly.
type EXIFProbe struct {
	// maxBytes caps the image size read into memory.
	maxBytes int64
}

// NewEXIFProbe creates an EXIFProbe with the given size cap.
func NewEXIFProbe(maxBytes int64) *EXIFProbe {
	if maxBytes <= 0 {
		maxBytes = maxImageBytes
	}
	return &EXIFProbe{maxBytes: maxBytes}
}

// Name returns the adapter name.
func (p *EXIFProbe) Name() string { return "exifprobe" }

// Execute reads the image at the target path and extracts EXIF tags.
// An image without EXIF data is a successful result with only the content
// hash; a missing or unreadable file is a permanent failure (the query
// value is wrong, retrying cannot help).
func (p *EXIFProbe) Execute(ctx context.Context, target Target) (*Result, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Failure(model.ErrorKindTimeout, err.Error(), 0), nil
	}

	info, err := os.Stat(target.Value)
	if err != nil {
		return Failure(model.ErrorKindPermanent, "image not readable: "+err.Error(), time.Since(start)), nil
	}
	if info.Size() > p.maxBytes {
		return Failure(model.ErrorKindPermanent, "image exceeds size limit", time.Since(start)), nil
	}

	data, err := os.ReadFile(target.Value)
	if err != nil {
		return Failure(model.ErrorKindPermanent, "image not readable: "+err.Error(), time.Since(start)), nil
	}

	sum := sha256.Sum256(data)
	payload := map[string]any{
		"image_hash": hex.EncodeToString(sum[:]),
	}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		// No EXIF segment. The hash alone is still a valid observation.
		return Success(payload, time.Since(start)), nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return Success(payload, time.Since(start)), nil
	}

	var make_, cameraModel string
	for _, entry := range entries {
		switch entry.TagName {
		case "Make":
			make_ = strings.TrimSpace(entry.Formatted)
		case "Model":
			cameraModel = strings.TrimSpace(entry.Formatted)
		case "Artist":
			payload["artist"] = strings.TrimSpace(entry.Formatted)
		case "Software":
			payload["software"] = strings.TrimSpace(entry.Formatted)
		}
	}
	if make_ != "" || cameraModel != "" {
		payload["camera_model"] = strings.TrimSpace(make_ + " " + cameraModel)
	}

	if lat, lng, ok := extractGPS(entries); ok {
		payload["lat"] = lat
		payload["lng"] = lng
	}

	return Success(payload, time.Since(start)), nil
}

// extractGPS pulls decimal GPS coordinates out of the flat tag list, if
// present. The coordinate tags carry degree/minute/second rationals; the
// ref tags flip the sign for the southern and western hemispheres.
func extractGPS(entries []exif.ExifTag) (lat, lng float64, ok bool) {
	var haveLat, haveLng bool
	var latRef, lngRef string

	for _, entry := range entries {
		switch entry.TagName {
		case "GPSLatitude":
			lat, haveLat = dmsToDecimal(entry.Value)
		case "GPSLongitude":
			lng, haveLng = dmsToDecimal(entry.Value)
		case "GPSLatitudeRef":
			latRef = strings.TrimSpace(entry.Formatted)
		case "GPSLongitudeRef":
			lngRef = strings.TrimSpace(entry.Formatted)
		}
	}
	if !haveLat || !haveLng {
		return 0, 0, false
	}

	if latRef == "S" {
		lat = -lat
	}
	if lngRef == "W" {
		lng = -lng
	}
	return lat, lng, true
}

// dmsToDecimal converts a degrees/minutes/seconds rational triple to a
// decimal coordinate.
func dmsToDecimal(value any) (float64, bool) {
	parts, ok := value.([]exifcommon.Rational)
	if !ok || len(parts) != 3 {
		return 0, false
	}
	dms := make([]float64, 3)
	for i, r := range parts {
		if r.Denominator == 0 {
			return 0, false
		}
		dms[i] = float64(r.Numerator) / float64(r.Denominator)
	}
	return dms[0] + dms[1]/60 + dms[2]/3600, true
}
