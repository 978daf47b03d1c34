package merge

import (
	"strconv"
	"strings"

	"github.com/golang/geo/s2"

	"github.com/idrecon/idrecon/internal/model"
)

// exactIdentifiers are canonical fields where equality alone decides
// cluster membership: two records carrying the same email or phone are the
// same subject regardless of anything else.
var exactIdentifiers = []string{
	model.FieldEmail,
	model.FieldPhone,
	model.FieldUsername,
	model.FieldImageHash,
}

// coLocationRadiusKM is the distance at which two coordinates stop
// contributing location similarity.
const coLocationRadiusKM = 50.0

const earthRadiusKM = 6371.0

// similarity scores a record against an entity's representative in [0,1].
//
// Exact identifier equality short-circuits to 1; an identifier present on
// both sides with different values short-circuits to 0 (they are provably
// different subjects). Otherwise the score is a weighted aggregate over
// the comparators whose inputs are present on both sides.
func similarity(rec *model.NormalizedRecord, ent *model.Entity) float64 {
	matched := false
	for _, field := range exactIdentifiers {
		rv := rec.Field(field)
		ev, ok := ent.Fields[field]
		if rv == "" || !ok || ev.Value == "" {
			continue
		}
		if rv == ev.Value {
			return 1
		}
		matched = true
	}
	if matched {
		return 0
	}

	var weightSum, score float64

	if recName := rec.Field(model.FieldFullName); recName != "" {
		if entName, ok := ent.Fields[model.FieldFullName]; ok && entName.Value != "" {
			const w = 0.6
			weightSum += w
			score += w * nameSimilarity(recName, entName.Value, rec.Sets[model.SetNameTokens], ent.Sets[model.SetNameTokens])
		}
	}

	if recCity := rec.Field(model.FieldCity); recCity != "" {
		if entCity, ok := ent.Fields[model.FieldCity]; ok && entCity.Value != "" {
			const w = 0.2
			weightSum += w
			if recCity == entCity.Value {
				score += w
			}
		}
	}

	if geoSim, ok := geoSimilarity(rec, ent); ok {
		const w = 0.2
		weightSum += w
		score += w * geoSim
	}

	if weightSum == 0 {
		return 0
	}
	return score / weightSum
}

// nameSimilarity blends token-set overlap with edit distance so both
// reorderings ("smith, jon") and spelling variants ("jon"/"john") score.
func nameSimilarity(a, b string, aTokens, bTokens []string) float64 {
	if a == b {
		return 1
	}
	if len(aTokens) == 0 {
		aTokens = strings.Fields(a)
	}
	if len(bTokens) == 0 {
		bTokens = strings.Fields(b)
	}
	return 0.5*jaccard(aTokens, bTokens) + 0.5*levenshteinRatio(a, b)
}

// jaccard returns |A∩B| / |A∪B| over two token sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	union := len(set)
	inter := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// levenshteinRatio is 1 minus the normalized edit distance.
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a two-row dynamic program.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// geoSimilarity ramps great-circle distance between the record's and
// entity's coordinates into [0,1]: identical positions score 1, positions
// coLocationRadiusKM apart or farther score 0.
func geoSimilarity(rec *model.NormalizedRecord, ent *model.Entity) (float64, bool) {
	recLat, ok1 := parseCoord(rec.Field(model.FieldLatitude))
	recLng, ok2 := parseCoord(rec.Field(model.FieldLongitude))
	if !ok1 || !ok2 {
		return 0, false
	}
	entLatField, ok3 := ent.Fields[model.FieldLatitude]
	entLngField, ok4 := ent.Fields[model.FieldLongitude]
	if !ok3 || !ok4 {
		return 0, false
	}
	entLat, ok5 := parseCoord(entLatField.Value)
	entLng, ok6 := parseCoord(entLngField.Value)
	if !ok5 || !ok6 {
		return 0, false
	}

	p1 := s2.LatLngFromDegrees(recLat, recLng)
	p2 := s2.LatLngFromDegrees(entLat, entLng)
	distKM := p1.Distance(p2).Radians() * earthRadiusKM

	if distKM >= coLocationRadiusKM {
		return 0, true
	}
	return 1 - distKM/coLocationRadiusKM, true
}

func parseCoord(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
