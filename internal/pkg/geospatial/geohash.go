// Package geospatial holds the distance engine: haversine distance, geohash
// encoding and geohash range bounds for proximity prefilters.
//
// QueryBounds picks the finest geohash bit depth whose cells are at least as
// tall and wide as the search radius, then takes the cells under a 3x3 grid
// of sample points around the center. Neighbouring samples are never further
// apart than one cell, so the union of those cells contains the whole circle.
package geospatial

import (
	"math"
	"sort"

	"github.com/mmcloughlin/geohash"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

// Precision is the geohash length stored with every service area.
const Precision = 10

const (
	base32       = "0123456789bcdefghjkmnpqrstuvwxyz"
	bitsPerChar  = 5
	maxQueryBits = Precision * bitsPerChar

	// radiusSlack widens the computed deltas to absorb float error.
	radiusSlack = 1.01

	// boundTerminator sorts after every base32 character.
	boundTerminator = "~"
)

// Geohash encodes c at the fixed storage precision.
func Geohash(c domain.Coordinate) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, Precision)
}

// QueryBounds returns at most nine geohash ranges whose union contains every
// point within radiusMeters of center. Results over-cover; callers must
// apply an exact distance filter afterwards.
func QueryBounds(center domain.Coordinate, radiusMeters float64) []domain.GeohashBound {
	if radiusMeters < 0 {
		radiusMeters = 0
	}

	angular := radiusMeters / earthRadiusMeters
	latDelta := toDeg(angular) * radiusSlack
	lonDelta := longitudeDelta(center.Latitude, angular) * radiusSlack

	if lonDelta >= 180 || latDelta >= 90 {
		return []domain.GeohashBound{{Start: "", End: boundTerminator}}
	}

	bits := queryBits(latDelta, lonDelta)
	if bits == 0 {
		return []domain.GeohashBound{{Start: "", End: boundTerminator}}
	}

	lats := []float64{
		math.Max(-90, center.Latitude-latDelta),
		center.Latitude,
		math.Min(90, center.Latitude+latDelta),
	}
	lons := []float64{
		wrapLongitude(center.Longitude - lonDelta),
		center.Longitude,
		wrapLongitude(center.Longitude + lonDelta),
	}

	seen := make(map[domain.GeohashBound]struct{}, 9)
	bounds := make([]domain.GeohashBound, 0, 9)
	for _, lat := range lats {
		for _, lon := range lons {
			b := cellBound(lat, lon, bits)
			if _, dup := seen[b]; dup {
				continue
			}
			seen[b] = struct{}{}
			bounds = append(bounds, b)
		}
	}

	sort.Slice(bounds, func(i, j int) bool { return bounds[i].Start < bounds[j].Start })
	return bounds
}

// longitudeDelta is the widest longitude offset reached by a spherical cap
// of the given angular radius around latitude lat. A cap touching a pole
// spans every longitude.
func longitudeDelta(lat, angular float64) float64 {
	if toRad(math.Abs(lat))+angular >= math.Pi/2 {
		return 180
	}
	ratio := math.Sin(angular) / math.Cos(toRad(lat))
	if ratio >= 1 {
		return 180
	}
	return toDeg(math.Asin(ratio))
}

// queryBits returns the largest bit depth whose cells are at least latDelta
// tall and lonDelta wide, or 0 if even a single bit is too fine.
func queryBits(latDelta, lonDelta float64) int {
	for bits := maxQueryBits; bits >= 1; bits-- {
		lonBits := (bits + 1) / 2
		latBits := bits / 2
		height := 180 / math.Pow(2, float64(latBits))
		width := 360 / math.Pow(2, float64(lonBits))
		if height >= latDelta && width >= lonDelta {
			return bits
		}
	}
	return 0
}

// cellBound turns the bits-deep cell containing (lat, lon) into a lexical range.
func cellBound(lat, lon float64, bits int) domain.GeohashBound {
	chars := (bits + bitsPerChar - 1) / bitsPerChar
	hash := geohash.EncodeWithPrecision(lat, lon, uint(chars))

	base := hash[:chars-1]
	last := indexBase32(hash[chars-1])
	significant := bits - (chars-1)*bitsPerChar
	unused := bitsPerChar - significant

	startValue := (last >> unused) << unused
	endValue := startValue + (1 << unused)

	start := base + string(base32[startValue])
	if endValue > len(base32)-1 {
		return domain.GeohashBound{Start: start, End: base + boundTerminator}
	}
	return domain.GeohashBound{Start: start, End: base + string(base32[endValue])}
}

func indexBase32(c byte) int {
	for i := 0; i < len(base32); i++ {
		if base32[i] == c {
			return i
		}
	}
	return 0
}
