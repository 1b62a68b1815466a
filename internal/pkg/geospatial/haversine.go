package geospatial

import (
	"math"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

const (
	earthRadiusKm     = 6371.0
	earthRadiusMeters = earthRadiusKm * 1000
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two coordinates. Symmetric, zero for identical points.
func Distance(a, b domain.Coordinate) float64 {
	return Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Destination returns the point reached by travelling meters from origin
// along the initial bearing (degrees clockwise from north).
func Destination(origin domain.Coordinate, bearingDeg, meters float64) domain.Coordinate {
	delta := meters / earthRadiusMeters
	theta := toRad(bearingDeg)
	phi1 := toRad(origin.Latitude)
	lambda1 := toRad(origin.Longitude)

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return domain.Coordinate{
		Latitude:  toDeg(phi2),
		Longitude: wrapLongitude(toDeg(lambda2)),
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// wrapLongitude maps any longitude into [-180, 180].
func wrapLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	adjusted := math.Mod(lon+180, 360)
	if adjusted < 0 {
		adjusted += 360
	}
	return adjusted - 180
}
