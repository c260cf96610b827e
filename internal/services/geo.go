package services

import "math"

const (
	earthRadiusKm = 6371.0
	kmPerDegree   = 111.32
)

// DistanceKm is the great-circle distance between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox is a latitude/longitude box. A box that crosses the
// antimeridian has MinLon > MaxLon.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundsAround returns a box that contains every point within radiusKm of
// (lat, lon). It is used as an index-friendly prefilter before the exact
// distance check.
func BoundsAround(lat, lon, radiusKm float64) BoundingBox {
	box := BoundingBox{
		MinLat: math.Max(lat-radiusKm/kmPerDegree, -90),
		MaxLat: math.Min(lat+radiusKm/kmPerDegree, 90),
		MinLon: -180,
		MaxLon: 180,
	}
	cos := math.Cos(lat * math.Pi / 180)
	if cos <= 1e-6 {
		return box
	}
	dLon := radiusKm / (kmPerDegree * cos)
	if dLon >= 180 {
		return box
	}
	box.MinLon = lon - dLon
	box.MaxLon = lon + dLon
	if box.MinLon < -180 {
		box.MinLon += 360
	}
	if box.MaxLon > 180 {
		box.MaxLon -= 360
	}
	return box
}

// LonRanges returns the box's longitude span as two closed intervals. They
// are identical unless the box crosses the antimeridian.
func (b BoundingBox) LonRanges() (lo1, hi1, lo2, hi2 float64) {
	if b.MinLon <= b.MaxLon {
		return b.MinLon, b.MaxLon, b.MinLon, b.MaxLon
	}
	return b.MinLon, 180, -180, b.MaxLon
}

func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}
