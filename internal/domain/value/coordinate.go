package value

import (
	"fmt"
	"math"
)

const earthRadiusM = 6371000.0

// Taiwan bounding box, outlying islands (Penghu, Kinmen, Matsu) included.
const (
	taiwanMinLat = 21.5
	taiwanMaxLat = 26.5
	taiwanMinLon = 118.0
	taiwanMaxLon = 122.5
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is a real point on the globe.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// InTaiwan reports whether the coordinate falls inside the Taiwan bounding
// box. Geocoding results outside of it are treated as unresolvable.
func (c Coordinate) InTaiwan() bool {
	return c.Lat >= taiwanMinLat && c.Lat <= taiwanMaxLat &&
		c.Lon >= taiwanMinLon && c.Lon <= taiwanMaxLon
}

// DistanceM returns the great-circle distance to other in meters (haversine).
func (c Coordinate) DistanceM(other Coordinate) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - c.Lat) * math.Pi / 180
	dLon := (other.Lon - c.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// CacheKey rounds the coordinate to 3 decimal places (~110 m) so nearby
// lookups share provider cache entries.
func (c Coordinate) CacheKey() string {
	return fmt.Sprintf("%.3f:%.3f", c.Lat, c.Lon)
}
