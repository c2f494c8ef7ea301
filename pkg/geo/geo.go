package geo

import (
	"fmt"
	"math"
)

// Coordinates are persisted as integer micro-degrees (degrees * 1e6) so the
// store never compares floating-point values. Distance math happens on
// decoded degrees.
const microDegreesPerDegree = 1_000_000

const earthRadiusKm = 6371.0

var (
	ErrLatitudeOutOfRange  = fmt.Errorf("latitude out of range [-90, 90]")
	ErrLongitudeOutOfRange = fmt.Errorf("longitude out of range [-180, 180]")
)

// Point is a location in signed decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MicroPoint is a location in integer micro-degrees, the wire/storage form.
type MicroPoint struct {
	Latitude  int64 `json:"latitude"`
	Longitude int64 `json:"longitude"`
}

// EncodeDegrees converts decimal degrees to micro-degrees.
func EncodeDegrees(deg float64) int64 {
	return int64(math.Round(deg * microDegreesPerDegree))
}

// DecodeDegrees converts micro-degrees back to decimal degrees.
func DecodeDegrees(micro int64) float64 {
	return float64(micro) / microDegreesPerDegree
}

// EncodePoint validates p and converts it to storage form.
func EncodePoint(p Point) (MicroPoint, error) {
	if err := Validate(p); err != nil {
		return MicroPoint{}, err
	}
	return MicroPoint{
		Latitude:  EncodeDegrees(p.Latitude),
		Longitude: EncodeDegrees(p.Longitude),
	}, nil
}

// DecodePoint converts a stored location back to degrees.
func DecodePoint(mp MicroPoint) Point {
	return Point{
		Latitude:  DecodeDegrees(mp.Latitude),
		Longitude: DecodeDegrees(mp.Longitude),
	}
}

// Validate checks that p is within Earth's coordinate range.
func Validate(p Point) error {
	if p.Latitude < -90 || p.Latitude > 90 || math.IsNaN(p.Latitude) {
		return ErrLatitudeOutOfRange
	}
	if p.Longitude < -180 || p.Longitude > 180 || math.IsNaN(p.Longitude) {
		return ErrLongitudeOutOfRange
	}
	return nil
}

// DistanceKm returns the great-circle (haversine) distance between two points
// in kilometers. The same formula runs in the repository's SQL variant; both
// must order results identically for identical inputs.
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
