package geo

import "math"

const earthRadiusKm = 6371

// MaxTrajectoryPoints bounds any trajectory handed to the map surface.
const MaxTrajectoryPoints = 10000

// DefaultNoiseBase is the smoothing gain at standstill.
const DefaultNoiseBase = 0.1

// Point is a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HaversineKm returns the great-circle distance between two coordinates in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Pow(math.Sin(dLon/2), 2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceKm returns the great-circle distance between two points in kilometers.
func DistanceKm(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Smooth blends a new reading into the previous filtered value using an
// adaptive exponential filter: the faster the device moves, the more of
// the new sample is admitted. At standstill GPS jitter dominates, so the
// gain stays near noiseBase. A nil last value bootstraps the filter and
// returns the reading unchanged.
func Smooth(value float64, last *float64, speedKmh, noiseBase float64) float64 {
	if last == nil {
		return value
	}
	gain := noiseBase * (1 + speedKmh/50)
	if gain > 1 {
		gain = 1
	}
	return *last + (value-*last)*gain
}

// Resample bounds points to at most maxPoints via uniform index-based
// decimation, preserving the first and last point exactly. This is a
// deterministic decimation by index, not a shape-aware simplification;
// dense detail between kept indices is lost.
func Resample(points []Point, maxPoints int) []Point {
	if maxPoints < 2 || len(points) <= maxPoints {
		return points
	}
	interval := float64(len(points)-1) / float64(maxPoints-1)
	sampled := make([]Point, 0, maxPoints)
	for i := 0; i < maxPoints; i++ {
		sampled = append(sampled, points[int(math.Round(float64(i)*interval))])
	}
	return sampled
}
