package utils

import (
	"math"

	"github.com/geopin-service/internal/domain"
)

const earthRadiusKm = 6371.0

// DistanceKm - расстояние по большому кругу между двумя точками, км
func DistanceKm(a, b domain.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLng := (b.Lng - a.Lng) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// SamePoint сравнивает точки покомпонентно с допуском eps градусов.
// Точка без координат не совпадает ни с какой.
func SamePoint(a, b domain.GeoPoint, eps float64) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return math.Abs(a.Lat-b.Lat) <= eps && math.Abs(a.Lng-b.Lng) <= eps
}
