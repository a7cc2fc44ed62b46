package domain

import (
	"encoding/json"
	"math"
)

// GeoPoint - точка WGS84. Либо обе координаты валидны, либо обе NaN.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NoPoint возвращает "пустую" точку (обе координаты NaN)
func NoPoint() GeoPoint {
	return GeoPoint{Lat: math.NaN(), Lng: math.NaN()}
}

// NewGeoPoint нормализует пару координат: половинчато-валидная точка превращается в NoPoint
func NewGeoPoint(lat, lng float64) GeoPoint {
	p := GeoPoint{Lat: lat, Lng: lng}
	if !p.Valid() {
		return NoPoint()
	}
	return p
}

// Valid проверяет, что обе координаты конечны и лежат в допустимых диапазонах
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

type geoPointJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MarshalJSON пишет null для невалидной точки: encoding/json не умеет NaN
func (p GeoPoint) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(geoPointJSON{Lat: p.Lat, Lng: p.Lng})
}

// UnmarshalJSON reads null as NoPoint.
func (p *GeoPoint) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = NoPoint()
		return nil
	}
	var raw geoPointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = NewGeoPoint(raw.Lat, raw.Lng)
	return nil
}

// Bounds - видимая область карты
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// TileIndex - координаты тайла в схеме slippy map
type TileIndex struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// TileRange - прямоугольный диапазон тайлов на одном уровне зума
type TileRange struct {
	Z    int `json:"z"`
	XMin int `json:"x_min"`
	XMax int `json:"x_max"`
	YMin int `json:"y_min"`
	YMax int `json:"y_max"`
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int {
	return (r.XMax - r.XMin + 1) * (r.YMax - r.YMin + 1)
}

// Tiles enumerates the range column by column.
func (r TileRange) Tiles() []TileIndex {
	tiles := make([]TileIndex, 0, r.Count())
	for x := r.XMin; x <= r.XMax; x++ {
		for y := r.YMin; y <= r.YMax; y++ {
			tiles = append(tiles, TileIndex{Z: r.Z, X: x, Y: y})
		}
	}
	return tiles
}

// TileStyle - источник тайлов
type TileStyle string

const (
	TileStyleStandard  TileStyle = "standard"
	TileStyleSatellite TileStyle = "satellite"
	TileStyleHybrid    TileStyle = "hybrid"
)

// Valid reports whether the style is one of the known sources.
func (s TileStyle) Valid() bool {
	switch s {
	case TileStyleStandard, TileStyleSatellite, TileStyleHybrid:
		return true
	}
	return false
}
