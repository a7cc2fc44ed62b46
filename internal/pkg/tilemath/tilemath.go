// Package tilemath converts between WGS84 coordinates and slippy-map tile indices.
package tilemath

import (
	"iter"
	"math"

	"github.com/geopin-service/internal/domain"
)

const (
	TileSize = 256

	// MaxLatitude - предел проекции Web Mercator
	MaxLatitude = 85.05112878
)

func tilesAt(z int) int {
	return 1 << uint(z)
}

func clampIndex(v, z int) int {
	return max(0, min(v, tilesAt(z)-1))
}

func clampLat(lat float64) float64 {
	return max(-MaxLatitude, min(lat, MaxLatitude))
}

// LonToTileX возвращает X тайла, содержащего долготу (floor, не округление)
func LonToTileX(lon float64, z int) int {
	n := float64(tilesAt(z))
	x := int(math.Floor((lon + 180.0) / 360.0 * n))
	return clampIndex(x, z)
}

// LatToTileY возвращает Y тайла, содержащего широту. Y растёт к югу.
func LatToTileY(lat float64, z int) int {
	latRad := clampLat(lat) * math.Pi / 180
	n := float64(tilesAt(z))
	y := int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2.0 * n))
	return clampIndex(y, z)
}

// PointToTile converts a point to the tile containing it.
func PointToTile(p domain.GeoPoint, z int) domain.TileIndex {
	return domain.TileIndex{Z: z, X: LonToTileX(p.Lng, z), Y: LatToTileY(p.Lat, z)}
}

// TileToLatLng returns the north-west corner of the tile.
func TileToLatLng(tile domain.TileIndex) domain.GeoPoint {
	n := float64(tilesAt(tile.Z))
	lng := float64(tile.X)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(tile.Y)/n)))
	return domain.GeoPoint{Lat: latRad * 180.0 / math.Pi, Lng: lng}
}

// TileRangeForBounds возвращает диапазон тайлов, покрывающий bounds на зуме z.
// Углы могут быть переданы в любом порядке: диапазон всегда нормализован (min <= max).
func TileRangeForBounds(b domain.Bounds, z int) domain.TileRange {
	x1, x2 := LonToTileX(b.West, z), LonToTileX(b.East, z)
	y1, y2 := LatToTileY(b.North, z), LatToTileY(b.South, z)

	return domain.TileRange{
		Z:    z,
		XMin: min(x1, x2),
		XMax: max(x1, x2),
		YMin: min(y1, y2),
		YMax: max(y1, y2),
	}
}

// TileCount returns (xMax-xMin+1) * (yMax-yMin+1).
func TileCount(r domain.TileRange) int {
	return r.Count()
}

// RangesForBand computes one range per zoom level in [minZoom, maxZoom].
func RangesForBand(b domain.Bounds, minZoom, maxZoom int) []domain.TileRange {
	if minZoom > maxZoom {
		minZoom, maxZoom = maxZoom, minZoom
	}
	ranges := make([]domain.TileRange, 0, maxZoom-minZoom+1)
	for z := minZoom; z <= maxZoom; z++ {
		ranges = append(ranges, TileRangeForBounds(b, z))
	}
	return ranges
}

// TotalTiles sums TileCount over all ranges.
func TotalTiles(ranges []domain.TileRange) int {
	total := 0
	for _, r := range ranges {
		total += r.Count()
	}
	return total
}

// Batches walks the ranges lazily and yields chunks of at most size tiles.
// Each chunk is a fresh slice, so only one batch is held in memory at a time.
func Batches(ranges []domain.TileRange, size int) iter.Seq[[]domain.TileIndex] {
	size = max(size, 1)
	return func(yield func([]domain.TileIndex) bool) {
		batch := make([]domain.TileIndex, 0, size)
		for _, r := range ranges {
			for x := r.XMin; x <= r.XMax; x++ {
				for y := r.YMin; y <= r.YMax; y++ {
					batch = append(batch, domain.TileIndex{Z: r.Z, X: x, Y: y})
					if len(batch) < size {
						continue
					}
					if !yield(batch) {
						return
					}
					batch = make([]domain.TileIndex, 0, size)
				}
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

// WorldCoordinates converts a point to world pixel coordinates at the given zoom.
func WorldCoordinates(p domain.GeoPoint, zoom float64) (float64, float64) {
	n := math.Pow(2, zoom)
	latRad := clampLat(p.Lat) * math.Pi / 180.0
	worldX := float64(TileSize) * n * (p.Lng + 180) / 360
	worldY := float64(TileSize) * n * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2
	return worldX, worldY
}

// WorldToLatLng converts world pixel coordinates back to a point.
func WorldToLatLng(worldX, worldY, zoom float64) domain.GeoPoint {
	n := math.Pow(2, zoom)
	lng := (worldX/(float64(TileSize)*n))*360 - 180
	latRad := math.Pi * (1 - 2*worldY/(float64(TileSize)*n))
	lat := 180 / math.Pi * math.Atan(math.Sinh(latRad))
	return domain.GeoPoint{Lat: lat, Lng: lng}
}

// BoundsAround возвращает видимую область окна width x height пикселей с центром center
func BoundsAround(center domain.GeoPoint, zoom, width, height int) domain.Bounds {
	cx, cy := WorldCoordinates(center, float64(zoom))
	halfW, halfH := float64(width)/2, float64(height)/2

	nw := WorldToLatLng(cx-halfW, cy-halfH, float64(zoom))
	se := WorldToLatLng(cx+halfW, cy+halfH, float64(zoom))

	return domain.Bounds{
		South: clampLat(se.Lat),
		West:  max(-180, nw.Lng),
		North: clampLat(nw.Lat),
		East:  min(180, se.Lng),
	}
}
