// Package tilemath converts between slippy map tile indices and WGS84
// longitude/latitude using the Web Mercator tile scheme.
package tilemath

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest level whose tile indices still fit a uint32.
const MaxZoom maptile.Zoom = 30

// ErrUnsupportedZoom is returned for zoom 0 and levels beyond MaxZoom.
var ErrUnsupportedZoom = errors.New("unsupported zoom level")

// CheckZoom reports whether tiles at zoom can be addressed by this package.
func CheckZoom(zoom maptile.Zoom) error {
	if zoom < 1 || zoom > MaxZoom {
		return fmt.Errorf("%w: %d", ErrUnsupportedZoom, zoom)
	}
	return nil
}

// Span returns the number of tiles along one axis, 2^zoom.
func Span(zoom maptile.Zoom) uint32 {
	return uint32(2) << (zoom - 1)
}

// ColumnToLongitude returns the longitude of the west edge of column.
func ColumnToLongitude(column uint32, zoom maptile.Zoom) float64 {
	return float64(column)/float64(Span(zoom))*360 - 180
}

// RowToLatitude returns the latitude of the north edge of row.
func RowToLatitude(row uint32, zoom maptile.Zoom) float64 {
	n := math.Pi - 2*math.Pi*float64(row)/float64(Span(zoom))
	return 180 / math.Pi * math.Atan(0.5*(math.Exp(n)-math.Exp(-n)))
}

// LongitudeToColumn returns the column containing lon.
func LongitudeToColumn(lon float64, zoom maptile.Zoom) int {
	return int(math.Floor((lon + 180) / 360 * math.Exp2(float64(zoom))))
}

// LatitudeToRow returns the row containing lat.
func LatitudeToRow(lat float64, zoom maptile.Zoom) int {
	r := rad(lat)
	return int(math.Floor((1 - math.Log(math.Tan(r)+sec(r))/math.Pi) / 2 * math.Exp2(float64(zoom))))
}

// FlipRow converts a row between the XYZ and TMS conventions. It is its own
// inverse.
func FlipRow(row uint32, zoom maptile.Zoom) uint32 {
	return Span(zoom) - 1 - row
}

// TileBound returns the geographic extent of an XYZ tile.
func TileBound(t maptile.Tile) orb.Bound {
	return orb.Bound{
		Min: orb.Point{ColumnToLongitude(t.X, t.Z), RowToLatitude(t.Y+1, t.Z)},
		Max: orb.Point{ColumnToLongitude(t.X+1, t.Z), RowToLatitude(t.Y, t.Z)},
	}
}

func rad(d float64) float64 { return d * math.Pi / 180.0 }
func sec(r float64) float64 { return 1.0 / math.Cos(r) }
