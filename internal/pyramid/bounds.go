package pyramid

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"smbtiler/internal/tilemath"
)

// EmptyBound is the inverted box bounds start from. A box with west > east
// holds no tile.
var EmptyBound = orb.Bound{Min: orb.Point{180, 85}, Max: orb.Point{-180, -85}}

// IsEmpty reports whether no tile widened b.
func IsEmpty(b orb.Bound) bool {
	return b.Min[0] > b.Max[0]
}

// Widen returns b grown to cover the XYZ tile t. b is not modified.
func Widen(b orb.Bound, t maptile.Tile) orb.Bound {
	return b.Union(tilemath.TileBound(t))
}

// CalculateBounds walks every tile of one discovered zoom level and returns
// the box covering them, EmptyBound when the level has no tiles.
func (d *Dumper) CalculateBounds(ctx context.Context, name string) (orb.Bound, error) {
	zoom, err := d.lookup(name)
	if err != nil {
		return EmptyBound, err
	}

	bound := EmptyBound
	columns, err := d.walker.Columns(ctx, d.base, zoom)
	if err != nil {
		return EmptyBound, err
	}
	for _, column := range columns {
		rows, err := d.walker.Rows(ctx, d.base, zoom, column)
		if err != nil {
			return EmptyBound, err
		}
		for _, row := range rows {
			bound = Widen(bound, maptile.Tile{X: column.X, Y: row.Y, Z: zoom.Level})
		}
	}
	d.log.Debugf("zoom %s bounds %v", zoom.Name, bound)
	return bound, nil
}
