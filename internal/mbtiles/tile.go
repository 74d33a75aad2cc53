package mbtiles

import (
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// Tile 瓦片记录, T.Y is a TMS row
type Tile struct {
	T    maptile.Tile
	Data []byte
}

func (t Tile) String() string {
	return fmt.Sprintf("tile(z:%d, x:%d, y:%d), %d bytes", t.T.Z, t.T.X, t.T.Y, len(t.Data))
}

// Constants representing TileFormat types
const (
	PNG  = "png"
	JPG  = "jpg"
	PBF  = "pbf"
	WEBP = "webp"
)

// ValidFormat reports whether format is a tile format an mbtiles reader
// understands.
func ValidFormat(format string) bool {
	switch format {
	case PNG, JPG, PBF, WEBP:
		return true
	}
	return false
}
