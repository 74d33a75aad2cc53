package tilemath

import (
	"errors"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb/maptile"
)

const epsilon = 1e-9

func assertNear(t *testing.T, expected, actual float64) {
	t.Helper()
	assert.True(t, math.Abs(expected-actual) < epsilon, "expected %v, got %v", expected, actual)
}

func TestColumnToLongitude(t *testing.T) {
	for _, tc := range []struct {
		column   uint32
		zoom     maptile.Zoom
		expected float64
	}{
		{column: 0, zoom: 1, expected: -180},
		{column: 1, zoom: 1, expected: 0},
		{column: 2, zoom: 1, expected: 180},
		{column: 10, zoom: 5, expected: -67.5},
		{column: 1 << 20, zoom: 21, expected: 0},
	} {
		assertNear(t, tc.expected, ColumnToLongitude(tc.column, tc.zoom))
	}
}

func TestRowToLatitude(t *testing.T) {
	const maxLat = 85.0511287798066
	assertNear(t, maxLat, RowToLatitude(0, 1))
	assertNear(t, 0, RowToLatitude(1, 1))
	assertNear(t, -maxLat, RowToLatitude(2, 1))
	assertNear(t, 0, RowToLatitude(16, 5))
}

func TestLongitudeLatitudeToTile(t *testing.T) {
	assert.Equal(t, 10, LongitudeToColumn(-66, 5))
	assert.Equal(t, 0, LongitudeToColumn(-179.9, 3))
	assert.Equal(t, 7, LongitudeToColumn(179.9, 3))
	assert.Equal(t, 0, LatitudeToRow(85, 1))
	assert.Equal(t, 1, LatitudeToRow(-1, 1))
	assert.Equal(t, 12, LatitudeToRow(RowToLatitude(12, 5)-0.01, 5))
}

func TestRoundTrip(t *testing.T) {
	within := func(expected uint32, actual int) bool {
		d := int64(actual) - int64(expected)
		return d >= -1 && d <= 1
	}
	for _, zoom := range []maptile.Zoom{1, 2, 5, 12, 18, 24} {
		span := Span(zoom)
		step := span / 64
		if step == 0 {
			step = 1
		}
		for i := uint32(0); i < span; i += step {
			column := LongitudeToColumn(ColumnToLongitude(i, zoom), zoom)
			assert.True(t, within(i, column), "zoom %d column %d -> %d", zoom, i, column)
			row := LatitudeToRow(RowToLatitude(i, zoom), zoom)
			assert.True(t, within(i, row), "zoom %d row %d -> %d", zoom, i, row)
		}
	}
}

func TestFlipRow(t *testing.T) {
	assert.Equal(t, uint32(19), FlipRow(12, 5))
	assert.Equal(t, uint32(0), FlipRow(1, 1))
	for _, zoom := range []maptile.Zoom{1, 4, 9, 17, 30} {
		span := Span(zoom)
		for _, row := range []uint32{0, span / 3, span / 2, span - 1} {
			assert.Equal(t, row, FlipRow(FlipRow(row, zoom), zoom))
		}
	}
}

func TestSpan(t *testing.T) {
	assert.Equal(t, uint32(2), Span(1))
	assert.Equal(t, uint32(32), Span(5))
	assert.Equal(t, uint32(1<<30), Span(MaxZoom))
}

func TestCheckZoom(t *testing.T) {
	assert.NoError(t, CheckZoom(1))
	assert.NoError(t, CheckZoom(MaxZoom))
	for _, zoom := range []maptile.Zoom{0, MaxZoom + 1, 99} {
		err := CheckZoom(zoom)
		assert.True(t, errors.Is(err, ErrUnsupportedZoom), "zoom %d", zoom)
	}
}

func TestTileBound(t *testing.T) {
	b := TileBound(maptile.Tile{X: 10, Y: 12, Z: 5})
	assertNear(t, ColumnToLongitude(10, 5), b.Min[0])
	assertNear(t, ColumnToLongitude(11, 5), b.Max[0])
	assertNear(t, RowToLatitude(13, 5), b.Min[1])
	assertNear(t, RowToLatitude(12, 5), b.Max[1])
	assert.True(t, b.Min[1] < b.Max[1])
	assert.True(t, b.Min[0] < b.Max[0])
}
