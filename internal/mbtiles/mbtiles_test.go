package mbtiles

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

func testMetadata() Metadata {
	return Metadata{
		Description: "test",
		MinZoom:     "3",
		MaxZoom:     "5",
		Bounds:      orb.Bound{Min: orb.Point{-67.5, 40.9798980696201}, Max: orb.Point{-56.25, 48.92249926375825}},
	}
}

func openTestArchive(t *testing.T, path string) *Archive {
	t.Helper()
	a, err := Open(path, testMetadata())
	assert.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.Close())
	})
	return a
}

func TestOpenCreatesMetadata(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "output.mbtiles")
	assert.False(t, Exists(path))

	a := openTestArchive(t, path)
	assert.False(t, a.Reopened())
	assert.True(t, Exists(path))

	meta, err := a.Metadata(ctx)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{
		"bounds":      "-67.5,40.9798980696201,-56.25,48.92249926375825",
		"maxzoom":     "5",
		"minzoom":     "3",
		"name":        "xyz-to-mbtiles",
		"type":        "overlay",
		"version":     "1",
		"description": "test",
		"format":      "png",
	}, meta)
}

func TestReopenKeepsMetadata(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "output.mbtiles")

	a, err := Open(path, testMetadata())
	assert.NoError(t, err)
	assert.NoError(t, a.InsertTiles(ctx, []Tile{{T: maptile.Tile{X: 10, Y: 19, Z: 5}, Data: []byte{1, 2, 3, 4}}}))
	assert.NoError(t, a.Close())

	other := testMetadata()
	other.Description = "changed"
	other.MaxZoom = "9"
	b, err := Open(path, other)
	assert.NoError(t, err)
	defer b.Close()
	assert.True(t, b.Reopened())

	meta, err := b.Metadata(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "test", meta["description"])
	assert.Equal(t, "5", meta["maxzoom"])

	count, err := b.PriorTileCount(ctx, 5, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertTiles(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t, filepath.Join(t.TempDir(), "output.mbtiles"))

	assert.NoError(t, a.InsertTiles(ctx, nil))
	assert.NoError(t, a.InsertTiles(ctx, []Tile{
		{T: maptile.Tile{X: 10, Y: 19, Z: 5}, Data: []byte{1, 2, 3, 4}},
		{T: maptile.Tile{X: 10, Y: 20, Z: 5}, Data: []byte{5}},
		{T: maptile.Tile{X: 11, Y: 20, Z: 5}, Data: []byte{6}},
	}))

	total, err := a.TileCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, total)

	for _, tc := range []struct {
		z, x     uint32
		expected int
	}{
		{z: 5, x: 10, expected: 2},
		{z: 5, x: 11, expected: 1},
		{z: 5, x: 12, expected: 0},
		{z: 4, x: 10, expected: 0},
	} {
		count, err := a.PriorTileCount(ctx, tc.z, tc.x)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, count)
	}

	data, err := a.ReadTile(ctx, 5, 10, 19)
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = a.ReadTile(ctx, 5, 10, 12)
	assert.True(t, errors.Is(err, ErrTileNotFound))
}

func TestInsertDuplicateFails(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t, filepath.Join(t.TempDir(), "output.mbtiles"))

	tile := Tile{T: maptile.Tile{X: 1, Y: 1, Z: 1}, Data: []byte{1}}
	assert.NoError(t, a.InsertTiles(ctx, []Tile{tile}))
	assert.Error(t, a.InsertTiles(ctx, []Tile{tile}))

	total, err := a.TileCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestFormatBounds(t *testing.T) {
	assert.Equal(t, "180,85,-180,-85", FormatBounds(orb.Bound{Min: orb.Point{180, 85}, Max: orb.Point{-180, -85}}))
	assert.Equal(t, "-0.5,1.25,2,3", FormatBounds(orb.Bound{Min: orb.Point{-0.5, 1.25}, Max: orb.Point{2, 3}}))
}

func TestValidFormat(t *testing.T) {
	for _, format := range []string{PNG, JPG, PBF, WEBP} {
		assert.True(t, ValidFormat(format), format)
	}
	assert.False(t, ValidFormat("gif"))
	assert.False(t, ValidFormat(""))
}
