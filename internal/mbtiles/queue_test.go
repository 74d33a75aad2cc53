package mbtiles

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/paulmach/orb/maptile"
)

func TestQueueWritesEveryBatch(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t, filepath.Join(t.TempDir(), "output.mbtiles"))
	q := NewQueue(a, 2)
	assert.False(t, q.Reopened())

	var wg sync.WaitGroup
	for x := uint32(0); x < 8; x++ {
		wg.Add(1)
		go func(x uint32) {
			defer wg.Done()
			batch := []Tile{
				{T: maptile.Tile{X: x, Y: 0, Z: 3}, Data: []byte{byte(x)}},
				{T: maptile.Tile{X: x, Y: 1, Z: 3}, Data: []byte{byte(x)}},
			}
			assert.NoError(t, q.InsertTiles(ctx, batch))
		}(x)
	}
	wg.Wait()
	assert.NoError(t, q.InsertTiles(ctx, nil))
	assert.NoError(t, q.Close())

	total, err := a.TileCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 16, total)

	count, err := q.PriorTileCount(ctx, 3, 7)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQueueReportsInsertError(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t, filepath.Join(t.TempDir(), "output.mbtiles"))
	q := NewQueue(a, 0)

	tile := Tile{T: maptile.Tile{X: 1, Y: 1, Z: 1}, Data: []byte{1}}
	assert.NoError(t, q.InsertTiles(ctx, []Tile{tile}))
	assert.NoError(t, q.InsertTiles(ctx, []Tile{tile}))
	assert.Error(t, q.Close())
	assert.Error(t, q.Close())
}

func TestQueueClosed(t *testing.T) {
	ctx := context.Background()
	a := openTestArchive(t, filepath.Join(t.TempDir(), "output.mbtiles"))
	q := NewQueue(a, 1)
	assert.NoError(t, q.Close())

	err := q.InsertTiles(ctx, []Tile{{T: maptile.Tile{X: 0, Y: 0, Z: 1}}})
	assert.True(t, errors.Is(err, ErrQueueClosed))
}
