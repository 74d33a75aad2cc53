package pyramid

import (
	"context"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/alecthomas/assert/v2"
	"github.com/sirupsen/logrus"

	"smbtiler/internal/mbtiles"
)

// memTree serves a pyramid from memory and records every call.
type memTree struct {
	fsys     fstest.MapFS
	failRead map[string]error
	failList map[string]error

	mu    sync.Mutex
	lists []string
	reads []string
}

func newMemTree(fsys fstest.MapFS) *memTree {
	return &memTree{fsys: fsys, failRead: map[string]error{}, failList: map[string]error{}}
}

func fsPath(name string) string {
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return name
}

func (m *memTree) ReadDir(_ context.Context, dir string) ([]fs.DirEntry, error) {
	m.mu.Lock()
	m.lists = append(m.lists, dir)
	m.mu.Unlock()
	if err, ok := m.failList[dir]; ok {
		return nil, err
	}
	return fs.ReadDir(m.fsys, fsPath(dir))
}

func (m *memTree) ReadFile(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	m.reads = append(m.reads, name)
	m.mu.Unlock()
	if err, ok := m.failRead[name]; ok {
		return nil, err
	}
	return fs.ReadFile(m.fsys, fsPath(name))
}

func (m *memTree) readsUnder(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reads {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func dir() *fstest.MapFile {
	return &fstest.MapFile{Mode: fs.ModeDir | 0o755}
}

func file(data ...byte) *fstest.MapFile {
	return &fstest.MapFile{Data: data}
}

// memArchive collects batches in memory.
type memArchive struct {
	reopened  bool
	prior     map[[2]uint32]int
	insertErr error
	batches   [][]mbtiles.Tile
}

func (a *memArchive) Reopened() bool { return a.reopened }

func (a *memArchive) PriorTileCount(_ context.Context, z, x uint32) (int, error) {
	return a.prior[[2]uint32{z, x}], nil
}

func (a *memArchive) InsertTiles(_ context.Context, tiles []mbtiles.Tile) error {
	if a.insertErr != nil {
		return a.insertErr
	}
	a.batches = append(a.batches, tiles)
	return nil
}

func (a *memArchive) tiles() []mbtiles.Tile {
	var all []mbtiles.Tile
	for _, b := range a.batches {
		all = append(all, b...)
	}
	return all
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestDumper(t *testing.T, tree Tree, base string, options ...Option) *Dumper {
	t.Helper()
	options = append([]Option{WithLogger(testLogger())}, options...)
	d, err := NewDumper(tree, base, options...)
	assert.NoError(t, err)
	return d
}

// singleTile is the share with one tile at /tiles/5/10/12.png.
func singleTile() fstest.MapFS {
	return fstest.MapFS{
		"tiles/5/10/12.png": file(1, 2, 3, 4),
	}
}
