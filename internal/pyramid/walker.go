package pyramid

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb/maptile"
	"github.com/sirupsen/logrus"

	"smbtiler/internal/tilemath"
)

// A Tree is a connected share holding the pyramid.
type Tree interface {
	ReadDir(ctx context.Context, dir string) ([]fs.DirEntry, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

var pattern = struct {
	z, x, y *regexp.Regexp
}{
	z: regexp.MustCompile(`^(\d{1,2})$`),
	x: regexp.MustCompile(`^(\d+)$`),
	y: regexp.MustCompile(`^(\d+)(\.\w+)?$`),
}

// Zoom is a zoom level directory.
type Zoom struct {
	Name  string
	Level maptile.Zoom
}

// Column is a column directory inside a zoom level.
type Column struct {
	Name string
	X    uint32
}

// Row is a tile file inside a column. Name is the file name as listed,
// extension included.
type Row struct {
	Name string
	Y    uint32
}

// Walker lists and classifies pyramid directories.
type Walker struct {
	tree  Tree
	cache *lru.Cache[string, []fs.DirEntry]
	log   logrus.FieldLogger
}

// NewWalker returns a Walker over tree. When cacheSize is positive the last
// cacheSize listings are kept in memory.
func NewWalker(tree Tree, cacheSize int, log logrus.FieldLogger) (*Walker, error) {
	w := &Walker{tree: tree, log: log}
	if cacheSize > 0 {
		cache, err := lru.New[string, []fs.DirEntry](cacheSize)
		if err != nil {
			return nil, err
		}
		w.cache = cache
	}
	return w, nil
}

func (w *Walker) list(ctx context.Context, dir string) ([]fs.DirEntry, error) {
	if w.cache != nil {
		if entries, ok := w.cache.Get(dir); ok {
			return entries, nil
		}
	}
	entries, err := w.tree.ReadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	if w.cache != nil {
		w.cache.Add(dir, entries)
	}
	return entries, nil
}

// Zooms returns the zoom directories under base in listing order.
func (w *Walker) Zooms(ctx context.Context, base string) ([]Zoom, error) {
	entries, err := w.list(ctx, base)
	if err != nil {
		return nil, err
	}
	var zooms []Zoom
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		match := pattern.z.FindStringSubmatch(entry.Name())
		if match == nil {
			w.log.Debugf("skip %s: not a zoom directory", path.Join(base, entry.Name()))
			continue
		}
		level, _ := strconv.ParseUint(match[1], 10, 32)
		zooms = append(zooms, Zoom{Name: match[1], Level: maptile.Zoom(level)})
	}
	return zooms, nil
}

// Columns returns the column directories of zoom.
func (w *Walker) Columns(ctx context.Context, base string, zoom Zoom) ([]Column, error) {
	dir := path.Join(base, zoom.Name)
	entries, err := w.list(ctx, dir)
	if err != nil {
		return nil, err
	}
	span := uint64(tilemath.Span(zoom.Level))
	var columns []Column
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		match := pattern.x.FindStringSubmatch(entry.Name())
		if match == nil {
			w.log.Debugf("skip %s: not a column directory", path.Join(dir, entry.Name()))
			continue
		}
		x, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil || x >= span {
			w.log.Debugf("skip %s: column out of range", path.Join(dir, entry.Name()))
			continue
		}
		columns = append(columns, Column{Name: match[1], X: uint32(x)})
	}
	return columns, nil
}

// Rows returns the tile files of one column.
func (w *Walker) Rows(ctx context.Context, base string, zoom Zoom, column Column) ([]Row, error) {
	dir := path.Join(base, zoom.Name, column.Name)
	entries, err := w.list(ctx, dir)
	if err != nil {
		return nil, err
	}
	span := uint64(tilemath.Span(zoom.Level))
	var rows []Row
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.y.FindStringSubmatch(entry.Name())
		if match == nil {
			w.log.Debugf("skip %s: not a tile file", path.Join(dir, entry.Name()))
			continue
		}
		y, err := strconv.ParseUint(match[1], 10, 32)
		if err != nil || y >= span {
			w.log.Debugf("skip %s: row out of range", path.Join(dir, entry.Name()))
			continue
		}
		rows = append(rows, Row{Name: entry.Name(), Y: uint32(y)})
	}
	return rows, nil
}

// RowPath returns the share path of a tile file.
func RowPath(base string, zoom Zoom, column Column, row Row) string {
	return path.Join(base, zoom.Name, column.Name, row.Name)
}
