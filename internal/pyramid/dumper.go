// Package pyramid walks an XYZ tile pyramid on a share, level by level,
// column by column and row by row, and hands each column's tiles to an
// archive using TMS row numbering.
package pyramid

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb/maptile"
	"github.com/sirupsen/logrus"

	"smbtiler/internal/mbtiles"
	"smbtiler/internal/tilemath"
)

// Archive is where Dump stores tiles.
type Archive interface {
	// Reopened reports whether the archive already existed, in which case
	// columns holding tiles are skipped.
	Reopened() bool
	PriorTileCount(ctx context.Context, z, x uint32) (int, error)
	InsertTiles(ctx context.Context, tiles []mbtiles.Tile) error
}

// ZoomOrder selects how discovered zoom levels are sorted.
type ZoomOrder int

const (
	// NumericOrder sorts by level: 2 before 10.
	NumericOrder ZoomOrder = iota
	// LexicalOrder sorts by directory name: "10" before "2".
	LexicalOrder
)

// ParseZoomOrder parses "numeric" or "lexical".
func ParseZoomOrder(s string) (ZoomOrder, error) {
	switch strings.ToLower(s) {
	case "", "numeric":
		return NumericOrder, nil
	case "lexical":
		return LexicalOrder, nil
	}
	return NumericOrder, fmt.Errorf("unknown zoom order %q", s)
}

// Stats summarizes a Dump.
type Stats struct {
	Levels         int
	Columns        int
	SkippedColumns int
	Tiles          int
	FailedReads    int
	DuplicateRows  int
	Bytes          int64
}

// Dumper 导出任务
type Dumper struct {
	tree      Tree
	base      string
	walker    *Walker
	zooms     []Zoom
	order     ZoomOrder
	cacheSize int
	progress  ProgressFunc
	log       logrus.FieldLogger
}

// An Option configures a Dumper.
type Option func(*Dumper)

// WithZoomOrder sets the order zoom levels are dumped in.
func WithZoomOrder(order ZoomOrder) Option {
	return func(d *Dumper) {
		d.order = order
	}
}

// WithProgress sets the function receiving progress events.
func WithProgress(progress ProgressFunc) Option {
	return func(d *Dumper) {
		d.progress = progress
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Dumper) {
		d.log = log
	}
}

// WithListingCache keeps up to size directory listings in memory so the
// bounds walk and the dump share them. Zero disables the cache.
func WithListingCache(size int) Option {
	return func(d *Dumper) {
		d.cacheSize = size
	}
}

// NewDumper returns a Dumper for the pyramid rooted at base on tree.
func NewDumper(tree Tree, base string, options ...Option) (*Dumper, error) {
	d := &Dumper{
		tree:      tree,
		base:      base,
		cacheSize: 1024,
		progress:  func(Event) {},
		log:       logrus.StandardLogger(),
	}
	for _, option := range options {
		option(d)
	}
	walker, err := NewWalker(tree, d.cacheSize, d.log)
	if err != nil {
		return nil, err
	}
	d.walker = walker
	return d, nil
}

// Prepare discovers the zoom levels under base. Levels outside the
// supported range fail the whole run.
func (d *Dumper) Prepare(ctx context.Context) error {
	zooms, err := d.walker.Zooms(ctx, d.base)
	if err != nil {
		return err
	}
	for _, zoom := range zooms {
		if err := tilemath.CheckZoom(zoom.Level); err != nil {
			return fmt.Errorf("zoom directory %s: %w", zoom.Name, err)
		}
	}
	switch d.order {
	case LexicalOrder:
		sort.SliceStable(zooms, func(i, j int) bool { return zooms[i].Name < zooms[j].Name })
	default:
		sort.SliceStable(zooms, func(i, j int) bool { return zooms[i].Level < zooms[j].Level })
	}
	if zooms == nil {
		zooms = []Zoom{}
	}
	d.zooms = zooms
	d.log.Infof("found %d zoom levels under %s", len(zooms), d.base)
	return nil
}

// Zooms returns the discovered zoom levels in dump order.
func (d *Dumper) Zooms() []Zoom {
	return append([]Zoom(nil), d.zooms...)
}

// MinZoom returns the first zoom level in dump order.
func (d *Dumper) MinZoom() (Zoom, error) {
	if d.zooms == nil {
		return Zoom{}, ErrNotPrepared
	}
	if len(d.zooms) == 0 {
		return Zoom{}, fmt.Errorf("no zoom levels under %s", d.base)
	}
	return d.zooms[0], nil
}

// MaxZoom returns the last zoom level in dump order.
func (d *Dumper) MaxZoom() (Zoom, error) {
	if d.zooms == nil {
		return Zoom{}, ErrNotPrepared
	}
	if len(d.zooms) == 0 {
		return Zoom{}, fmt.Errorf("no zoom levels under %s", d.base)
	}
	return d.zooms[len(d.zooms)-1], nil
}

func (d *Dumper) lookup(name string) (Zoom, error) {
	if d.zooms == nil {
		return Zoom{}, ErrNotPrepared
	}
	for _, zoom := range d.zooms {
		if zoom.Name == name {
			return zoom, nil
		}
	}
	return Zoom{}, &InvalidZoomError{Zoom: name}
}

// Dump copies every discovered level into archive. A column is stored with
// one InsertTiles call once all its rows were read; a tile that cannot be
// read is logged and left out, as is a second file for a row already read. Listing, storage and context errors stop
// the dump.
func (d *Dumper) Dump(ctx context.Context, archive Archive) (Stats, error) {
	var stats Stats
	if d.zooms == nil {
		return stats, ErrNotPrepared
	}
	for _, zoom := range d.zooms {
		if err := d.dumpLevel(ctx, archive, zoom, &stats); err != nil {
			return stats, err
		}
		stats.Levels++
	}
	return stats, nil
}

func (d *Dumper) dumpLevel(ctx context.Context, archive Archive, zoom Zoom, stats *Stats) error {
	start := time.Now()
	d.progress(Event{Kind: LevelStart, Level: zoom.Level})
	columns, err := d.walker.Columns(ctx, d.base, zoom)
	if err != nil {
		return err
	}

	for _, column := range columns {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.dumpColumn(ctx, archive, zoom, column, len(columns), stats); err != nil {
			return err
		}
	}

	d.progress(Event{Kind: LevelEnd, Level: zoom.Level, Cost: time.Since(start)})
	return nil
}

func (d *Dumper) dumpColumn(ctx context.Context, archive Archive, zoom Zoom, column Column, total int, stats *Stats) error {
	start := time.Now()
	d.progress(Event{Kind: ColumnStart, Level: zoom.Level, Column: column.X, Columns: total})
	stats.Columns++

	if archive.Reopened() {
		count, err := archive.PriorTileCount(ctx, uint32(zoom.Level), column.X)
		if err != nil {
			return err
		}
		if count > 0 {
			d.log.Debugf("zoom %s column %s already holds %d tiles, skip", zoom.Name, column.Name, count)
			stats.SkippedColumns++
			columnsSkipped.Inc()
			d.progress(Event{Kind: ColumnEnd, Level: zoom.Level, Column: column.X, Skipped: true, Cost: time.Since(start)})
			return nil
		}
	}

	rows, err := d.walker.Rows(ctx, d.base, zoom, column)
	if err != nil {
		return err
	}
	tiles := make([]mbtiles.Tile, 0, len(rows))
	seen := make(map[uint32]string, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		// 同一行多种格式只取第一个
		if first, ok := seen[row.Y]; ok {
			d.log.Warnf("zoom %s column %s: %s duplicates row %s, skip", zoom.Name, column.Name, row.Name, first)
			stats.DuplicateRows++
			continue
		}
		seen[row.Y] = row.Name
		rowStart := time.Now()
		y := tilemath.FlipRow(row.Y, zoom.Level)
		d.progress(Event{Kind: RowStart, Level: zoom.Level, Column: column.X, Row: y})

		file := RowPath(d.base, zoom, column, row)
		data, err := d.tree.ReadFile(ctx, file)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			d.log.Warnf("error readFile %s: %s", file, err)
			stats.FailedReads++
			tileReadErrors.Inc()
		default:
			tiles = append(tiles, mbtiles.Tile{
				T:    maptile.Tile{X: column.X, Y: y, Z: zoom.Level},
				Data: data,
			})
			stats.Tiles++
			stats.Bytes += int64(len(data))
			tilesRead.Inc()
			tileBytes.Add(float64(len(data)))
		}

		d.progress(Event{Kind: RowEnd, Level: zoom.Level, Column: column.X, Row: y, Cost: time.Since(rowStart)})
	}

	if err := archive.InsertTiles(ctx, tiles); err != nil {
		return fmt.Errorf("store zoom %s column %s: %w", zoom.Name, column.Name, err)
	}
	columnsStored.Inc()

	d.progress(Event{Kind: ColumnEnd, Level: zoom.Level, Column: column.X, Cost: time.Since(start)})
	return nil
}
