// Package mbtiles writes tiles into an mbtiles container: a SQLite database
// with a metadata table of name/value pairs and a tiles table addressed by
// zoom level, column and TMS row.
package mbtiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrTileNotFound is returned by ReadTile when no row matches.
var ErrTileNotFound = errors.New("tile not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS metadata (name text, value text);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS name ON metadata (name);`,
	`CREATE TABLE IF NOT EXISTS tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tile_index ON tiles (zoom_level, tile_column, tile_row);`,
}

// Archive is an open mbtiles file. All writes go through a single
// connection and are serialized, so InsertTiles may be called from several
// goroutines.
type Archive struct {
	db       *sql.DB
	reopened bool
	mu       sync.Mutex
	log      logrus.FieldLogger
}

// An Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used by the archive.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Archive) {
		a.log = log
	}
}

// Exists reports whether an archive file is already present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Open opens or creates the archive at path. The schema is created when
// missing; metadata rows are only written when the file did not exist.
func Open(path string, meta Metadata, options ...Option) (*Archive, error) {
	a := &Archive{
		reopened: Exists(path),
		log:      logrus.StandardLogger(),
	}
	for _, option := range options {
		option(a)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open mbtiles %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	a.db = db

	if err := a.initTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if !a.reopened {
		if err := a.createMetadata(meta); err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		a.log.Infof("reopen %s, columns already stored will be skipped", path)
	}
	return a, nil
}

func (a *Archive) initTables() error {
	for _, stmt := range schema {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := a.db.Exec(`PRAGMA synchronous=OFF`); err != nil {
		return fmt.Errorf("set synchronous: %w", err)
	}
	return nil
}

func (a *Archive) createMetadata(meta Metadata) error {
	a.log.Info("insert metadata ...")
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	for _, row := range meta.rows() {
		if _, err := tx.Exec(`INSERT INTO metadata VALUES (?, ?)`, row[0], row[1]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert metadata %s: %w", row[0], err)
		}
	}
	return tx.Commit()
}

// Reopened reports whether the file existed before Open.
func (a *Archive) Reopened() bool { return a.reopened }

// PriorTileCount returns the number of tiles already stored for one column.
func (a *Archive) PriorTileCount(ctx context.Context, z, x uint32) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx,
		`SELECT count(1) FROM tiles WHERE zoom_level = ? AND tile_column = ?`, z, x).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tiles z:%d x:%d: %w", z, x, err)
	}
	return count, nil
}

// InsertTiles stores a batch in one transaction. An empty batch is a no-op.
// Inserting a tile that already exists fails the whole batch.
func (a *Archive) InsertTiles(ctx context.Context, tiles []Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tiles VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, t := range tiles {
		if _, err := stmt.ExecContext(ctx, uint32(t.T.Z), t.T.X, t.T.Y, t.Data); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s: %w", t, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	a.log.Debugf("stored %d tiles", len(tiles))
	return nil
}

// Metadata returns every row of the metadata table.
func (a *Archive) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT name, value FROM metadata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		m[name] = value.String
	}
	return m, rows.Err()
}

// TileCount returns the total number of stored tiles.
func (a *Archive) TileCount(ctx context.Context) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `SELECT count(1) FROM tiles`).Scan(&count)
	return count, err
}

// ReadTile returns the data of the tile at z/x/y, y being a TMS row.
func (a *Archive) ReadTile(ctx context.Context, z, x, y uint32) ([]byte, error) {
	var data []byte
	err := a.db.QueryRowContext(ctx,
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		z, x, y).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: z:%d x:%d y:%d", ErrTileNotFound, z, x, y)
	}
	return data, err
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
