package mbtiles

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Queue.InsertTiles after Close.
var ErrQueueClosed = errors.New("insert queue is closed")

// Queue hands batches to a single writer goroutine so the caller does not
// wait for each insert. Batches are written in submission order. Close must
// be called to make sure every batch reached the archive.
type Queue struct {
	archive  *Archive
	saveChan chan []Tile
	done     chan struct{}

	mu      sync.Mutex
	isClose bool

	errMu sync.Mutex
	err   error
}

// NewQueue starts the writer goroutine. size is the number of batches that
// may wait before InsertTiles blocks.
func NewQueue(archive *Archive, size int) *Queue {
	if size < 0 {
		size = 0
	}
	q := &Queue{
		archive:  archive,
		saveChan: make(chan []Tile, size),
		done:     make(chan struct{}),
	}
	go q.start()
	return q
}

func (q *Queue) start() {
	defer close(q.done)
	q.archive.log.Debug("insert queue started")
	for batch := range q.saveChan {
		if err := q.archive.InsertTiles(context.Background(), batch); err != nil {
			q.archive.log.Errorf("async insert of %d tiles failed: %s", len(batch), err)
			q.errMu.Lock()
			if q.err == nil {
				q.err = err
			}
			q.errMu.Unlock()
		}
	}
}

// Reopened reports whether the underlying archive existed before Open.
func (q *Queue) Reopened() bool { return q.archive.Reopened() }

// PriorTileCount queries the underlying archive directly.
func (q *Queue) PriorTileCount(ctx context.Context, z, x uint32) (int, error) {
	return q.archive.PriorTileCount(ctx, z, x)
}

// InsertTiles enqueues a batch and returns without waiting for it to be
// written. The first error of an earlier batch is returned so the caller
// can stop early.
func (q *Queue) InsertTiles(ctx context.Context, tiles []Tile) error {
	if err := q.Err(); err != nil {
		return err
	}
	if len(tiles) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.isClose {
		return ErrQueueClosed
	}
	select {
	case q.saveChan <- tiles:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the first insert error seen by the writer goroutine.
func (q *Queue) Err() error {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.err
}

// Close waits for queued batches to be written and returns the first insert
// error. It does not close the archive.
func (q *Queue) Close() error {
	q.mu.Lock()
	if !q.isClose {
		q.isClose = true
		close(q.saveChan)
	}
	q.mu.Unlock()
	<-q.done
	return q.Err()
}
