package pyramid

import (
	"fmt"
	"time"

	"github.com/paulmach/orb/maptile"
)

// EventKind identifies a progress event.
type EventKind int

const (
	LevelStart EventKind = iota
	LevelEnd
	ColumnStart
	ColumnEnd
	RowStart
	RowEnd
)

var eventNames = [...]string{
	LevelStart:  "level-start",
	LevelEnd:    "level-end",
	ColumnStart: "column-start",
	ColumnEnd:   "column-end",
	RowStart:    "row-start",
	RowEnd:      "row-end",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventNames[k]
}

// Event is one progress notification. Column is set for column and row
// events, Row (a TMS row) for row events, Cost for the *End kinds.
// Columns is the number of columns of the level on ColumnStart. Skipped
// marks the ColumnEnd of a column already present in the archive.
type Event struct {
	Kind    EventKind
	Level   maptile.Zoom
	Column  uint32
	Row     uint32
	Columns int
	Skipped bool
	Cost    time.Duration
}

// A ProgressFunc receives progress events. It is called synchronously from
// Dump and must not block for long.
type ProgressFunc func(Event)
