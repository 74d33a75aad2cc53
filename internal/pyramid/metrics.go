package pyramid

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tilesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smbtiler_tiles_read_total",
		Help: "The total number of tile files read from the share",
	})
	tileReadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smbtiler_tile_read_errors_total",
		Help: "The total number of tile files that could not be read",
	})
	tileBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smbtiler_tile_bytes_total",
		Help: "The total number of tile bytes read from the share",
	})
	columnsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smbtiler_columns_skipped_total",
		Help: "The total number of columns skipped because the archive already holds them",
	})
	columnsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smbtiler_columns_stored_total",
		Help: "The total number of column batches handed to the archive",
	})
)
