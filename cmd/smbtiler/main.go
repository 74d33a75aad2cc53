package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"

	"smbtiler/internal/mbtiles"
	"smbtiler/internal/pyramid"
	"smbtiler/internal/smbshare"
)

func main() {
	cmd := newRootCmd(func(ctx context.Context, conf *Conf) error {
		return run(ctx, conf, dialSMB)
	})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// shareSession is a logged in file server whose shares hold pyramids.
type shareSession interface {
	Mount(ctx context.Context, share string) (pyramid.Tree, error)
	Close() error
}

type dialFunc func(ctx context.Context, cfg smbshare.Config, log logrus.FieldLogger) (shareSession, error)

type smbSession struct {
	*smbshare.Session
}

func (s smbSession) Mount(ctx context.Context, share string) (pyramid.Tree, error) {
	tree, err := s.Session.Mount(ctx, share)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func dialSMB(ctx context.Context, cfg smbshare.Config, log logrus.FieldLogger) (shareSession, error) {
	session, err := smbshare.Dial(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return smbSession{session}, nil
}

// run 开始任务. The session is released once, whichever step fails.
func run(ctx context.Context, conf *Conf, dial dialFunc) (err error) {
	start := time.Now()

	logFile, err := InitLog(conf)
	if err != nil {
		return err
	}
	id, _ := shortid.Generate()
	entry := log.WithField("task", id)

	exit := NewSafeExit(entry)
	defer func() {
		if cerr := exit.Run(); err == nil {
			err = cerr
		}
	}()
	if logFile != nil {
		exit.Register("log file", logFile.Close)
	}
	ctx, cancel := exit.ListenSignal(ctx)
	defer cancel()

	if conf.MetricsAddr != "" {
		exit.Register("metrics server", serveMetrics(conf.MetricsAddr, entry))
	}

	session, err := dial(ctx, conf.smbConfig(), entry)
	if err != nil {
		return err
	}
	exit.Register("smb session", session.Close)

	tree, err := session.Mount(ctx, conf.Share)
	if err != nil {
		return err
	}

	dumper, err := pyramid.NewDumper(tree, conf.Base,
		pyramid.WithLogger(entry),
		pyramid.WithZoomOrder(conf.zoomOrder),
		pyramid.WithListingCache(conf.ListingCache),
		pyramid.WithProgress(newProgress(entry, conf.Progress).handle),
	)
	if err != nil {
		return err
	}
	if err := dumper.Prepare(ctx); err != nil {
		return err
	}
	minZoom, err := dumper.MinZoom()
	if err != nil {
		return err
	}
	maxZoom, err := dumper.MaxZoom()
	if err != nil {
		return err
	}

	bounds, err := dumper.CalculateBounds(ctx, maxZoom.Name)
	if err != nil {
		return err
	}
	if pyramid.IsEmpty(bounds) {
		entry.Warnf("zoom %s holds no tiles, bounds left empty", maxZoom.Name)
	}
	entry.Infof("zoom %s..%s, bounds %s", minZoom.Name, maxZoom.Name, mbtiles.FormatBounds(bounds))

	archive, err := mbtiles.Open(conf.Output, mbtiles.Metadata{
		Name:        conf.Name,
		Description: conf.Description,
		Format:      conf.Format,
		MinZoom:     minZoom.Name,
		MaxZoom:     maxZoom.Name,
		Bounds:      bounds,
	}, mbtiles.WithLogger(entry))
	if err != nil {
		return err
	}
	exit.Register("archive", archive.Close)

	var target pyramid.Archive = archive
	if conf.InsertMode == insertAsync {
		queue := mbtiles.NewQueue(archive, conf.QueueSize)
		exit.Register("insert queue", queue.Close)
		target = queue
	}

	stats, err := dumper.Dump(ctx, target)
	if err != nil {
		return err
	}
	entry.WithFields(logrus.Fields{
		"levels":  stats.Levels,
		"columns": stats.Columns,
		"skipped": stats.SkippedColumns,
		"tiles":   stats.Tiles,
		"failed":  stats.FailedReads,
		"dup":     stats.DuplicateRows,
		"bytes":   stats.Bytes,
	}).Infof("%.3fs finished...", time.Since(start).Seconds())
	return nil
}

func serveMetrics(addr string, log logrus.FieldLogger) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %s", err)
		}
	}()
	log.Infof("metrics on %s/metrics", addr)
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
