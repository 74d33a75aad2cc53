package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	pb "gopkg.in/cheggaaa/pb.v1"

	"smbtiler/internal/pyramid"
)

// progress logs dump events and drives one bar per zoom level.
type progress struct {
	log     *logrus.Entry
	showBar bool
	bar     *pb.ProgressBar
}

func newProgress(log *logrus.Entry, showBar bool) *progress {
	return &progress{log: log, showBar: showBar}
}

func (p *progress) handle(e pyramid.Event) {
	switch e.Kind {
	case pyramid.LevelStart:
		p.log.Infof("%s {level: %d}", e.Kind, e.Level)
	case pyramid.ColumnStart:
		if p.showBar && p.bar == nil && e.Columns > 0 {
			p.bar = pb.New(e.Columns).Prefix(fmt.Sprintf("Zoom %d : ", e.Level)).Postfix("\n")
			p.bar.SetRefreshRate(time.Second)
			p.bar.Start()
		}
	case pyramid.LevelEnd:
		if p.bar != nil {
			p.bar.FinishPrint(fmt.Sprintf("Zoom %d finished ~", e.Level))
			p.bar = nil
		}
		p.log.Infof("%s {level: %d, cost: %s}", e.Kind, e.Level, e.Cost)
	case pyramid.ColumnEnd:
		if p.bar != nil {
			p.bar.Increment()
		}
		if e.Skipped {
			p.log.Debugf("%s {level: %d, column: %d, skipped}", e.Kind, e.Level, e.Column)
			return
		}
		p.log.Debugf("%s {level: %d, column: %d, cost: %s}", e.Kind, e.Level, e.Column, e.Cost)
	case pyramid.RowEnd:
		p.log.Tracef("%s {level: %d, column: %d, row: %d, cost: %s}", e.Kind, e.Level, e.Column, e.Row, e.Cost)
	}
}
