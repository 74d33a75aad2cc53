package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/shiena/ansicolor"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// InitLog 初始化日志. The returned file is nil unless conf.LogDir is set.
func InitLog(conf *Conf) (*os.File, error) {
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	logIO := []io.Writer{os.Stdout}
	var file *os.File
	if conf.LogDir != "" {
		if err := os.MkdirAll(conf.LogDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		filename := filepath.Join(conf.LogDir, time.Now().Format("2006-01-02.log"))
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		logIO = append(logIO, file)
	}

	// 融合日志输出
	log.SetOutput(ansicolor.NewAnsiColorWriter(io.MultiWriter(logIO...)))

	level, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		log.Warnf("unknown log level %q, using info", conf.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return file, nil
}
