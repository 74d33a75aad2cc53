package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

type exitFunc struct {
	name string
	f    func() error
}

// SafeExit releases registered resources exactly once, in reverse order of
// registration, whether the run succeeds, fails or is interrupted.
type SafeExit struct {
	funcs []exitFunc
	mu    sync.Mutex
	once  sync.Once
	err   error
	log   logrus.FieldLogger
}

func NewSafeExit(log logrus.FieldLogger) *SafeExit {
	return &SafeExit{log: log}
}

func (s *SafeExit) Register(name string, f func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.funcs = append(s.funcs, exitFunc{name, f})
}

// Run calls every registered function and returns their errors joined.
func (s *SafeExit) Run() error {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		var errs []error
		for i := len(s.funcs) - 1; i >= 0; i-- {
			ef := s.funcs[i]
			if err := ef.f(); err != nil {
				s.log.Errorf("close %s: %s", ef.name, err)
				errs = append(errs, fmt.Errorf("close %s: %w", ef.name, err))
			}
		}
		s.err = errors.Join(errs...)
	})
	return s.err
}

// ListenSignal returns a context canceled on SIGHUP, SIGINT, SIGTERM or
// SIGQUIT, so the dump stops and Run can release resources.
func (s *SafeExit) ListenSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			s.log.Warnf("收到系统信号 %s, 正在停止任务, 请稍后", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
