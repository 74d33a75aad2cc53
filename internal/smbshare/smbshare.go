// Package smbshare opens an SMB2 session and serves directory listings and
// file contents of a mounted share.
package smbshare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hirochachacha/go-smb2"
	"github.com/sirupsen/logrus"

	"smbtiler/internal/pyramid"
)

// DefaultTimeout bounds the dial, the authentication and every request.
const DefaultTimeout = 30 * time.Second

// Config holds the connection parameters.
type Config struct {
	Host     string
	Port     int
	Domain   string
	Username string
	Password string
	Timeout  time.Duration
}

// Session is an authenticated SMB2 session. Close releases it together with
// every share mounted through it.
type Session struct {
	conn    net.Conn
	session *smb2.Session
	host    string
	timeout time.Duration
	log     logrus.FieldLogger

	mu    sync.Mutex
	trees []*Tree

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to cfg.Host and authenticates with NTLM.
func Dial(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Session, error) {
	if cfg.Port == 0 {
		cfg.Port = 445
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		},
	}
	authCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	s, err := d.DialContext(authCtx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("authenticate %s as %s: %w", addr, cfg.Username, err)
	}
	log.Infof("smb session opened on %s", addr)

	return &Session{
		conn:    conn,
		session: s,
		host:    cfg.Host,
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// Mount connects to a share, given by name or as \\host\share.
func (s *Session) Mount(ctx context.Context, share string) (*Tree, error) {
	name := share
	if !strings.HasPrefix(name, `\\`) {
		name = fmt.Sprintf(`\\%s\%s`, s.host, share)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	fsys, err := s.session.WithContext(ctx).Mount(name)
	if err != nil {
		return nil, fmt.Errorf("connect tree %s: %w", name, err)
	}

	t := &Tree{share: fsys, name: name, timeout: s.timeout}
	s.mu.Lock()
	s.trees = append(s.trees, t)
	s.mu.Unlock()
	return t, nil
}

// Close unmounts every share, logs off and closes the connection. Only the
// first call does anything.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		s.mu.Lock()
		for _, t := range s.trees {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			if err := t.share.WithContext(ctx).Umount(); err != nil {
				errs = append(errs, fmt.Errorf("disconnect tree %s: %w", t.name, err))
			}
			cancel()
		}
		s.trees = nil
		s.mu.Unlock()

		if err := s.session.Logoff(); err != nil {
			errs = append(errs, fmt.Errorf("logoff: %w", err))
		}
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
		s.closeErr = errors.Join(errs...)
		s.log.Info("smb session closed")
	})
	return s.closeErr
}

var _ pyramid.Tree = (*Tree)(nil)

// Tree is a mounted share. Each request is bounded by the session timeout.
type Tree struct {
	share   *smb2.Share
	name    string
	timeout time.Duration
}

// ReadDir lists dir.
func (t *Tree) ReadDir(ctx context.Context, dir string) ([]fs.DirEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	infos, err := t.share.WithContext(ctx).ReadDir(sharePath(dir))
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

// ReadFile returns the contents of name.
func (t *Tree) ReadFile(ctx context.Context, name string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	f, err := t.share.WithContext(ctx).Open(sharePath(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// sharePath turns a slash separated path into a share relative SMB path.
func sharePath(p string) string {
	p = strings.ReplaceAll(p, "/", `\`)
	p = strings.TrimLeft(p, `\`)
	if p == "." {
		return ""
	}
	return p
}
