// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remotefs

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mrizaln/adbfsm/internal/wire"
	"github.com/mrizaln/adbfsm/lib/clock"
)

// DefaultMaxOpenFiles bounds the file descriptor cache's resident set.
const DefaultMaxOpenFiles = 64

// DefaultFDIdleTimeout is how long an unused descriptor is kept open
// before the cache is willing to evict it ahead of the LRU order.
const DefaultFDIdleTimeout = 30 * time.Second

// Handler serves the thirteen RPC procedures against a real directory
// tree rooted at Root.
type Handler struct {
	root   string
	fds    *fdCache
	logger *slog.Logger
}

// Config configures a Handler.
type Config struct {
	// Root is the absolute directory every virtual path is resolved
	// under. Required.
	Root string

	// MaxOpenFiles bounds the descriptor cache. Zero uses
	// DefaultMaxOpenFiles.
	MaxOpenFiles int

	// FDIdleTimeout is how long a cached descriptor may sit unused.
	// Zero uses DefaultFDIdleTimeout.
	FDIdleTimeout time.Duration

	// Clock provides time for descriptor age tracking. Nil uses
	// clock.Real().
	Clock clock.Clock

	// Logger receives diagnostic messages, including per-entry
	// Listdir stat failures (spec.md §4.2: these are logged but do
	// not abort the listing). Nil uses a text logger on stderr that
	// reports only Error-level messages.
	Logger *slog.Logger
}

// New creates a Handler per cfg.
func New(cfg Config) *Handler {
	if cfg.Root == "" {
		panic("remotefs: Root is required")
	}
	if cfg.MaxOpenFiles == 0 {
		cfg.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if cfg.FDIdleTimeout == 0 {
		cfg.FDIdleTimeout = DefaultFDIdleTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	return &Handler{
		root:   filepath.Clean(cfg.Root),
		fds:    newFDCache(cfg.Clock, cfg.MaxOpenFiles, cfg.FDIdleTimeout),
		logger: cfg.Logger,
	}
}

// Close releases every cached descriptor.
func (h *Handler) Close() error {
	h.fds.closeAll()
	return nil
}

// resolve maps a virtual, slash-rooted path onto the real filesystem,
// clamping it inside the configured root.
func (h *Handler) resolve(path string) string {
	cleaned := filepath.Clean("/" + path)
	return filepath.Join(h.root, cleaned)
}

// mapErrno translates a syscall-level failure into one of the
// sentinel errors internal/wire maps to a Status byte. An error that
// is not a recognized errno is reported as invalid argument, the
// taxonomy's catch-all.
func mapErrno(err error) error {
	if err == nil {
		return nil
	}
	errno, ok := err.(unix.Errno)
	if !ok {
		return err
	}
	switch errno {
	case unix.ENOENT:
		return wire.ErrNoSuchFileOrDirectory
	case unix.EACCES, unix.EPERM:
		return wire.ErrPermissionDenied
	case unix.EEXIST:
		return wire.ErrFileExists
	case unix.ENOTDIR:
		return wire.ErrNotADirectory
	case unix.EISDIR:
		return wire.ErrIsADirectory
	case unix.ENOTEMPTY:
		return wire.ErrDirectoryNotEmpty
	default:
		return wire.ErrInvalidArgument
	}
}

// statToWire converts a raw stat buffer to the wire representation.
// It follows lstat semantics throughout — every caller in this
// package reaches it through an Lstat or an Fstatat with
// AT_SYMLINK_NOFOLLOW, never a dereferencing Stat.
func statToWire(st *unix.Stat_t) wire.Stat {
	return wire.Stat{
		Size:  st.Size,
		Links: uint64(st.Nlink),
		Mtime: wire.Timespec{Sec: int64(st.Mtim.Sec), Nsec: int64(st.Mtim.Nsec)},
		Atime: wire.Timespec{Sec: int64(st.Atim.Sec), Nsec: int64(st.Atim.Nsec)},
		Ctime: wire.Timespec{Sec: int64(st.Ctim.Sec), Nsec: int64(st.Ctim.Nsec)},
		Mode:  st.Mode,
		UID:   st.Uid,
		GID:   st.Gid,
	}
}
