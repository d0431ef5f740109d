// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mrizaln/adbfsm/internal/cache"
	"github.com/mrizaln/adbfsm/internal/rpc"
)

// DefaultPageSize is the page granularity the cache reads and writes
// in, mirroring the wire protocol's preferred transfer size.
const DefaultPageSize = 128 * 1024

// DefaultMaxPages bounds resident page count absent an explicit cache
// budget; at DefaultPageSize this is 32 MiB.
const DefaultMaxPages = 256

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Client is the RPC connection to the remote helper process.
	// Required.
	Client *rpc.Client

	// PageSize is the cache's page granularity in bytes. Zero uses
	// DefaultPageSize. Must be a power of two.
	PageSize int

	// MaxPages bounds the number of resident dirty-or-clean pages
	// kept in memory. Zero uses DefaultMaxPages.
	MaxPages int

	// AllowOther permits other users (including root) to access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a text logger on
	// stderr that reports only Error-level messages is used.
	Logger *slog.Logger
}

// Mounted bundles the live go-fuse server with the adapter state
// backing it, so a diagnostics poller can pull cache statistics
// without the mount owner threading a separate reference through.
type Mounted struct {
	*fuse.Server
	state *state
}

// Stats reports a snapshot of the page cache backing this mount.
func (m *Mounted) Stats() cache.Stats {
	return m.state.cache.Stats()
}

// FlushOrphans surrenders every orphaned dirty page the cache is
// holding as a durability backstop. Call this before Unmount so a
// clean shutdown never loses writes that were evicted but never
// acknowledged by the remote helper.
func (m *Mounted) FlushOrphans(ctx context.Context) {
	m.state.flushOrphans(ctx)
}

// Mount mounts the remote filesystem at the configured mountpoint.
// The caller must call Unmount on the returned Mounted when done, and
// should call FlushOrphans first so a clean unmount never discards
// writes the cache evicted but the remote side never acknowledged.
func Mount(options Options) (*Mounted, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if options.PageSize == 0 {
		options.PageSize = DefaultPageSize
	}
	if options.MaxPages == 0 {
		options.MaxPages = DefaultMaxPages
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	// go-fuse dispatches callbacks from its own goroutine pool (no
	// SingleThreaded option is set here), so Lookup/Read/Write/etc.
	// on this mount do run concurrently. That is fine: state's
	// clientMu gives the single rpc.Client the serialized access
	// spec.md §4.2 requires, and the page cache is already safe for
	// concurrent use by construction.
	st := newState(options.Client, options.PageSize, options.MaxPages, options.Logger)
	root := &node{state: st, path: "/"}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "adbfsm",
			Name:       "adbfsm",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("adbfsm mounted", "mountpoint", options.Mountpoint)
	return &Mounted{Server: server, state: st}, nil
}
