// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mrizaln/adbfsm/internal/cache"
	"github.com/mrizaln/adbfsm/internal/rpc"
	"github.com/mrizaln/adbfsm/internal/wire"
)

// fileState is the per-open-path bookkeeping the adapter threads
// through go-fuse's FileHandle: the opaque FileID the cache indexes
// pages by, the file's last known size (for bounding Flush), and a
// reference count so the FileID is released only on the kernel's
// last close.
type fileState struct {
	id       cache.FileID
	size     int64
	refCount int
}

// state is shared by every node in the tree: the RPC connection, the
// page cache, and the path<->FileID bookkeeping the cache's opaque
// FileID type requires.
//
// go-fuse dispatches callbacks from a goroutine pool by default, but
// spec.md §4.2 is explicit that "concurrent calls on the same Client
// are not permitted; serialization is the caller's responsibility."
// clientMu is that coarser-level serialization: every call into
// client, and every cache fill/flush callback (which themselves call
// client), takes it for the duration of the RPC. It is deliberately
// kept separate from mu, which only ever guards the in-memory
// path/FileID bookkeeping below and never blocks on network I/O.
type state struct {
	mu sync.Mutex

	clientMu sync.Mutex
	client   *rpc.Client

	cache  *cache.Cache
	logger *slog.Logger

	nextID   cache.FileID
	files    map[string]*fileState
	pathByID map[cache.FileID]string
}

func newState(client *rpc.Client, pageSize, maxPages int, logger *slog.Logger) *state {
	s := &state{
		client:   client,
		logger:   logger,
		files:    make(map[string]*fileState),
		pathByID: make(map[cache.FileID]string),
	}
	s.cache = cache.New(pageSize, maxPages, s.fill, s.flush)
	return s
}

// acquire returns the fileState for path, creating one with
// knownSize if this is the first open, and increments its reference
// count. The caller must eventually call release.
func (s *state) acquire(path string, knownSize int64) *fileState {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.files[path]
	if !ok {
		s.nextID++
		fs = &fileState{id: s.nextID, size: knownSize}
		s.files[path] = fs
		s.pathByID[fs.id] = path
	}
	fs.refCount++
	return fs
}

// release drops one reference to path's fileState and forgets the
// path/FileID mapping once the last handle is released. FileIDs are
// never reused.
func (s *state) release(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.files[path]
	if !ok {
		return
	}
	fs.refCount--
	if fs.refCount <= 0 {
		delete(s.files, path)
		delete(s.pathByID, fs.id)
	}
}

func (s *state) growSize(fs *fileState, atLeast int64) {
	s.mu.Lock()
	if atLeast > fs.size {
		fs.size = atLeast
	}
	s.mu.Unlock()
}

func (s *state) getSize(fs *fileState) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fs.size
}

func (s *state) pathFor(id cache.FileID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.pathByID[id]
	return path, ok
}

// fill is the cache.FillFunc wired into the cache at construction.
func (s *state) fill(ctx context.Context, id cache.FileID, buf []byte, offset int64) (int, error) {
	path, ok := s.pathFor(id)
	if !ok {
		return 0, fmt.Errorf("fsadapter: fill: unknown file id %d", id)
	}
	return s.read(path, buf, offset)
}

// flush is the cache.FlushFunc wired into the cache at construction.
func (s *state) flush(ctx context.Context, id cache.FileID, buf []byte, offset int64) (int, error) {
	path, ok := s.pathFor(id)
	if !ok {
		return 0, fmt.Errorf("fsadapter: flush: unknown file id %d", id)
	}
	size, err := s.write(path, offset, buf)
	return int(size), err
}

// flushOrphans drains the cache's durability backstop, surrendering
// every orphaned dirty page through the same RPC path a live flush
// would use. Its only caller is Mounted.FlushOrphans; it is safe to
// call more than once.
func (s *state) flushOrphans(ctx context.Context) {
	orphans := s.cache.TakeOrphans()
	for _, orphan := range orphans {
		path, ok := s.pathFor(orphan.Key.File)
		if !ok {
			s.logger.Warn("dropping orphan page for released file id", "file_id", orphan.Key.File)
			continue
		}
		offset := int64(orphan.Key.Index) * int64(s.cache.PageSize())
		if _, err := s.write(path, offset, orphan.Bytes()); err != nil {
			s.logger.Error("failed to flush orphan page", "path", path, "offset", offset, "error", err)
		}
	}
}

// The methods below are the only path through which any node or
// cache callback may reach s.client. Each takes clientMu for the
// duration of the RPC, giving the single, not-concurrency-safe
// *rpc.Client the serialized access spec.md §4.2 requires regardless
// of how many goroutines go-fuse dispatches callbacks from.
//
// read copies the RPC response into the caller's buf before clientMu
// is released, since rpc.Client.Read's returned slice aliases the
// client's internal scratch buffer and is only valid until the
// client's next call.

func (s *state) stat(path string) (wire.Stat, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Stat(path)
}

func (s *state) listdir(path string) ([]wire.ListdirEntry, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Listdir(path)
}

func (s *state) readlink(path string) (string, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Readlink(path)
}

func (s *state) mknod(path string) error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Mknod(path)
}

func (s *state) mkdir(path string) error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Mkdir(path)
}

func (s *state) unlink(path string) error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Unlink(path)
}

func (s *state) rmdir(path string) error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Rmdir(path)
}

func (s *state) rename(from, to string, flags uint32) error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Rename(from, to, flags)
}

func (s *state) truncate(path string, size int64) error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Truncate(path, size)
}

func (s *state) utimens(path string, atime, mtime wire.Timespec) error {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Utimens(path, atime, mtime)
}

func (s *state) read(path string, buf []byte, offset int64) (int, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	data, err := s.client.Read(path, offset, uint64(len(buf)))
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

func (s *state) write(path string, offset int64, data []byte) (uint64, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return s.client.Write(path, offset, data)
}
