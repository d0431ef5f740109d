// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remotefs

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mrizaln/adbfsm/lib/clock"
)

// fdKey identifies one cached descriptor. A path may be cached twice,
// once read-only and once read-write, since neither Read nor Write
// needs the other's access mode.
type fdKey struct {
	path     string
	writable bool
}

type fdEntry struct {
	fd       int
	lastUsed time.Time
}

// fdCache bounds the number of open descriptors the handler keeps
// around for repeat Read/Write/CopyFileRange calls against the same
// path, instead of opening and closing on every call. Eviction is
// least-recently-used, with idle entries beyond idleTimeout evicted
// first regardless of cache pressure.
type fdCache struct {
	mu      sync.Mutex
	clock   clock.Clock
	maxOpen int
	idle    time.Duration
	entries map[fdKey]*fdEntry
}

func newFDCache(clk clock.Clock, maxOpen int, idle time.Duration) *fdCache {
	return &fdCache{
		clock:   clk,
		maxOpen: maxOpen,
		idle:    idle,
		entries: make(map[fdKey]*fdEntry),
	}
}

// acquire returns a descriptor for path opened with the requested
// access mode, reusing a cached one if present.
func (c *fdCache) acquire(path string, writable bool) (int, error) {
	key := fdKey{path: path, writable: writable}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.lastUsed = c.clock.Now()
		fd := e.fd
		c.mu.Unlock()
		return fd, nil
	}
	c.mu.Unlock()

	flags := unix.O_RDONLY | unix.O_CLOEXEC
	if writable {
		flags = unix.O_RDWR | unix.O_CLOEXEC
	}
	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		return -1, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
	c.entries[key] = &fdEntry{fd: fd, lastUsed: c.clock.Now()}
	return fd, nil
}

// evictLocked drops idle entries first, then the single
// least-recently-used entry if the cache is still at capacity.
// Callers must hold c.mu.
func (c *fdCache) evictLocked() {
	now := c.clock.Now()
	for k, e := range c.entries {
		if now.Sub(e.lastUsed) > c.idle {
			unix.Close(e.fd)
			delete(c.entries, k)
		}
	}

	if len(c.entries) < c.maxOpen {
		return
	}

	var oldestKey fdKey
	var oldestEntry *fdEntry
	for k, e := range c.entries {
		if oldestEntry == nil || e.lastUsed.Before(oldestEntry.lastUsed) {
			oldestKey, oldestEntry = k, e
		}
	}
	if oldestEntry != nil {
		unix.Close(oldestEntry.fd)
		delete(c.entries, oldestKey)
	}
}

// closeAll closes every cached descriptor.
func (c *fdCache) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		unix.Close(e.fd)
		delete(c.entries, k)
	}
}
