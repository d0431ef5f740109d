// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// FillFunc reads pageSize bytes (or fewer, at EOF) for id starting at
// offset into buf, returning the number of bytes actually filled.
// Invoked by the cache on a page miss; never invoked concurrently for
// the same PageKey (spec.md I4).
type FillFunc func(ctx context.Context, id FileID, buf []byte, offset int64) (int, error)

// FlushFunc writes buf (a dirty page's bytes) for id at offset,
// returning the number of bytes actually written. Invoked by Flush
// for every resident dirty page in range.
type FlushFunc func(ctx context.Context, id FileID, buf []byte, offset int64) (int, error)

// Orphan is a dirty page that was evicted from the LRU before it
// could be flushed. It is returned to the caller by TakeOrphans,
// which transfers exclusive ownership: the cache will never touch it
// again. The caller is expected to flush Bytes() through its own
// means and then discard the Orphan.
type Orphan struct {
	Key    PageKey
	data   []byte
	length int
}

// Bytes returns the orphan's valid byte range.
func (o *Orphan) Bytes() []byte { return o.data[:o.length] }

// Stats is a point-in-time snapshot of cache occupancy and counters,
// exposed for internal/diag. It adds no invariants beyond what the
// cache already tracks.
type Stats struct {
	ResidentPages int
	MaxPages      int
	OrphanPages   int
	InflightFills int
	Hits          uint64
	Misses        uint64
	FillErrors    uint64
}

// Cache is a per-mount, page-indexed, write-back cache. It is safe
// for concurrent use: the mutex below gives every structural
// operation (residency check, LRU touch, eviction, orphan handoff)
// atomicity with respect to other goroutines, while releasing the
// lock across every suspension point (fill, flush, inflight wait)
// listed in spec.md §5 so overlapping I/O does not serialize behind
// one slow remote call.
type Cache struct {
	mu sync.Mutex

	pageSize int
	maxPages int

	lru      *list.List // *page, front = most recently used
	index    map[PageKey]*list.Element
	inflight map[PageKey]*fillFuture
	orphans  *list.List // *page

	fill  FillFunc
	flush FlushFunc

	hits       uint64
	misses     uint64
	fillErrors uint64
}

// New creates a cache with the given page size (must be a power of
// two) and resident page budget. fill and flush are invoked on misses
// and on Flush respectively; neither may be nil.
func New(pageSize, maxPages int, fill FillFunc, flush FlushFunc) *Cache {
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		panic(fmt.Sprintf("cache: page size %d is not a power of two", pageSize))
	}
	if fill == nil || flush == nil {
		panic("cache: fill and flush callbacks are required")
	}
	return &Cache{
		pageSize: pageSize,
		maxPages: maxPages,
		lru:      list.New(),
		index:    make(map[PageKey]*list.Element),
		inflight: make(map[PageKey]*fillFuture),
		orphans:  list.New(),
		fill:     fill,
		flush:    flush,
	}
}

// PageSize returns the configured page size.
func (c *Cache) PageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSize
}

// MaxPages returns the configured resident page budget.
func (c *Cache) MaxPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxPages
}

// Stats returns a snapshot of current occupancy and cumulative
// counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		ResidentPages: c.lru.Len(),
		MaxPages:      c.maxPages,
		OrphanPages:   c.orphans.Len(),
		InflightFills: len(c.inflight),
		Hits:          c.hits,
		Misses:        c.misses,
		FillErrors:    c.fillErrors,
	}
}

// Read fills out with up to len(out) bytes starting at offset within
// file id, paging in any missing pages in the covered range. The
// returned count may be less than len(out) only if the final covered
// page was short (end of file).
func (c *Cache) Read(ctx context.Context, id FileID, out []byte, offset int64) (int, error) {
	if len(out) == 0 {
		return 0, nil
	}
	pageSize := c.PageSize()
	start := uint64(offset) / uint64(pageSize)
	last := uint64(offset+int64(len(out))-1) / uint64(pageSize)

	total := 0
	pos := 0
	for idx := start; idx <= last; idx++ {
		key := PageKey{File: id, Index: idx}
		fileOffset := int64(idx) * int64(pageSize)

		localOffset := 0
		if idx == start {
			localOffset = int(offset - fileOffset)
		}
		capacity := pageSize - localOffset
		want := len(out) - pos
		if want > capacity {
			want = capacity
		}

		var copied int
		err := c.withResidentForRead(ctx, key, fileOffset, func(p *page) {
			copied = p.readAt(out[pos:pos+want], localOffset)
		})
		if err != nil {
			return total, err
		}

		total += copied
		pos += copied
		if copied < want {
			break // short page: end of file
		}
	}
	return total, nil
}

// Write overwrites the byte range [offset, offset+len(in)) within
// file id, allocating any missing pages but never filling them —
// bytes below the write's local offset on a freshly allocated page
// are undefined until a later fill, matching spec.md §4.3.
func (c *Cache) Write(ctx context.Context, id FileID, in []byte, offset int64) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}
	pageSize := c.PageSize()
	start := uint64(offset) / uint64(pageSize)
	last := uint64(offset+int64(len(in))-1) / uint64(pageSize)

	total := 0
	pos := 0
	for idx := start; idx <= last; idx++ {
		key := PageKey{File: id, Index: idx}

		localOffset := 0
		if idx == start {
			localOffset = int(offset - int64(idx)*int64(pageSize))
		}
		capacity := pageSize - localOffset
		n := len(in) - pos
		if n > capacity {
			n = capacity
		}

		var copied int
		err := c.withResidentForWrite(ctx, key, func(p *page) {
			copied = p.writeAt(in[pos:pos+n], localOffset)
		})
		if err != nil {
			return total, err
		}

		total += copied
		pos += copied
	}
	return total, nil
}

// Flush surrenders every resident dirty page covering [0, size) to
// the flush callback, in page order. A page that is not resident is
// skipped without error; a flush callback failure stops the loop and
// is returned to the caller (the dirty bit of the failing page has
// already been cleared — see spec.md §9's open question).
func (c *Cache) Flush(ctx context.Context, id FileID, size int64) error {
	if size <= 0 {
		return nil
	}
	pageSize := int64(c.PageSize())
	pageCount := (size + pageSize - 1) / pageSize

	for idx := int64(0); idx < pageCount; idx++ {
		key := PageKey{File: id, Index: uint64(idx)}

		if err := c.awaitInflight(ctx, key); err != nil {
			return err
		}

		c.mu.Lock()
		elem, resident := c.index[key]
		if !resident {
			c.mu.Unlock()
			continue
		}
		p := elem.Value.(*page)
		if !p.dirty {
			c.mu.Unlock()
			continue
		}
		scratch := make([]byte, p.length)
		copy(scratch, p.buf[:p.length])
		p.dirty = false
		c.mu.Unlock()

		fileOffset := idx * pageSize
		if _, err := c.flush(ctx, id, scratch, fileOffset); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the LRU and index, leaving orphans untouched.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Init()
	c.index = make(map[PageKey]*list.Element)
}

// SetPageSize reconfigures the page size, clearing LRU and index but
// preserving orphans. The caller should drain orphans first via
// TakeOrphans if their geometry under the old page size matters.
func (c *Cache) SetPageSize(pageSize int) {
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		panic(fmt.Sprintf("cache: page size %d is not a power of two", pageSize))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageSize = pageSize
	c.lru.Init()
	c.index = make(map[PageKey]*list.Element)
}

// SetMaxPages reconfigures the resident page budget, clearing LRU and
// index but preserving orphans.
func (c *Cache) SetMaxPages(maxPages int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxPages = maxPages
	c.lru.Init()
	c.index = make(map[PageKey]*list.Element)
}

// HasOrphans reports whether the orphan list is non-empty.
func (c *Cache) HasOrphans() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orphans.Len() > 0
}

// TakeOrphans moves the entire orphan list out of the cache and
// returns it. The cache never flushes orphans implicitly — the
// caller owns them from this point and is expected to surrender their
// bytes through its own means.
func (c *Cache) TakeOrphans() []*Orphan {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orphans.Len() == 0 {
		return nil
	}
	out := make([]*Orphan, 0, c.orphans.Len())
	for e := c.orphans.Front(); e != nil; e = e.Next() {
		p := e.Value.(*page)
		out = append(out, &Orphan{Key: p.key, data: p.buf, length: p.length})
	}
	c.orphans.Init()
	return out
}

// awaitInflight blocks until no fill is inflight for key, re-checking
// after every wait since a new fill could start between releasing and
// reacquiring the lock.
func (c *Cache) awaitInflight(ctx context.Context, key PageKey) error {
	for {
		c.mu.Lock()
		fut, inflight := c.inflight[key]
		c.mu.Unlock()
		if !inflight {
			return nil
		}
		if err := fut.wait(ctx); err != nil {
			return err
		}
	}
}

// withResidentForRead ensures key is resident (filling it on miss),
// moves it to the LRU front, and invokes use with the cache lock held
// so the caller's copy-out is atomic with respect to eviction. If a
// fill is already inflight for key, it awaits that fill and re-checks
// residency rather than starting a second one (spec.md I4).
func (c *Cache) withResidentForRead(ctx context.Context, key PageKey, fileOffset int64, use func(p *page)) error {
	for {
		c.mu.Lock()
		if fut, ok := c.inflight[key]; ok {
			c.mu.Unlock()
			if err := fut.wait(ctx); err != nil {
				return err
			}
			continue
		}

		if elem, ok := c.index[key]; ok {
			c.lru.MoveToFront(elem)
			p := elem.Value.(*page)
			c.hits++
			use(p)
			c.mu.Unlock()
			return nil
		}

		// Miss: register the inflight future before releasing the
		// lock so any concurrent caller for the same key attaches to
		// it instead of starting a second fill.
		c.misses++
		p := newPage(key, c.pageSize)
		fut := newFillFuture()
		c.inflight[key] = fut
		c.mu.Unlock()

		n, err := c.fill(ctx, key.File, p.buf, fileOffset)

		c.mu.Lock()
		delete(c.inflight, key)
		if err != nil {
			c.fillErrors++
			fut.resolve(err)
			c.mu.Unlock()
			return err
		}
		p.length = n
		elem := c.lru.PushFront(p)
		c.index[key] = elem
		use(p)
		c.evictLocked()
		fut.resolve(nil)
		c.mu.Unlock()
		return nil
	}
}

// withResidentForWrite ensures key is resident — allocating a
// zero-length page if absent, never filling — moves it to the LRU
// front, and invokes mutate with the cache lock held.
func (c *Cache) withResidentForWrite(ctx context.Context, key PageKey, mutate func(p *page)) error {
	for {
		c.mu.Lock()
		if fut, ok := c.inflight[key]; ok {
			c.mu.Unlock()
			if err := fut.wait(ctx); err != nil {
				return err
			}
			continue
		}

		var p *page
		if elem, ok := c.index[key]; ok {
			c.lru.MoveToFront(elem)
			p = elem.Value.(*page)
		} else {
			p = newPage(key, c.pageSize)
			elem := c.lru.PushFront(p)
			c.index[key] = elem
		}
		mutate(p)
		c.evictLocked()
		c.mu.Unlock()
		return nil
	}
}

// evictLocked drops pages from the LRU tail until the cap holds.
// Clean victims are dropped outright; dirty victims are spliced into
// the orphan list so the byte range they hold remains reachable
// (spec.md I5) until the caller drains it with TakeOrphans.
//
// Callers must hold c.mu.
func (c *Cache) evictLocked() {
	for c.lru.Len() > c.maxPages {
		tail := c.lru.Back()
		if tail == nil {
			return
		}
		c.lru.Remove(tail)
		p := tail.Value.(*page)
		delete(c.index, p.key)
		if p.dirty {
			c.orphans.PushBack(p)
		}
	}
}
