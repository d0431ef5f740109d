// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsadapter

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// sliceDirStream implements fs.DirStream over a pre-fetched slice —
// Readdir always drains the remote Listdir RPC fully before handing
// entries to the kernel, so there is never a reason to stream lazily.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
