// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remotefs

import (
	"context"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// Listdir implements rpc.Handler.
func (h *Handler) Listdir(ctx context.Context, req wire.ListdirRequest) ([]wire.ListdirEntry, error) {
	full := h.resolve(req.Path)

	dirFd, err := unix.Open(full, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, mapErrno(err)
	}
	defer unix.Close(dirFd)

	names, err := readDirNames(dirFd)
	if err != nil {
		return nil, mapErrno(err)
	}

	entries := make([]wire.ListdirEntry, 0, len(names))
	for _, name := range names {
		var st unix.Stat_t
		if err := unix.Fstatat(dirFd, name, &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			// Entry vanished between readdir and stat, or some
			// other per-entry failure. Skip it rather than failing
			// the whole listing (spec.md §4.2).
			h.logger.Warn("remotefs: per-entry stat failed during listdir",
				"path", filepath.Join(req.Path, name), "error", err)
			continue
		}
		entries = append(entries, wire.ListdirEntry{Name: name, Stat: statToWire(&st)})
	}
	return entries, nil
}

// readDirNames lists a directory's entries (excluding "." and "..")
// using the raw getdents syscall against an already-open directory
// fd rather than os.ReadDir, so the same fd can be reused for the
// dirfd-relative stat of each entry below.
func readDirNames(dirFd int) ([]string, error) {
	var names []string
	buf := make([]byte, 8192)
	for {
		n, err := unix.ReadDirent(dirFd, buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		_, _, names = unix.ParseDirent(buf[:n], -1, names)
	}
	return names, nil
}
