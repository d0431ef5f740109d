// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsadapter

import (
	"context"
	"errors"
	"syscall"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// errnoFor maps an error returned by the RPC client or the cache to
// the syscall.Errno the kernel expects. Any error that isn't one of
// the wire sentinels or a context cancellation becomes EIO.
func errnoFor(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, wire.ErrNoSuchFileOrDirectory):
		return syscall.ENOENT
	case errors.Is(err, wire.ErrPermissionDenied):
		return syscall.EACCES
	case errors.Is(err, wire.ErrFileExists):
		return syscall.EEXIST
	case errors.Is(err, wire.ErrNotADirectory):
		return syscall.ENOTDIR
	case errors.Is(err, wire.ErrIsADirectory):
		return syscall.EISDIR
	case errors.Is(err, wire.ErrDirectoryNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, wire.ErrInvalidArgument):
		return syscall.EINVAL
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return syscall.EINTR
	default:
		return syscall.EIO
	}
}
