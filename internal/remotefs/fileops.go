// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remotefs

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// Stat implements rpc.Handler.
func (h *Handler) Stat(ctx context.Context, req wire.StatRequest) (wire.StatResponse, error) {
	var st unix.Stat_t
	if err := unix.Lstat(h.resolve(req.Path), &st); err != nil {
		return wire.StatResponse{}, mapErrno(err)
	}
	return wire.StatResponse{Stat: statToWire(&st)}, nil
}

// Readlink implements rpc.Handler.
func (h *Handler) Readlink(ctx context.Context, req wire.ReadlinkRequest) (wire.ReadlinkResponse, error) {
	buf := make([]byte, unix.PathMax)
	n, err := unix.Readlink(h.resolve(req.Path), buf)
	if err != nil {
		return wire.ReadlinkResponse{}, mapErrno(err)
	}
	return wire.ReadlinkResponse{Target: string(buf[:n])}, nil
}

// Mknod implements rpc.Handler. It creates a plain regular file; the
// protocol has no notion of device nodes or fifos.
func (h *Handler) Mknod(ctx context.Context, req wire.MknodRequest) (wire.MknodResponse, error) {
	if err := unix.Mknod(h.resolve(req.Path), unix.S_IFREG|0o644, 0); err != nil {
		return wire.MknodResponse{}, mapErrno(err)
	}
	return wire.MknodResponse{}, nil
}

// Mkdir implements rpc.Handler.
func (h *Handler) Mkdir(ctx context.Context, req wire.MkdirRequest) (wire.MkdirResponse, error) {
	if err := unix.Mkdir(h.resolve(req.Path), 0o755); err != nil {
		return wire.MkdirResponse{}, mapErrno(err)
	}
	return wire.MkdirResponse{}, nil
}

// Unlink implements rpc.Handler.
func (h *Handler) Unlink(ctx context.Context, req wire.UnlinkRequest) (wire.UnlinkResponse, error) {
	if err := unix.Unlink(h.resolve(req.Path)); err != nil {
		return wire.UnlinkResponse{}, mapErrno(err)
	}
	return wire.UnlinkResponse{}, nil
}

// Rmdir implements rpc.Handler.
func (h *Handler) Rmdir(ctx context.Context, req wire.RmdirRequest) (wire.RmdirResponse, error) {
	if err := unix.Rmdir(h.resolve(req.Path)); err != nil {
		return wire.RmdirResponse{}, mapErrno(err)
	}
	return wire.RmdirResponse{}, nil
}

// Rename implements rpc.Handler. A non-zero Flags value requests an
// atomic exchange or no-replace rename via renameat2; on a kernel
// that lacks it, the failure is surfaced as invalid argument rather
// than silently falling back to a non-atomic rename, per the
// documented platform caveat.
func (h *Handler) Rename(ctx context.Context, req wire.RenameRequest) (wire.RenameResponse, error) {
	from, to := h.resolve(req.From), h.resolve(req.To)

	if req.Flags != 0 {
		if err := unix.Renameat2(unix.AT_FDCWD, from, unix.AT_FDCWD, to, uint(req.Flags)); err != nil {
			if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) {
				return wire.RenameResponse{}, wire.ErrInvalidArgument
			}
			return wire.RenameResponse{}, mapErrno(err)
		}
		return wire.RenameResponse{}, nil
	}

	if err := unix.Rename(from, to); err != nil {
		return wire.RenameResponse{}, mapErrno(err)
	}
	return wire.RenameResponse{}, nil
}

// Truncate implements rpc.Handler.
func (h *Handler) Truncate(ctx context.Context, req wire.TruncateRequest) (wire.TruncateResponse, error) {
	if err := unix.Truncate(h.resolve(req.Path), req.Size); err != nil {
		return wire.TruncateResponse{}, mapErrno(err)
	}
	return wire.TruncateResponse{}, nil
}

// Utimens implements rpc.Handler. It never follows a symlink, so
// touching a symlink's timestamps does not affect its target.
func (h *Handler) Utimens(ctx context.Context, req wire.UtimensRequest) (wire.UtimensResponse, error) {
	times := []unix.Timespec{
		{Sec: req.Atime.Sec, Nsec: req.Atime.Nsec},
		{Sec: req.Mtime.Sec, Nsec: req.Mtime.Nsec},
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, h.resolve(req.Path), times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return wire.UtimensResponse{}, mapErrno(err)
	}
	return wire.UtimensResponse{}, nil
}
