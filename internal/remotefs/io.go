// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remotefs

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// Read implements rpc.Handler.
func (h *Handler) Read(ctx context.Context, req wire.ReadRequest) (wire.ReadResponse, error) {
	fd, err := h.fds.acquire(h.resolve(req.Path), false)
	if err != nil {
		return wire.ReadResponse{}, mapErrno(err)
	}

	buf := make([]byte, req.Size)
	n, err := unix.Pread(fd, buf, req.Offset)
	if err != nil {
		return wire.ReadResponse{}, mapErrno(err)
	}
	return wire.ReadResponse{Data: buf[:n]}, nil
}

// Write implements rpc.Handler.
func (h *Handler) Write(ctx context.Context, req wire.WriteRequest) (wire.WriteResponse, error) {
	fd, err := h.fds.acquire(h.resolve(req.Path), true)
	if err != nil {
		return wire.WriteResponse{}, mapErrno(err)
	}

	n, err := unix.Pwrite(fd, req.Bytes, req.Offset)
	if err != nil {
		return wire.WriteResponse{}, mapErrno(err)
	}
	return wire.WriteResponse{Size: uint64(n)}, nil
}

// CopyFileRange implements rpc.Handler.
func (h *Handler) CopyFileRange(ctx context.Context, req wire.CopyFileRangeRequest) (wire.CopyFileRangeResponse, error) {
	inFD, err := h.fds.acquire(h.resolve(req.InPath), false)
	if err != nil {
		return wire.CopyFileRangeResponse{}, mapErrno(err)
	}
	outFD, err := h.fds.acquire(h.resolve(req.OutPath), true)
	if err != nil {
		return wire.CopyFileRangeResponse{}, mapErrno(err)
	}

	// unix.CopyFileRange may copy fewer bytes than requested, e.g.
	// across an extent or filesystem boundary, or when interrupted by
	// a signal. Loop until the requested count is copied or a zero
	// return (EOF on the source) ends it early — partial copies are
	// success per spec.md §4.2, not an error.
	inOffset, outOffset := req.InOffset, req.OutOffset
	var total uint64
	remaining := int(req.Size)
	for remaining > 0 {
		n, err := unix.CopyFileRange(inFD, &inOffset, outFD, &outOffset, remaining, 0)
		if err != nil {
			if total > 0 {
				break
			}
			return wire.CopyFileRangeResponse{}, mapErrno(err)
		}
		if n == 0 {
			break
		}
		total += uint64(n)
		remaining -= n
	}
	return wire.CopyFileRangeResponse{Size: total}, nil
}
