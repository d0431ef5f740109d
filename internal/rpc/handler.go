// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// Handler implements the remote side of the thirteen procedures.
// internal/remotefs is the production implementation; tests supply
// their own.
//
// A method returns a wire.Err* sentinel (or an error satisfying
// errors.Is against one) to report a remote-operation failure; the
// server maps it to a Status byte with wire.StatusForError. Any other
// error is sent as StatusInvalidArgument, without logging — it does
// not close the connection.
type Handler interface {
	Listdir(ctx context.Context, req wire.ListdirRequest) ([]wire.ListdirEntry, error)
	Stat(ctx context.Context, req wire.StatRequest) (wire.StatResponse, error)
	Readlink(ctx context.Context, req wire.ReadlinkRequest) (wire.ReadlinkResponse, error)
	Mknod(ctx context.Context, req wire.MknodRequest) (wire.MknodResponse, error)
	Mkdir(ctx context.Context, req wire.MkdirRequest) (wire.MkdirResponse, error)
	Unlink(ctx context.Context, req wire.UnlinkRequest) (wire.UnlinkResponse, error)
	Rmdir(ctx context.Context, req wire.RmdirRequest) (wire.RmdirResponse, error)
	Rename(ctx context.Context, req wire.RenameRequest) (wire.RenameResponse, error)
	Truncate(ctx context.Context, req wire.TruncateRequest) (wire.TruncateResponse, error)
	Read(ctx context.Context, req wire.ReadRequest) (wire.ReadResponse, error)
	Write(ctx context.Context, req wire.WriteRequest) (wire.WriteResponse, error)
	Utimens(ctx context.Context, req wire.UtimensRequest) (wire.UtimensResponse, error)
	CopyFileRange(ctx context.Context, req wire.CopyFileRangeRequest) (wire.CopyFileRangeResponse, error)
}
