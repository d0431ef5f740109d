// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// fakeHandler is an in-memory Handler used to drive the client/server
// pair in tests without touching a real filesystem.
type fakeHandler struct {
	entries []wire.ListdirEntry
	stat    wire.Stat
	target  string
	data    []byte
	failure error
}

func (h *fakeHandler) Listdir(ctx context.Context, req wire.ListdirRequest) ([]wire.ListdirEntry, error) {
	if h.failure != nil {
		return nil, h.failure
	}
	return h.entries, nil
}

func (h *fakeHandler) Stat(ctx context.Context, req wire.StatRequest) (wire.StatResponse, error) {
	if h.failure != nil {
		return wire.StatResponse{}, h.failure
	}
	return wire.StatResponse{Stat: h.stat}, nil
}

func (h *fakeHandler) Readlink(ctx context.Context, req wire.ReadlinkRequest) (wire.ReadlinkResponse, error) {
	return wire.ReadlinkResponse{Target: h.target}, h.failure
}

func (h *fakeHandler) Mknod(ctx context.Context, req wire.MknodRequest) (wire.MknodResponse, error) {
	return wire.MknodResponse{}, h.failure
}

func (h *fakeHandler) Mkdir(ctx context.Context, req wire.MkdirRequest) (wire.MkdirResponse, error) {
	return wire.MkdirResponse{}, h.failure
}

func (h *fakeHandler) Unlink(ctx context.Context, req wire.UnlinkRequest) (wire.UnlinkResponse, error) {
	return wire.UnlinkResponse{}, h.failure
}

func (h *fakeHandler) Rmdir(ctx context.Context, req wire.RmdirRequest) (wire.RmdirResponse, error) {
	return wire.RmdirResponse{}, h.failure
}

func (h *fakeHandler) Rename(ctx context.Context, req wire.RenameRequest) (wire.RenameResponse, error) {
	return wire.RenameResponse{}, h.failure
}

func (h *fakeHandler) Truncate(ctx context.Context, req wire.TruncateRequest) (wire.TruncateResponse, error) {
	return wire.TruncateResponse{}, h.failure
}

func (h *fakeHandler) Read(ctx context.Context, req wire.ReadRequest) (wire.ReadResponse, error) {
	if h.failure != nil {
		return wire.ReadResponse{}, h.failure
	}
	return wire.ReadResponse{Data: h.data}, nil
}

func (h *fakeHandler) Write(ctx context.Context, req wire.WriteRequest) (wire.WriteResponse, error) {
	if h.failure != nil {
		return wire.WriteResponse{}, h.failure
	}
	return wire.WriteResponse{Size: uint64(len(req.Bytes))}, nil
}

func (h *fakeHandler) Utimens(ctx context.Context, req wire.UtimensRequest) (wire.UtimensResponse, error) {
	return wire.UtimensResponse{}, h.failure
}

func (h *fakeHandler) CopyFileRange(ctx context.Context, req wire.CopyFileRangeRequest) (wire.CopyFileRangeResponse, error) {
	if h.failure != nil {
		return wire.CopyFileRangeResponse{}, h.failure
	}
	return wire.CopyFileRangeResponse{Size: req.Size}, nil
}

// startServer listens on an ephemeral TCP port, serves handler in the
// background, and returns a dialer for a fresh connection. Shutdown
// is registered with t.Cleanup.
func startServer(t *testing.T, handler Handler) func() (net.Conn, error) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	server := NewServer(listener, handler, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		listener.Close()
		<-done
	})

	addr := listener.Addr().String()
	return func() (net.Conn, error) {
		return net.Dial("tcp", addr)
	}
}

func dialClient(t *testing.T, dial func() (net.Conn, error)) *Client {
	t.Helper()
	conn, err := dial()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client, err := NewClient(conn)
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientServerHandshake(t *testing.T) {
	dial := startServer(t, &fakeHandler{})
	dialClient(t, dial)
}

func TestClientServerListdir(t *testing.T) {
	handler := &fakeHandler{entries: []wire.ListdirEntry{
		{Name: "a.txt", Stat: wire.Stat{Size: 5, Mode: 0o100644}},
		{Name: "b", Stat: wire.Stat{Size: 0, Mode: 0o040755}},
	}}
	dial := startServer(t, handler)
	client := dialClient(t, dial)

	entries, err := client.Listdir("/sdcard")
	if err != nil {
		t.Fatalf("listdir: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a.txt" || entries[1].Name != "b" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestClientServerStatAndReadlink(t *testing.T) {
	handler := &fakeHandler{
		stat:   wire.Stat{Size: 42, Mode: 0o100644, UID: 1000},
		target: "/sdcard/real",
	}
	dial := startServer(t, handler)
	client := dialClient(t, dial)

	stat, err := client.Stat("/sdcard/link")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if stat.Size != 42 || stat.UID != 1000 {
		t.Fatalf("unexpected stat: %+v", stat)
	}

	target, err := client.Readlink("/sdcard/link")
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != "/sdcard/real" {
		t.Fatalf("target = %q, want /sdcard/real", target)
	}
}

func TestClientServerMutatingProcedures(t *testing.T) {
	handler := &fakeHandler{}
	dial := startServer(t, handler)
	client := dialClient(t, dial)

	if err := client.Mknod("/sdcard/f"); err != nil {
		t.Fatalf("mknod: %v", err)
	}
	if err := client.Mkdir("/sdcard/d"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := client.Unlink("/sdcard/f"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if err := client.Rmdir("/sdcard/d"); err != nil {
		t.Fatalf("rmdir: %v", err)
	}
	if err := client.Rename("/sdcard/a", "/sdcard/b", 0); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := client.Truncate("/sdcard/a", 100); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := client.Utimens("/sdcard/a", wire.Timespec{Sec: 1}, wire.Timespec{Sec: 2}); err != nil {
		t.Fatalf("utimens: %v", err)
	}
}

func TestClientServerReadWrite(t *testing.T) {
	handler := &fakeHandler{data: []byte("payload bytes")}
	dial := startServer(t, handler)
	client := dialClient(t, dial)

	data, err := client.Read("/sdcard/f", 0, 4096)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload bytes" {
		t.Fatalf("read data = %q", data)
	}

	size, err := client.Write("/sdcard/f", 0, []byte("hello"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if size != 5 {
		t.Fatalf("write size = %d, want 5", size)
	}
}

func TestClientServerCopyFileRange(t *testing.T) {
	dial := startServer(t, &fakeHandler{})
	client := dialClient(t, dial)

	size, err := client.CopyFileRange("/sdcard/a", 0, "/sdcard/b", 0, 10)
	if err != nil {
		t.Fatalf("copy_file_range: %v", err)
	}
	if size != 10 {
		t.Fatalf("copy_file_range size = %d, want 10", size)
	}
}

func TestClientServerRemoteErrorPassesThrough(t *testing.T) {
	handler := &fakeHandler{failure: wire.ErrNoSuchFileOrDirectory}
	dial := startServer(t, handler)
	client := dialClient(t, dial)

	_, err := client.Stat("/sdcard/missing")
	if !errors.Is(err, wire.ErrNoSuchFileOrDirectory) {
		t.Fatalf("stat error = %v, want ErrNoSuchFileOrDirectory", err)
	}
}

func TestClientServerMultipleRequestsOverOneConnection(t *testing.T) {
	handler := &fakeHandler{stat: wire.Stat{Size: 1}}
	dial := startServer(t, handler)
	client := dialClient(t, dial)

	for i := 0; i < 5; i++ {
		if _, err := client.Stat("/sdcard/f"); err != nil {
			t.Fatalf("stat #%d: %v", i, err)
		}
	}
}

func TestServerAcceptsNextConnectionAfterOneCloses(t *testing.T) {
	dial := startServer(t, &fakeHandler{stat: wire.Stat{Size: 1}})

	first := dialClient(t, dial)
	if _, err := first.Stat("/a"); err != nil {
		t.Fatalf("first client stat: %v", err)
	}
	first.Close()

	second := dialClient(t, dial)
	if _, err := second.Stat("/a"); err != nil {
		t.Fatalf("second client stat: %v", err)
	}
}

var _ io.Closer = (*Client)(nil)
