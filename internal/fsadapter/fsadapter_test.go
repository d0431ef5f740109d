// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsadapter

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mrizaln/adbfsm/internal/remotefs"
	"github.com/mrizaln/adbfsm/internal/rpc"
)

// newTestClient wires a real remotefs.Handler rooted at a temp
// directory through a real rpc.Server/Client pair over a loopback
// TCP connection, so fsadapter is exercised against the same RPC
// framing a production mount would use.
func newTestClient(t *testing.T) (*rpc.Client, string) {
	t.Helper()

	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := remotefs.New(remotefs.Config{Root: root})
	t.Cleanup(func() { _ = handler.Close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := rpc.NewServer(listener, handler, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.Serve(ctx) }()

	conn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	client, err := rpc.NewClient(conn)
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client, root
}

func newTestRoot(t *testing.T) (*node, string) {
	client, root := newTestClient(t)
	st := newState(client, 4096, 16, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &node{state: st, path: "/"}, root
}

func TestLookupResolvesRemoteFile(t *testing.T) {
	n, root := newTestRoot(t)
	if err := os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var out fuse.EntryOut
	_, errno := n.Lookup(context.Background(), "hello.txt", &out)
	if errno != 0 {
		t.Fatalf("lookup: errno %v", errno)
	}
	if out.Attr.Size != 2 {
		t.Fatalf("size = %d, want 2", out.Attr.Size)
	}
}

func TestLookupMissingReturnsENOENT(t *testing.T) {
	n, _ := newTestRoot(t)

	var out fuse.EntryOut
	_, errno := n.Lookup(context.Background(), "missing", &out)
	if errno != syscall.ENOENT {
		t.Fatalf("errno = %v, want ENOENT", errno)
	}
}

func TestReaddirListsSeededEntries(t *testing.T) {
	n, root := newTestRoot(t)
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("seed dir: %v", err)
	}

	stream, errno := n.Readdir(context.Background())
	if errno != 0 {
		t.Fatalf("readdir: errno %v", errno)
	}

	seen := map[string]bool{}
	for stream.HasNext() {
		entry, errno := stream.Next()
		if errno != 0 {
			t.Fatalf("next: errno %v", errno)
		}
		seen[entry.Name] = true
	}
	if !seen["a.txt"] || !seen["sub"] {
		t.Fatalf("readdir missing entries: %v", seen)
	}
}

func TestWriteReadRoundTripThroughCache(t *testing.T) {
	n, root := newTestRoot(t)
	path := filepath.Join(root, "data.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx := context.Background()
	fh, _, errno := n.Open(ctx, 0)
	if errno != 0 {
		t.Fatalf("open: errno %v", errno)
	}

	payload := []byte("the quick brown fox")
	written, errno := n.Write(ctx, fh, payload, 0)
	if errno != 0 {
		t.Fatalf("write: errno %v", errno)
	}
	if int(written) != len(payload) {
		t.Fatalf("written = %d, want %d", written, len(payload))
	}

	dest := make([]byte, len(payload))
	result, errno := n.Read(ctx, fh, dest, 0)
	if errno != 0 {
		t.Fatalf("read: errno %v", errno)
	}
	got, status := result.Bytes(dest)
	if !status.Ok() {
		t.Fatalf("read result status: %v", status)
	}
	if string(got) != string(payload) {
		t.Fatalf("read back %q, want %q", got, payload)
	}

	if errno := n.Release(ctx, fh); errno != 0 {
		t.Fatalf("release: errno %v", errno)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read disk file: %v", err)
	}
	if string(onDisk) != string(payload) {
		t.Fatalf("on-disk contents = %q, want %q", onDisk, payload)
	}
}

func TestCreateMkdirUnlinkRmdir(t *testing.T) {
	n, root := newTestRoot(t)
	ctx := context.Background()

	var entryOut fuse.EntryOut
	_, fh, _, errno := n.Create(ctx, "new.txt", 0, 0o644, &entryOut)
	if errno != 0 {
		t.Fatalf("create: errno %v", errno)
	}
	if errno := n.Release(ctx, fh); errno != 0 {
		t.Fatalf("release: errno %v", errno)
	}
	if _, err := os.Stat(filepath.Join(root, "new.txt")); err != nil {
		t.Fatalf("created file missing: %v", err)
	}

	var dirOut fuse.EntryOut
	if _, errno := n.Mkdir(ctx, "newdir", 0o755, &dirOut); errno != 0 {
		t.Fatalf("mkdir: errno %v", errno)
	}
	if _, err := os.Stat(filepath.Join(root, "newdir")); err != nil {
		t.Fatalf("created dir missing: %v", err)
	}

	if errno := n.Unlink(ctx, "new.txt"); errno != 0 {
		t.Fatalf("unlink: errno %v", errno)
	}
	if _, err := os.Stat(filepath.Join(root, "new.txt")); !os.IsNotExist(err) {
		t.Fatalf("file still present after unlink")
	}

	if errno := n.Rmdir(ctx, "newdir"); errno != 0 {
		t.Fatalf("rmdir: errno %v", errno)
	}
	if _, err := os.Stat(filepath.Join(root, "newdir")); !os.IsNotExist(err) {
		t.Fatalf("dir still present after rmdir")
	}
}

func TestRenameMovesAcrossSameParent(t *testing.T) {
	n, root := newTestRoot(t)
	if err := os.WriteFile(filepath.Join(root, "old.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	errno := n.Rename(context.Background(), "old.txt", n, "renamed.txt", 0)
	if errno != 0 {
		t.Fatalf("rename: errno %v", errno)
	}
	if _, err := os.Stat(filepath.Join(root, "renamed.txt")); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
}

var _ gofuse.InodeEmbedder = (*node)(nil)
