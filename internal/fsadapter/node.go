// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fsadapter

import (
	"context"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// node is a single InodeEmbedder addressing one absolute remote path.
// Every operation resolves through state's RPC client or cache; the
// node itself holds no cached data beyond its path.
type node struct {
	gofuse.Inode
	state *state
	path  string
}

var (
	_ gofuse.InodeEmbedder  = (*node)(nil)
	_ gofuse.NodeLookuper   = (*node)(nil)
	_ gofuse.NodeReaddirer  = (*node)(nil)
	_ gofuse.NodeGetattrer  = (*node)(nil)
	_ gofuse.NodeSetattrer  = (*node)(nil)
	_ gofuse.NodeOpener     = (*node)(nil)
	_ gofuse.NodeReader     = (*node)(nil)
	_ gofuse.NodeWriter     = (*node)(nil)
	_ gofuse.NodeReleaser   = (*node)(nil)
	_ gofuse.NodeFlusher    = (*node)(nil)
	_ gofuse.NodeCreater    = (*node)(nil)
	_ gofuse.NodeMkdirer    = (*node)(nil)
	_ gofuse.NodeUnlinker   = (*node)(nil)
	_ gofuse.NodeRmdirer    = (*node)(nil)
	_ gofuse.NodeRenamer    = (*node)(nil)
	_ gofuse.NodeReadlinker = (*node)(nil)
)

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func applyStat(attr *fuse.Attr, st wire.Stat) {
	attr.Mode = st.Mode
	attr.Size = uint64(st.Size)
	attr.Nlink = uint32(st.Links)
	attr.Uid = st.UID
	attr.Gid = st.GID
	attr.Mtime = uint64(st.Mtime.Sec)
	attr.Mtimensec = uint32(st.Mtime.Nsec)
	attr.Atime = uint64(st.Atime.Sec)
	attr.Atimensec = uint32(st.Atime.Nsec)
	attr.Ctime = uint64(st.Ctime.Sec)
	attr.Ctimensec = uint32(st.Ctime.Nsec)
	attr.Blocks = (attr.Size + 511) / 512
}

// Lookup implements rpc.Handler-backed name resolution: one Stat RPC
// per component, no local caching beyond the kernel's own entry cache.
func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := childPath(n.path, name)
	st, err := n.state.stat(path)
	if err != nil {
		return nil, errnoFor(err)
	}

	applyStat(&out.Attr, st)
	child := &node{state: n.state, path: path}
	inode := n.NewInode(ctx, child, gofuse.StableAttr{Mode: st.Mode & unix.S_IFMT})
	return inode, 0
}

// Readdir drains Listdir fully before returning — the wire protocol
// streams entries, but the kernel's DirStream interface is pull based
// and the RPC round trip is cheap relative to a directory's size.
func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	entries, err := n.state.listdir(n.path)
	if err != nil {
		return nil, errnoFor(err)
	}

	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: e.Stat.Mode & unix.S_IFMT})
	}
	return &sliceDirStream{entries: out}, 0
}

func (n *node) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	st, err := n.state.stat(n.path)
	if err != nil {
		return errnoFor(err)
	}
	applyStat(&out.Attr, st)
	if fs, ok := fh.(*fileState); ok {
		out.Attr.Size = uint64(n.state.getSize(fs))
	}
	return 0
}

func (n *node) Setattr(ctx context.Context, fh gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := n.state.truncate(n.path, int64(size)); err != nil {
			return errnoFor(err)
		}
		if fs, ok := fh.(*fileState); ok {
			n.state.mu.Lock()
			fs.size = int64(size)
			n.state.mu.Unlock()
		}
	}

	atime, mtime, touched := resolveTimes(in)
	if touched {
		if err := n.state.utimens(n.path, atime, mtime); err != nil {
			return errnoFor(err)
		}
	}

	st, err := n.state.stat(n.path)
	if err != nil {
		return errnoFor(err)
	}
	applyStat(&out.Attr, st)
	return 0
}

func resolveTimes(in *fuse.SetAttrIn) (atime, mtime wire.Timespec, touched bool) {
	if a, ok := in.GetATime(); ok {
		atime = wire.Timespec{Sec: a.Unix(), Nsec: int64(a.Nanosecond())}
		touched = true
	}
	if m, ok := in.GetMTime(); ok {
		mtime = wire.Timespec{Sec: m.Unix(), Nsec: int64(m.Nanosecond())}
		touched = true
	}
	return atime, mtime, touched
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.state.readlink(n.path)
	if err != nil {
		return nil, errnoFor(err)
	}
	return []byte(target), 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	var knownSize int64
	if st, err := n.state.stat(n.path); err == nil {
		knownSize = st.Size
	}
	return n.state.acquire(n.path, knownSize), 0, 0
}

func (n *node) Read(ctx context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	fs, ok := fh.(*fileState)
	if !ok {
		return nil, syscall.EBADF
	}
	nRead, err := n.state.cache.Read(ctx, fs.id, dest, off)
	if err != nil {
		return nil, errnoFor(err)
	}
	return fuse.ReadResultData(dest[:nRead]), 0
}

func (n *node) Write(ctx context.Context, fh gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	fs, ok := fh.(*fileState)
	if !ok {
		return 0, syscall.EBADF
	}
	written, err := n.state.cache.Write(ctx, fs.id, data, off)
	if err != nil {
		return 0, errnoFor(err)
	}
	n.state.growSize(fs, off+int64(written))
	return uint32(written), 0
}

func (n *node) Flush(ctx context.Context, fh gofuse.FileHandle) syscall.Errno {
	fs, ok := fh.(*fileState)
	if !ok {
		return 0
	}
	if err := n.state.cache.Flush(ctx, fs.id, n.state.getSize(fs)); err != nil {
		return errnoFor(err)
	}
	return 0
}

func (n *node) Release(ctx context.Context, fh gofuse.FileHandle) syscall.Errno {
	fs, ok := fh.(*fileState)
	if !ok {
		return 0
	}
	if err := n.state.cache.Flush(ctx, fs.id, n.state.getSize(fs)); err != nil {
		n.state.logger.Debug("flush on release failed", "path", n.path, "error", err)
	}
	n.state.release(n.path)
	return 0
}

func (n *node) Create(ctx context.Context, name string, flags, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	path := childPath(n.path, name)
	if err := n.state.mknod(path); err != nil {
		return nil, nil, 0, errnoFor(err)
	}

	out.Attr.Mode = unix.S_IFREG | mode
	child := &node{state: n.state, path: path}
	inode := n.NewInode(ctx, child, gofuse.StableAttr{Mode: unix.S_IFREG})
	return inode, n.state.acquire(path, 0), 0, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	path := childPath(n.path, name)
	if err := n.state.mkdir(path); err != nil {
		return nil, errnoFor(err)
	}

	out.Attr.Mode = unix.S_IFDIR | mode
	child := &node{state: n.state, path: path}
	inode := n.NewInode(ctx, child, gofuse.StableAttr{Mode: unix.S_IFDIR})
	return inode, 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errnoFor(n.state.unlink(childPath(n.path, name)))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errnoFor(n.state.rmdir(childPath(n.path, name)))
}

func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	destDir, ok := newParent.(*node)
	if !ok {
		return syscall.EINVAL
	}
	return errnoFor(n.state.rename(childPath(n.path, name), childPath(destDir.path, newName), flags))
}
