// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsadapter bridges the kernel's FUSE requests to the RPC
// client and page cache: every node is addressed by its absolute
// remote path, Lookup and Readdir drive synchronous RPCs, and
// Read/Write/Release/Flush delegate to internal/cache, which in turn
// calls back into the RPC client on a cache miss or a dirty flush.
package fsadapter
