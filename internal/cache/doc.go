// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the write-back, page-indexed cache that
// sits between the kernel filesystem adapter and the RPC client: a
// per-file, page-sized LRU with single-flight fills and a durability
// backstop (the orphan list) for dirty pages that leave the resident
// set under eviction pressure.
//
// The cache does not know about the wire protocol or the transport —
// it is driven entirely through the Fill and Flush callbacks supplied
// at construction, matching the collaborator contract in spec.md §6.
// internal/fsadapter is the only caller and supplies the Fill/Flush
// implementations, built on internal/rpc's Client.
package cache
