// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remotefs implements rpc.Handler against a real directory
// tree using golang.org/x/sys/unix, and is what adbfsm-server wires
// into an rpc.Server. Every virtual path from a request is resolved
// under a configured root before any syscall touches it.
package remotefs
