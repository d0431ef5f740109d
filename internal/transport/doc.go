// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport supplies the byte stream internal/rpc.Client
// speaks the wire protocol over. A Dialer knows nothing about
// procedures or framing — it only produces a connected
// io.ReadWriteCloser, so rpc and cache stay entirely transport
// agnostic.
//
// Three Dialers are provided: TCP for a helper already reachable by
// address, ADB for a helper running on an Android device reached
// through `adb forward`, and SSH for a helper reached by tunnelling
// through a remote host.
package transport
