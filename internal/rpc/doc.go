// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc drives the wire protocol over a real connection: Client
// issues one request per procedure and decodes its response, Server
// accepts a connection, performs the handshake, and dispatches
// requests to a Handler until the connection closes.
//
// Neither side knows what transport carries the connection —
// internal/transport supplies the net.Conn (or an ADB/SSH-tunnelled
// equivalent). Client works over any io.ReadWriteCloser; Server takes
// a net.Listener and serves each accepted net.Conn.
package rpc
