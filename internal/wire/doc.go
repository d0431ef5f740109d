// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the length-framed binary protocol spoken
// between adbfsm and adbfsm-server: procedure tags, request and
// response payload encoding, the Listdir streaming channel, and the
// connection handshake.
//
// Every integer on the wire is little-endian. Every variable-length
// field (strings, byte slices) is prefixed with an unsigned 64-bit
// length. Nothing here touches a socket directly — Encoder and
// Decoder wrap any io.Writer/io.Reader, and internal/rpc is the
// package that drives them over a real transport.
package wire
