// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"
	"io"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// handshakeLength is the exact byte count of wire.ServerReadyString;
// the handshake has no length prefix or terminator, so the client
// must read precisely this many bytes.
const handshakeLength = len(wire.ServerReadyString)

// Client issues RPCs over a single persistent connection. It performs
// the handshake on construction and then one request per method call
// for the lifetime of the connection.
//
// A Client is not safe for concurrent use: Read reuses an internal
// scratch buffer for its returned payload, which the next call on
// this Client overwrites, and every method shares the connection's
// single request/response cycle. Callers that need concurrent RPCs
// open multiple Clients.
type Client struct {
	conn io.ReadWriteCloser
	enc  *wire.Encoder
	dec  *wire.Decoder

	readBuf []byte
}

// NewClient wraps conn, which must already be connected to a helper
// process, and performs the handshake. It closes conn and returns an
// error if the handshake does not match.
func NewClient(conn io.ReadWriteCloser) (*Client, error) {
	c := &Client{conn: conn, enc: wire.NewEncoder(conn), dec: wire.NewDecoder(conn)}

	greeting := make([]byte, handshakeLength)
	if _, err := io.ReadFull(conn, greeting); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rpc: reading handshake: %w", err)
	}
	if string(greeting) != wire.ServerReadyString {
		conn.Close()
		return nil, fmt.Errorf("rpc: unexpected handshake %q", greeting)
	}
	return c, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// call writes proc followed by req's payload, then reads back the
// status byte. A non-success status is translated to the matching
// wire.Err* sentinel and returned as the error; the caller must not
// decode a response payload in that case.
func (c *Client) call(proc wire.Procedure, req wireRequest) error {
	c.enc.PutByte(byte(proc))
	req.Encode(c.enc)
	if err := c.enc.Err(); err != nil {
		return fmt.Errorf("rpc: writing %s request: %w", proc, err)
	}

	status := wire.Status(c.dec.GetByte())
	if err := c.dec.Err(); err != nil {
		return fmt.Errorf("rpc: reading %s status: %w", proc, err)
	}
	if status != wire.StatusSuccess {
		return wire.ErrorForStatus(status)
	}
	return nil
}

type wireRequest interface {
	Encode(e *wire.Encoder)
}

func (c *Client) Listdir(path string) ([]wire.ListdirEntry, error) {
	if err := c.call(wire.ProcListdir, wire.ListdirRequest{Path: path}); err != nil {
		return nil, err
	}
	receiver := wire.NewListdirReceiver(c.conn)
	var entries []wire.ListdirEntry
	for {
		entry, ok, err := receiver.RecvNext()
		if err != nil {
			return nil, fmt.Errorf("rpc: reading listdir stream: %w", err)
		}
		if !ok {
			return entries, nil
		}
		entries = append(entries, entry)
	}
}

func (c *Client) Stat(path string) (wire.Stat, error) {
	if err := c.call(wire.ProcStat, wire.StatRequest{Path: path}); err != nil {
		return wire.Stat{}, err
	}
	resp := wire.DecodeStatResponse(c.dec)
	return resp.Stat, c.checkDecode(wire.ProcStat)
}

func (c *Client) Readlink(path string) (string, error) {
	if err := c.call(wire.ProcReadlink, wire.ReadlinkRequest{Path: path}); err != nil {
		return "", err
	}
	resp := wire.DecodeReadlinkResponse(c.dec)
	return resp.Target, c.checkDecode(wire.ProcReadlink)
}

func (c *Client) Mknod(path string) error {
	if err := c.call(wire.ProcMknod, wire.MknodRequest{Path: path}); err != nil {
		return err
	}
	wire.DecodeMknodResponse(c.dec)
	return c.checkDecode(wire.ProcMknod)
}

func (c *Client) Mkdir(path string) error {
	if err := c.call(wire.ProcMkdir, wire.MkdirRequest{Path: path}); err != nil {
		return err
	}
	wire.DecodeMkdirResponse(c.dec)
	return c.checkDecode(wire.ProcMkdir)
}

func (c *Client) Unlink(path string) error {
	if err := c.call(wire.ProcUnlink, wire.UnlinkRequest{Path: path}); err != nil {
		return err
	}
	wire.DecodeUnlinkResponse(c.dec)
	return c.checkDecode(wire.ProcUnlink)
}

func (c *Client) Rmdir(path string) error {
	if err := c.call(wire.ProcRmdir, wire.RmdirRequest{Path: path}); err != nil {
		return err
	}
	wire.DecodeRmdirResponse(c.dec)
	return c.checkDecode(wire.ProcRmdir)
}

func (c *Client) Rename(from, to string, flags uint32) error {
	if err := c.call(wire.ProcRename, wire.RenameRequest{From: from, To: to, Flags: flags}); err != nil {
		return err
	}
	wire.DecodeRenameResponse(c.dec)
	return c.checkDecode(wire.ProcRename)
}

func (c *Client) Truncate(path string, size int64) error {
	if err := c.call(wire.ProcTruncate, wire.TruncateRequest{Path: path, Size: size}); err != nil {
		return err
	}
	wire.DecodeTruncateResponse(c.dec)
	return c.checkDecode(wire.ProcTruncate)
}

// Read fetches up to size bytes at offset. The returned slice aliases
// the Client's internal scratch buffer and is only valid until the
// next call on this Client.
func (c *Client) Read(path string, offset int64, size uint64) ([]byte, error) {
	if err := c.call(wire.ProcRead, wire.ReadRequest{Path: path, Offset: offset, Size: size}); err != nil {
		return nil, err
	}
	c.readBuf = c.dec.GetBytesInto(c.readBuf)
	return c.readBuf, c.checkDecode(wire.ProcRead)
}

func (c *Client) Write(path string, offset int64, data []byte) (uint64, error) {
	if err := c.call(wire.ProcWrite, wire.WriteRequest{Path: path, Offset: offset, Bytes: data}); err != nil {
		return 0, err
	}
	resp := wire.DecodeWriteResponse(c.dec)
	return resp.Size, c.checkDecode(wire.ProcWrite)
}

func (c *Client) Utimens(path string, atime, mtime wire.Timespec) error {
	if err := c.call(wire.ProcUtimens, wire.UtimensRequest{Path: path, Atime: atime, Mtime: mtime}); err != nil {
		return err
	}
	wire.DecodeUtimensResponse(c.dec)
	return c.checkDecode(wire.ProcUtimens)
}

func (c *Client) CopyFileRange(inPath string, inOffset int64, outPath string, outOffset int64, size uint64) (uint64, error) {
	req := wire.CopyFileRangeRequest{InPath: inPath, InOffset: inOffset, OutPath: outPath, OutOffset: outOffset, Size: size}
	if err := c.call(wire.ProcCopyFileRange, req); err != nil {
		return 0, err
	}
	resp := wire.DecodeCopyFileRangeResponse(c.dec)
	return resp.Size, c.checkDecode(wire.ProcCopyFileRange)
}

func (c *Client) checkDecode(proc wire.Procedure) error {
	if err := c.dec.Err(); err != nil {
		return fmt.Errorf("rpc: reading %s response: %w", proc, err)
	}
	return nil
}
