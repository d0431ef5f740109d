// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFieldLength bounds a single variable-length field (a path or a
// Write/Read payload). 64 MiB is far larger than any single page the
// cache will ever ship in one Read/Write RPC, and catches a corrupt
// length prefix before it turns into an out-of-memory allocation.
const maxFieldLength = 64 << 20

// Encoder writes wire-format primitives to an underlying io.Writer.
// It keeps no buffering of its own: every Put* call is a separate
// Write on the underlying writer. internal/rpc encodes straight onto
// the connection, so a request goes out as several writes rather than
// one.
type Encoder struct {
	w   io.Writer
	err error
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Err returns the first error encountered by any Put* call.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

// Write implements io.Writer so an Encoder can itself be used as the
// destination for a nested writer (e.g. wire.NewListdirSender).
func (e *Encoder) Write(p []byte) (int, error) {
	e.write(p)
	if e.err != nil {
		return 0, e.err
	}
	return len(p), nil
}

// PutByte writes a single byte (a Procedure or Status tag).
func (e *Encoder) PutByte(b byte) {
	e.write([]byte{b})
}

// PutUint64 writes an unsigned 64-bit little-endian integer.
func (e *Encoder) PutUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	e.write(buf[:])
}

// PutInt64 writes a signed 64-bit little-endian integer.
func (e *Encoder) PutInt64(v int64) {
	e.PutUint64(uint64(v))
}

// PutBytes writes a length-prefixed byte field: an unsigned 64-bit
// little-endian length followed by the raw bytes.
func (e *Encoder) PutBytes(p []byte) {
	e.PutUint64(uint64(len(p)))
	e.write(p)
}

// PutString writes a length-prefixed UTF-8 string. Paths are not
// null-terminated on the wire.
func (e *Encoder) PutString(s string) {
	e.PutBytes([]byte(s))
}

// PutTimespec writes a timespec as two signed 64-bit integers,
// seconds then nanoseconds.
func (e *Encoder) PutTimespec(t Timespec) {
	e.PutInt64(t.Sec)
	e.PutInt64(t.Nsec)
}

// Decoder reads wire-format primitives from an underlying io.Reader.
type Decoder struct {
	r   io.Reader
	err error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Err returns the first error encountered by any Get* call.
func (d *Decoder) Err() error { return d.err }

func (d *Decoder) read(p []byte) {
	if d.err != nil {
		return
	}
	_, d.err = io.ReadFull(d.r, p)
}

// GetByte reads a single byte.
func (d *Decoder) GetByte() byte {
	var buf [1]byte
	d.read(buf[:])
	return buf[0]
}

// GetUint64 reads an unsigned 64-bit little-endian integer.
func (d *Decoder) GetUint64() uint64 {
	var buf [8]byte
	d.read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// GetInt64 reads a signed 64-bit little-endian integer.
func (d *Decoder) GetInt64() int64 {
	return int64(d.GetUint64())
}

// GetBytes reads a length-prefixed byte field. A length exceeding
// maxFieldLength is treated as a protocol error (malformed frame)
// rather than risking an unbounded allocation.
func (d *Decoder) GetBytes() []byte {
	length := d.GetUint64()
	if d.err != nil {
		return nil
	}
	if length > maxFieldLength {
		d.err = fmt.Errorf("wire: field length %d exceeds maximum %d", length, maxFieldLength)
		return nil
	}
	buf := make([]byte, length)
	d.read(buf)
	return buf
}

// GetBytesInto reads a length-prefixed byte field into buf, allocating
// a new slice if buf's capacity is insufficient, and returns the
// slice of valid length. It exists so a caller that reuses a scratch
// buffer across many reads — internal/rpc's Client.Read is the only
// one — can avoid allocating on every call.
func (d *Decoder) GetBytesInto(buf []byte) []byte {
	length := d.GetUint64()
	if d.err != nil {
		return nil
	}
	if length > maxFieldLength {
		d.err = fmt.Errorf("wire: field length %d exceeds maximum %d", length, maxFieldLength)
		return nil
	}
	if uint64(cap(buf)) < length {
		buf = make([]byte, length)
	} else {
		buf = buf[:length]
	}
	d.read(buf)
	return buf
}

// GetString reads a length-prefixed UTF-8 string.
func (d *Decoder) GetString() string {
	return string(d.GetBytes())
}

// GetTimespec reads a timespec as two signed 64-bit integers.
func (d *Decoder) GetTimespec() Timespec {
	sec := d.GetInt64()
	nsec := d.GetInt64()
	return Timespec{Sec: sec, Nsec: nsec}
}

// Timespec is the wire representation of a POSIX timespec: seconds
// and nanoseconds, both signed 64-bit.
type Timespec struct {
	Sec  int64
	Nsec int64
}
