// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "io"

// ListdirSender writes the directory entry stream that follows a
// successful Listdir response. Each entry is framed as
// (name_length, name_bytes, Stat payload); the stream ends with a
// sentinel entry of name_length 0. The caller calls End exactly once
// after the last successful Send; on a Send error it abandons the
// connection instead of calling End, since cancelling mid-stream
// requires closing the socket (spec.md §4.1).
type ListdirSender struct {
	enc *Encoder
}

// NewListdirSender wraps w for writing a Listdir entry stream.
func NewListdirSender(w io.Writer) *ListdirSender {
	return &ListdirSender{enc: NewEncoder(w)}
}

// Send writes one directory entry.
func (s *ListdirSender) Send(entry ListdirEntry) error {
	s.enc.PutString(entry.Name)
	entry.Stat.Encode(s.enc)
	return s.enc.Err()
}

// End writes the end-of-stream sentinel (name_length = 0).
func (s *ListdirSender) End() error {
	s.enc.PutUint64(0)
	return s.enc.Err()
}

// ListdirReceiver reads the directory entry stream following a
// successful Listdir response. The caller must drain to EOF (RecvNext
// returning ok == false) before issuing the next request on the same
// connection, per spec.md §4.1.
type ListdirReceiver struct {
	dec *Decoder
	eof bool
}

// NewListdirReceiver wraps r for reading a Listdir entry stream.
func NewListdirReceiver(r io.Reader) *ListdirReceiver {
	return &ListdirReceiver{dec: NewDecoder(r)}
}

// RecvNext reads the next directory entry. ok is false at end of
// stream (the sentinel was consumed) or on error.
func (r *ListdirReceiver) RecvNext() (entry ListdirEntry, ok bool, err error) {
	if r.eof {
		return ListdirEntry{}, false, nil
	}

	nameLength := r.dec.GetUint64()
	if r.dec.Err() != nil {
		return ListdirEntry{}, false, r.dec.Err()
	}
	if nameLength == 0 {
		r.eof = true
		return ListdirEntry{}, false, nil
	}
	if nameLength > maxFieldLength {
		return ListdirEntry{}, false, &protocolError{msg: "listdir: entry name too long"}
	}

	nameBuf := make([]byte, nameLength)
	r.dec.read(nameBuf)
	if r.dec.Err() != nil {
		return ListdirEntry{}, false, r.dec.Err()
	}
	stat := DecodeStat(r.dec)
	if r.dec.Err() != nil {
		return ListdirEntry{}, false, r.dec.Err()
	}
	return ListdirEntry{Name: string(nameBuf), Stat: stat}, true, nil
}

// protocolError marks a malformed-frame failure as distinct from a
// transport I/O error, per spec.md §7's taxonomy. internal/rpc treats
// both as fatal for the connection, but keeping them distinguishable
// lets callers log which kind occurred.
type protocolError struct{ msg string }

func (e *protocolError) Error() string { return "wire: " + e.msg }
