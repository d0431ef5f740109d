// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"testing"
)

func TestReadRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	req := ReadRequest{Path: "/sdcard/DCIM/photo.jpg", Offset: 4096, Size: 8192}
	req.Encode(enc)
	if err := enc.Err(); err != nil {
		t.Fatalf("encode: %v", err)
	}

	dec := NewDecoder(&buf)
	got := DecodeReadRequest(dec)
	if err := dec.Err(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != req {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestWriteRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	req := WriteRequest{Path: "/tmp/x", Offset: -1, Bytes: []byte("hello")}
	req.Encode(enc)

	dec := NewDecoder(&buf)
	got := DecodeWriteRequest(dec)
	if got.Path != req.Path || got.Offset != req.Offset || !bytes.Equal(got.Bytes, req.Bytes) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestRenameRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	req := RenameRequest{From: "/a", To: "/b", Flags: 1}
	req.Encode(enc)

	dec := NewDecoder(&buf)
	got := DecodeRenameRequest(dec)
	if got != req {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestCopyFileRangeRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	req := CopyFileRangeRequest{InPath: "/a", InOffset: 10, OutPath: "/b", OutOffset: 20, Size: 30}
	req.Encode(enc)

	dec := NewDecoder(&buf)
	got := DecodeCopyFileRangeRequest(dec)
	if got != req {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestStatResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	resp := StatResponse{Stat: Stat{
		Size:  123456,
		Links: 1,
		Mtime: Timespec{Sec: 1700000000, Nsec: 500},
		Atime: Timespec{Sec: 1700000001, Nsec: 0},
		Ctime: Timespec{Sec: 1700000002, Nsec: 999},
		Mode:  0o100644,
		UID:   1000,
		GID:   1000,
	}}
	resp.Encode(enc)

	dec := NewDecoder(&buf)
	got := DecodeStatResponse(dec)
	if got != resp {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, resp)
	}
}

func TestListdirStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sender := NewListdirSender(&buf)

	entries := []ListdirEntry{
		{Name: "a.txt", Stat: Stat{Size: 10, Mode: 0o100644}},
		{Name: "subdir", Stat: Stat{Size: 4096, Mode: 0o040755}},
		{Name: "b.txt", Stat: Stat{Size: 0, Mode: 0o100644}},
	}
	for _, e := range entries {
		if err := sender.Send(e); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if err := sender.End(); err != nil {
		t.Fatalf("end: %v", err)
	}

	receiver := NewListdirReceiver(&buf)
	var got []ListdirEntry
	for {
		entry, ok, err := receiver.RecvNext()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, entry)
	}

	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d mismatch: got %+v, want %+v", i, got[i], entries[i])
		}
	}

	// Another RecvNext after EOF must keep returning ok == false.
	_, ok, err := receiver.RecvNext()
	if err != nil || ok {
		t.Fatalf("recv after EOF: ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestStatusForErrorAndBack(t *testing.T) {
	statuses := []Status{
		StatusNoSuchFileOrDirectory,
		StatusPermissionDenied,
		StatusFileExists,
		StatusNotADirectory,
		StatusIsADirectory,
		StatusInvalidArgument,
		StatusDirectoryNotEmpty,
	}
	for _, status := range statuses {
		err := ErrorForStatus(status)
		if err == nil {
			t.Fatalf("ErrorForStatus(%d) returned nil", status)
		}
		if got := StatusForError(err); got != status {
			t.Fatalf("StatusForError(ErrorForStatus(%d)) = %d, want %d", status, got, status)
		}
	}
}

func TestErrorForStatusUnknownMapsToInvalidArgument(t *testing.T) {
	if got := ErrorForStatus(Status(250)); got != ErrInvalidArgument {
		t.Fatalf("unknown status mapped to %v, want ErrInvalidArgument", got)
	}
}

func TestGetBytesRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.PutUint64(maxFieldLength + 1)

	dec := NewDecoder(&buf)
	dec.GetBytes()
	if dec.Err() == nil {
		t.Fatal("expected error for oversized field length")
	}
}
