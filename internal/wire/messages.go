// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// Stat mirrors the fields of a POSIX stat(2) result that the helper
// exposes to the client. It follows lstat semantics: the server never
// dereferences a symlink to produce it.
type Stat struct {
	Size  int64
	Links uint64
	Mtime Timespec
	Atime Timespec
	Ctime Timespec
	Mode  uint32
	UID   uint32
	GID   uint32
}

// Encode writes the Stat payload.
func (s Stat) Encode(e *Encoder) {
	e.PutInt64(s.Size)
	e.PutUint64(s.Links)
	e.PutTimespec(s.Mtime)
	e.PutTimespec(s.Atime)
	e.PutTimespec(s.Ctime)
	e.PutUint64(uint64(s.Mode))
	e.PutUint64(uint64(s.UID))
	e.PutUint64(uint64(s.GID))
}

// DecodeStat reads a Stat payload.
func DecodeStat(d *Decoder) Stat {
	return Stat{
		Size:  d.GetInt64(),
		Links: d.GetUint64(),
		Mtime: d.GetTimespec(),
		Atime: d.GetTimespec(),
		Ctime: d.GetTimespec(),
		Mode:  uint32(d.GetUint64()),
		UID:   uint32(d.GetUint64()),
		GID:   uint32(d.GetUint64()),
	}
}

// --- Requests, one struct per procedure, fields in declaration order ---

type ListdirRequest struct{ Path string }
type StatRequest struct{ Path string }
type ReadlinkRequest struct{ Path string }
type MknodRequest struct{ Path string }
type MkdirRequest struct{ Path string }
type UnlinkRequest struct{ Path string }
type RmdirRequest struct{ Path string }
type RenameRequest struct {
	From  string
	To    string
	Flags uint32
}
type TruncateRequest struct {
	Path string
	Size int64
}
type ReadRequest struct {
	Path   string
	Offset int64
	Size   uint64
}
type WriteRequest struct {
	Path   string
	Offset int64
	Bytes  []byte
}
type UtimensRequest struct {
	Path  string
	Atime Timespec
	Mtime Timespec
}
type CopyFileRangeRequest struct {
	InPath    string
	InOffset  int64
	OutPath   string
	OutOffset int64
	Size      uint64
}

func (r ListdirRequest) Encode(e *Encoder)  { e.PutString(r.Path) }
func (r StatRequest) Encode(e *Encoder)     { e.PutString(r.Path) }
func (r ReadlinkRequest) Encode(e *Encoder) { e.PutString(r.Path) }
func (r MknodRequest) Encode(e *Encoder)    { e.PutString(r.Path) }
func (r MkdirRequest) Encode(e *Encoder)    { e.PutString(r.Path) }
func (r UnlinkRequest) Encode(e *Encoder)   { e.PutString(r.Path) }
func (r RmdirRequest) Encode(e *Encoder)    { e.PutString(r.Path) }
func (r RenameRequest) Encode(e *Encoder) {
	e.PutString(r.From)
	e.PutString(r.To)
	e.PutUint64(uint64(r.Flags))
}
func (r TruncateRequest) Encode(e *Encoder) {
	e.PutString(r.Path)
	e.PutInt64(r.Size)
}
func (r ReadRequest) Encode(e *Encoder) {
	e.PutString(r.Path)
	e.PutInt64(r.Offset)
	e.PutUint64(r.Size)
}
func (r WriteRequest) Encode(e *Encoder) {
	e.PutString(r.Path)
	e.PutInt64(r.Offset)
	e.PutBytes(r.Bytes)
}
func (r UtimensRequest) Encode(e *Encoder) {
	e.PutString(r.Path)
	e.PutTimespec(r.Atime)
	e.PutTimespec(r.Mtime)
}
func (r CopyFileRangeRequest) Encode(e *Encoder) {
	e.PutString(r.InPath)
	e.PutInt64(r.InOffset)
	e.PutString(r.OutPath)
	e.PutInt64(r.OutOffset)
	e.PutUint64(r.Size)
}

func DecodeListdirRequest(d *Decoder) ListdirRequest   { return ListdirRequest{Path: d.GetString()} }
func DecodeStatRequest(d *Decoder) StatRequest         { return StatRequest{Path: d.GetString()} }
func DecodeReadlinkRequest(d *Decoder) ReadlinkRequest { return ReadlinkRequest{Path: d.GetString()} }
func DecodeMknodRequest(d *Decoder) MknodRequest       { return MknodRequest{Path: d.GetString()} }
func DecodeMkdirRequest(d *Decoder) MkdirRequest       { return MkdirRequest{Path: d.GetString()} }
func DecodeUnlinkRequest(d *Decoder) UnlinkRequest     { return UnlinkRequest{Path: d.GetString()} }
func DecodeRmdirRequest(d *Decoder) RmdirRequest       { return RmdirRequest{Path: d.GetString()} }
func DecodeRenameRequest(d *Decoder) RenameRequest {
	return RenameRequest{From: d.GetString(), To: d.GetString(), Flags: uint32(d.GetUint64())}
}
func DecodeTruncateRequest(d *Decoder) TruncateRequest {
	return TruncateRequest{Path: d.GetString(), Size: d.GetInt64()}
}
func DecodeReadRequest(d *Decoder) ReadRequest {
	return ReadRequest{Path: d.GetString(), Offset: d.GetInt64(), Size: d.GetUint64()}
}
func DecodeWriteRequest(d *Decoder) WriteRequest {
	return WriteRequest{Path: d.GetString(), Offset: d.GetInt64(), Bytes: d.GetBytes()}
}
func DecodeUtimensRequest(d *Decoder) UtimensRequest {
	return UtimensRequest{Path: d.GetString(), Atime: d.GetTimespec(), Mtime: d.GetTimespec()}
}
func DecodeCopyFileRangeRequest(d *Decoder) CopyFileRangeRequest {
	return CopyFileRangeRequest{
		InPath:    d.GetString(),
		InOffset:  d.GetInt64(),
		OutPath:   d.GetString(),
		OutOffset: d.GetInt64(),
		Size:      d.GetUint64(),
	}
}

// --- Responses. Empty-payload responses carry no fields. ---

type ListdirEntry struct {
	Name string
	Stat Stat
}

type StatResponse struct{ Stat Stat }
type ReadlinkResponse struct{ Target string }
type MknodResponse struct{}
type MkdirResponse struct{}
type UnlinkResponse struct{}
type RmdirResponse struct{}
type RenameResponse struct{}
type TruncateResponse struct{}
type ReadResponse struct{ Data []byte }
type WriteResponse struct{ Size uint64 }
type UtimensResponse struct{}
type CopyFileRangeResponse struct{ Size uint64 }

func (r StatResponse) Encode(e *Encoder)          { r.Stat.Encode(e) }
func (r ReadlinkResponse) Encode(e *Encoder)      { e.PutString(r.Target) }
func (r MknodResponse) Encode(e *Encoder)         {}
func (r MkdirResponse) Encode(e *Encoder)         {}
func (r UnlinkResponse) Encode(e *Encoder)        {}
func (r RmdirResponse) Encode(e *Encoder)         {}
func (r RenameResponse) Encode(e *Encoder)        {}
func (r TruncateResponse) Encode(e *Encoder)      {}
func (r ReadResponse) Encode(e *Encoder)          { e.PutBytes(r.Data) }
func (r WriteResponse) Encode(e *Encoder)         { e.PutUint64(r.Size) }
func (r UtimensResponse) Encode(e *Encoder)       {}
func (r CopyFileRangeResponse) Encode(e *Encoder) { e.PutUint64(r.Size) }

func DecodeStatResponse(d *Decoder) StatResponse { return StatResponse{Stat: DecodeStat(d)} }
func DecodeReadlinkResponse(d *Decoder) ReadlinkResponse {
	return ReadlinkResponse{Target: d.GetString()}
}
func DecodeMknodResponse(d *Decoder) MknodResponse       { return MknodResponse{} }
func DecodeMkdirResponse(d *Decoder) MkdirResponse       { return MkdirResponse{} }
func DecodeUnlinkResponse(d *Decoder) UnlinkResponse     { return UnlinkResponse{} }
func DecodeRmdirResponse(d *Decoder) RmdirResponse       { return RmdirResponse{} }
func DecodeRenameResponse(d *Decoder) RenameResponse     { return RenameResponse{} }
func DecodeTruncateResponse(d *Decoder) TruncateResponse { return TruncateResponse{} }
func DecodeReadResponse(d *Decoder) ReadResponse         { return ReadResponse{Data: d.GetBytes()} }
func DecodeWriteResponse(d *Decoder) WriteResponse       { return WriteResponse{Size: d.GetUint64()} }
func DecodeUtimensResponse(d *Decoder) UtimensResponse   { return UtimensResponse{} }
func DecodeCopyFileRangeResponse(d *Decoder) CopyFileRangeResponse {
	return CopyFileRangeResponse{Size: d.GetUint64()}
}
