// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/mrizaln/adbfsm/internal/wire"
)

// Server accepts a single connection at a time from listener, shakes
// hands, and dispatches requests to handler until the client closes
// the connection. It then accepts the next one.
//
// The helper process is meant to serve exactly one adbfsm mount at a
// time, so the server never fans out across goroutines per
// connection — this mirrors the "single accept loop, backlog of one"
// shape in the protocol's design rather than a general-purpose
// concurrent RPC server.
type Server struct {
	listener net.Listener
	handler  Handler
	logger   *slog.Logger
}

// NewServer creates a server that will accept connections on
// listener and dispatch them to handler.
func NewServer(listener net.Listener, handler Handler, logger *slog.Logger) *Server {
	return &Server{listener: listener, handler: handler, logger: logger}
}

// Serve accepts and serves connections until ctx is cancelled or the
// listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("rpc: accept: %w", err)
		}

		sessionID := uuid.NewString()
		s.logger.Info("rpc session accepted", "session", sessionID, "remote", conn.RemoteAddr())
		s.serveConn(ctx, conn, sessionID)
		s.logger.Info("rpc session closed", "session", sessionID)
	}
}

// serveConn performs the handshake and then dispatches requests until
// the connection errors or the client disconnects.
func (s *Server) serveConn(ctx context.Context, conn net.Conn, sessionID string) {
	defer conn.Close()

	if _, err := conn.Write([]byte(wire.ServerReadyString)); err != nil {
		s.logger.Warn("rpc handshake write failed", "session", sessionID, "error", err)
		return
	}

	enc := wire.NewEncoder(conn)
	dec := wire.NewDecoder(conn)

	for {
		if ctx.Err() != nil {
			return
		}

		proc := wire.Procedure(dec.GetByte())
		if err := dec.Err(); err != nil {
			return // connection closed or read error: nothing left to log
		}

		if err := s.dispatch(ctx, proc, dec, enc); err != nil {
			s.logger.Warn("rpc dispatch failed", "session", sessionID, "procedure", proc, "error", err)
			return
		}
	}
}

// dispatch decodes one request, invokes the matching Handler method,
// and encodes the response. It returns an error only for a transport
// failure (the connection should be closed); a remote-operation
// failure is encoded as a Status byte and is not an error here.
func (s *Server) dispatch(ctx context.Context, proc wire.Procedure, dec *wire.Decoder, enc *wire.Encoder) error {
	switch proc {
	case wire.ProcListdir:
		req := wire.DecodeListdirRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		entries, err := s.handler.Listdir(ctx, req)
		if err != nil {
			return writeStatus(enc, err)
		}
		enc.PutByte(byte(wire.StatusSuccess))
		sender := wire.NewListdirSender(enc)
		for _, entry := range entries {
			if err := sender.Send(entry); err != nil {
				return err
			}
		}
		return sender.End()

	case wire.ProcStat:
		req := wire.DecodeStatRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Stat(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcReadlink:
		req := wire.DecodeReadlinkRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Readlink(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcMknod:
		req := wire.DecodeMknodRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Mknod(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcMkdir:
		req := wire.DecodeMkdirRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Mkdir(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcUnlink:
		req := wire.DecodeUnlinkRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Unlink(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcRmdir:
		req := wire.DecodeRmdirRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Rmdir(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcRename:
		req := wire.DecodeRenameRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Rename(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcTruncate:
		req := wire.DecodeTruncateRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Truncate(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcRead:
		req := wire.DecodeReadRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Read(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcWrite:
		req := wire.DecodeWriteRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Write(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcUtimens:
		req := wire.DecodeUtimensRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.Utimens(ctx, req)
		return writeResponse(enc, resp, err)

	case wire.ProcCopyFileRange:
		req := wire.DecodeCopyFileRangeRequest(dec)
		if err := dec.Err(); err != nil {
			return err
		}
		resp, err := s.handler.CopyFileRange(ctx, req)
		return writeResponse(enc, resp, err)

	default:
		enc.PutByte(byte(wire.StatusInvalidArgument))
		return enc.Err()
	}
}

// wireResponse is anything with an Encode method, satisfied by every
// response type in internal/wire.
type wireResponse interface {
	Encode(e *wire.Encoder)
}

// writeResponse writes the status byte for err (wire.StatusSuccess if
// nil) followed by resp's payload if the operation succeeded.
func writeResponse(enc *wire.Encoder, resp wireResponse, err error) error {
	if err != nil {
		return writeStatus(enc, err)
	}
	enc.PutByte(byte(wire.StatusSuccess))
	resp.Encode(enc)
	return enc.Err()
}

func writeStatus(enc *wire.Encoder, err error) error {
	enc.PutByte(byte(wire.StatusForError(err)))
	return enc.Err()
}
