// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package diag exposes a running mount's cache.Stats snapshot over a
// Unix domain socket, so cmd/adbfsm-stats can attach to a live mount
// without sharing process memory. The protocol is a single
// newline-delimited JSON request followed by a single newline-delimited
// JSON response per connection, the same shape observe's daemon socket
// uses for its list/status queries.
package diag

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/mrizaln/adbfsm/internal/cache"
)

// StatusRequest is the sole request this socket accepts. Action must
// be "status"; the field exists so the protocol can grow additional
// actions without a wire break, mirroring observe's ListRequest.
type StatusRequest struct {
	Action string `json:"action"`
}

// StatusResponse carries a cache.Stats snapshot plus the mount's
// identifying details.
type StatusResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Mountpoint string `json:"mountpoint,omitempty"`
	Uptime     string `json:"uptime,omitempty"`

	ResidentPages int    `json:"resident_pages"`
	MaxPages      int    `json:"max_pages"`
	OrphanPages   int    `json:"orphan_pages"`
	InflightFills int    `json:"inflight_fills"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	FillErrors    uint64 `json:"fill_errors"`
}

// StatsFunc returns the current cache statistics for the mount being
// served. Supplied by cmd/adbfsm so the diag server never needs to
// reach into internal/fsadapter directly.
type StatsFunc func() cache.Stats

// Server answers StatusRequest queries on a Unix socket. It is
// intended to run for the lifetime of a single mount, alongside the
// FUSE server goroutine.
type Server struct {
	socketPath string
	mountpoint string
	started    time.Time
	stats      StatsFunc
	logger     *slog.Logger

	listener net.Listener
}

// New binds a Unix socket at socketPath. The socket file is removed
// first if a stale one exists (e.g. left behind by an unmounted, killed
// process), matching the teardown-then-rebind pattern daemon sockets
// use elsewhere in this codebase.
func New(socketPath, mountpoint string, stats StatsFunc, logger *slog.Logger) (*Server, error) {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("diag: removing stale socket %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("diag: listening on %s: %w", socketPath, err)
	}

	return &Server{
		socketPath: socketPath,
		mountpoint: mountpoint,
		started:    time.Now(),
		stats:      stats,
		logger:     logger,
		listener:   listener,
	}, nil
}

// Serve accepts connections until ctx is cancelled, answering one
// StatusRequest per connection before closing it. Unlike rpc.Server,
// the diag socket serves many short-lived clients concurrently rather
// than one long-lived session.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("diag: accept: %w", err)
		}
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}

	var req StatusRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeError(conn, fmt.Sprintf("malformed request: %v", err))
		return
	}
	if req.Action != "status" {
		s.writeError(conn, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	snap := s.stats()
	resp := StatusResponse{
		OK:            true,
		Mountpoint:    s.mountpoint,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		ResidentPages: snap.ResidentPages,
		MaxPages:      snap.MaxPages,
		OrphanPages:   snap.OrphanPages,
		InflightFills: snap.InflightFills,
		Hits:          snap.Hits,
		Misses:        snap.Misses,
		FillErrors:    snap.FillErrors,
	}
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Warn("diag: writing response", "err", err)
	}
}

func (s *Server) writeError(conn net.Conn, msg string) {
	_ = json.NewEncoder(conn).Encode(StatusResponse{OK: false, Error: msg})
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	os.Remove(s.socketPath)
	return err
}

// Query connects to the diag socket at socketPath, issues a status
// request, and returns the decoded response. Used by cmd/adbfsm-stats
// to poll a running mount.
func Query(ctx context.Context, socketPath string) (StatusResponse, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("diag: dialing %s: %w", socketPath, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(StatusRequest{Action: "status"}); err != nil {
		return StatusResponse{}, fmt.Errorf("diag: sending request: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return StatusResponse{}, fmt.Errorf("diag: reading response: %w", err)
	}

	var resp StatusResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return StatusResponse{}, fmt.Errorf("diag: unmarshalling response: %w", err)
	}
	if !resp.OK {
		return StatusResponse{}, fmt.Errorf("diag: %s", resp.Error)
	}
	return resp, nil
}
