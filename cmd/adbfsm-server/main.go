// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// adbfsm-server is the helper process that runs inside the device's
// shell (or any POSIX environment reachable by one of adbfsm's
// transports). It serves the thirteen RPC procedures against a real
// directory tree over a TCP listener, which adbfsm itself reaches
// through an adb forward, a direct TCP dial, or an SSH tunnel.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mrizaln/adbfsm/internal/remotefs"
	"github.com/mrizaln/adbfsm/internal/rpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "adbfsm-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		root          string
		listenAddr    string
		maxOpenFiles  int
		fdIdleTimeout time.Duration
		jsonLog       bool
		help          bool
	)

	flagSet := pflag.NewFlagSet("adbfsm-server", pflag.ContinueOnError)
	flagSet.StringVar(&root, "root", "/", "directory tree to serve")
	flagSet.StringVar(&listenAddr, "listen", "127.0.0.1:6839", "address to listen on")
	flagSet.IntVar(&maxOpenFiles, "max-open-files", remotefs.DefaultMaxOpenFiles, "resident file descriptor cache size")
	flagSet.DurationVar(&fdIdleTimeout, "fd-idle-timeout", remotefs.DefaultFDIdleTimeout, "how long an unused descriptor may stay cached")
	flagSet.BoolVar(&jsonLog, "json-log", false, "emit structured logs as JSON instead of text")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if help {
		flagSet.PrintDefaults()
		return nil
	}

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var logger *slog.Logger
	if jsonLog {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
	}

	handler := remotefs.New(remotefs.Config{
		Root:          root,
		MaxOpenFiles:  maxOpenFiles,
		FDIdleTimeout: fdIdleTimeout,
		Logger:        logger,
	})
	defer handler.Close()

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenAddr, err)
	}
	defer listener.Close()

	logger.Info("adbfsm-server listening", "addr", listener.Addr(), "root", root)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := rpc.NewServer(listener, handler, logger)
	return server.Serve(ctx)
}
