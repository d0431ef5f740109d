// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// adbfsm mounts a remote device's filesystem locally over a
// length-framed RPC connection to adbfsm-server, through one of three
// transports: an adb port forward (the default, for a device attached
// over USB or adb TCP/IP mode), a direct TCP dial, or an SSH tunnel.
//
// On SIGINT/SIGTERM it flushes every orphaned dirty page before
// unmounting, so a write that was evicted from the cache but never
// acknowledged by the remote side is not silently lost.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	"github.com/mrizaln/adbfsm/internal/config"
	"github.com/mrizaln/adbfsm/internal/devicepicker"
	"github.com/mrizaln/adbfsm/internal/diag"
	"github.com/mrizaln/adbfsm/internal/fsadapter"
	"github.com/mrizaln/adbfsm/internal/rpc"
	"github.com/mrizaln/adbfsm/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "adbfsm: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		mountpoint   string
		serial       string
		deviceFilter string
		remotePort   int
		address      string
		sshAddress   string
		sshRemote    string
		sshUser      string
		sshKnownHost string
		allowOther   bool
		jsonLog      bool
		diagSocket   string
		help         bool
	)

	flagSet := pflag.NewFlagSet("adbfsm", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to a JSONC or YAML config file")
	flagSet.StringVar(&serial, "serial", "", "adb device serial (skips the picker)")
	flagSet.StringVar(&deviceFilter, "device-filter", "", "fuzzy filter for the device picker when more than one is attached")
	flagSet.IntVar(&remotePort, "remote-port", 6839, "port adbfsm-server listens on inside the device")
	flagSet.StringVar(&address, "address", "", "dial adbfsm-server directly at this address instead of through adb")
	flagSet.StringVar(&sshAddress, "ssh-address", "", "SSH host:port to tunnel through instead of adb")
	flagSet.StringVar(&sshRemote, "ssh-remote-address", "127.0.0.1:6839", "adbfsm-server address as seen from the SSH host")
	flagSet.StringVar(&sshUser, "ssh-user", "", "SSH username")
	flagSet.StringVar(&sshKnownHost, "ssh-known-hosts", "", "known_hosts file for SSH host key verification")
	flagSet.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount")
	flagSet.BoolVar(&jsonLog, "json-log", false, "emit structured logs as JSON instead of text")
	flagSet.StringVar(&diagSocket, "diag-socket", "", "expose cache diagnostics on this Unix socket")
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

	args := flagSet.Args()
	if len(args) != 1 {
		return fmt.Errorf("usage: adbfsm [flags] <mountpoint>")
	}
	mountpoint = args[0]

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if !flagSet.Changed("remote-port") && cfg.RemotePort != 0 {
		remotePort = cfg.RemotePort
	}
	applyFlagOverrides(&cfg, serial, remotePort, address, sshAddress, sshRemote, sshUser, sshKnownHost, allowOther, jsonLog, diagSocket)

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var logger *slog.Logger
	if cfg.JSONLog {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialer, err := resolveDialer(ctx, cfg, deviceFilter)
	if err != nil {
		return err
	}

	conn, err := dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("adbfsm: connecting to adbfsm-server: %w", err)
	}

	client, err := rpc.NewClient(conn)
	if err != nil {
		return fmt.Errorf("adbfsm: handshake: %w", err)
	}

	resolved, err := cfg.Resolve(fsadapter.DefaultPageSize, fsadapter.DefaultMaxPages)
	if err != nil {
		client.Close()
		return err
	}

	mounted, err := fsadapter.Mount(fsadapter.Options{
		Mountpoint: mountpoint,
		Client:     client,
		PageSize:   resolved.PageSize,
		MaxPages:   resolved.MaxPages,
		AllowOther: cfg.AllowOther,
		Logger:     logger,
	})
	if err != nil {
		client.Close()
		return err
	}

	var diagServer *diag.Server
	if cfg.DiagSocket != "" {
		diagServer, err = diag.New(cfg.DiagSocket, mountpoint, mounted.Stats, logger)
		if err != nil {
			logger.Warn("adbfsm: diagnostics socket unavailable", "err", err)
		} else {
			go diagServer.Serve(ctx)
			defer diagServer.Close()
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info("adbfsm: shutting down, flushing orphaned pages")
		flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		mounted.FlushOrphans(flushCtx)
		mounted.Unmount()
	}()

	mounted.Wait()
	return client.Close()
}

func applyFlagOverrides(cfg *config.Config, serial string, remotePort int, address, sshAddress, sshRemote, sshUser, sshKnownHost string, allowOther, jsonLog bool, diagSocket string) {
	if serial != "" {
		cfg.Transport = config.TransportADB
		cfg.Serial = serial
	}
	if remotePort != 0 {
		cfg.RemotePort = remotePort
	}
	if address != "" {
		cfg.Transport = config.TransportTCP
		cfg.Address = address
	}
	if sshAddress != "" {
		cfg.Transport = config.TransportSSH
		cfg.SSHAddress = sshAddress
		cfg.SSHRemoteAddress = sshRemote
		cfg.SSHUser = sshUser
		cfg.SSHKnownHosts = sshKnownHost
	}
	if allowOther {
		cfg.AllowOther = true
	}
	if jsonLog {
		cfg.JSONLog = true
	}
	if diagSocket != "" {
		cfg.DiagSocket = diagSocket
	}
}

// resolveDialer builds the transport.Dialer selected by cfg.Transport.
// For the ADB transport, it resolves which device to talk to: an
// explicit cfg.Serial wins outright, otherwise adb's attached-device
// list is narrowed by deviceFilter and, if still ambiguous and stdin
// is a terminal, an interactive numbered prompt.
func resolveDialer(ctx context.Context, cfg config.Config, deviceFilter string) (transport.Dialer, error) {
	switch cfg.Transport {
	case config.TransportTCP:
		if cfg.Address == "" {
			return nil, fmt.Errorf("adbfsm: --address is required for the tcp transport")
		}
		return transport.TCP{Address: cfg.Address}, nil

	case config.TransportSSH:
		if cfg.SSHAddress == "" {
			return nil, fmt.Errorf("adbfsm: --ssh-address is required for the ssh transport")
		}
		sshConfig, err := buildSSHConfig(cfg)
		if err != nil {
			return nil, err
		}
		return transport.SSH{
			Address:       cfg.SSHAddress,
			RemoteAddress: cfg.SSHRemoteAddress,
			Config:        sshConfig,
		}, nil

	case config.TransportADB, "":
		serial := cfg.Serial
		if serial == "" {
			resolvedSerial, err := pickDevice(ctx, deviceFilter)
			if err != nil {
				return nil, err
			}
			serial = resolvedSerial
		}
		return transport.ADB{Serial: serial, RemotePort: cfg.RemotePort}, nil

	default:
		return nil, fmt.Errorf("adbfsm: unknown transport %q", cfg.Transport)
	}
}

func pickDevice(ctx context.Context, filter string) (string, error) {
	devices, err := devicepicker.List(ctx, "")
	if err != nil {
		return "", err
	}

	device, err := devicepicker.Resolve(devices, filter)
	if err == nil {
		return device.Serial, nil
	}

	ambiguous, ok := err.(*devicepicker.ErrAmbiguous)
	if !ok {
		return "", err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("%w (pass --serial or --device-filter)", ambiguous)
	}

	picked, err := devicepicker.Prompt(os.Stdin, os.Stderr, ambiguous.Candidates)
	if err != nil {
		return "", err
	}
	return picked.Serial, nil
}

// buildSSHConfig assembles an *ssh.ClientConfig from the local SSH
// agent for authentication and a known_hosts file for host key
// verification, the same pair an interactive `ssh` invocation relies
// on by default.
func buildSSHConfig(cfg config.Config) (*ssh.ClientConfig, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("adbfsm: SSH_AUTH_SOCK is not set, no ssh-agent to authenticate with")
	}
	agentConn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("adbfsm: connecting to ssh-agent: %w", err)
	}
	agentClient := agent.NewClient(agentConn)

	knownHostsPath := cfg.SSHKnownHosts
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("adbfsm: resolving default known_hosts path: %w", err)
		}
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}
	hostKeyCallback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("adbfsm: loading known_hosts %s: %w", knownHostsPath, err)
	}

	user := cfg.SSHUser
	if user == "" {
		user = os.Getenv("USER")
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}, nil
}
