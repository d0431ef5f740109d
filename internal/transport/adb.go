// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"os/exec"
)

// ADB dials a helper listening on a device's loopback interface by
// shelling out to the adb client to forward a local port to it, then
// connecting to that local port. This is the default transport for a
// device attached over USB or adb's own TCP/IP mode.
type ADB struct {
	// Serial selects the device when more than one is attached to
	// the adb server. Empty means "the only attached device" and is
	// rejected by adb itself if there is more than one.
	Serial string

	// RemotePort is the TCP port adbfsm-server listens on inside the
	// device's network namespace.
	RemotePort int

	// Binary is the adb executable to invoke. Defaults to "adb" on
	// the current PATH.
	Binary string
}

// Dial implements Dialer. It reserves an ephemeral local port,
// installs an `adb forward`, and connects to it. The forward is torn
// down when the returned connection is closed.
func (a ADB) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	localAddr, err := reserveLocalPort()
	if err != nil {
		return nil, fmt.Errorf("transport: reserving local port for adb forward: %w", err)
	}

	args := a.forwardArgs(localAddr.Port)
	if out, err := exec.CommandContext(ctx, a.binary(), args...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("transport: adb %v: %w: %s", args, err, out)
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", localAddr.String())
	if err != nil {
		a.removeForward(localAddr.Port)
		return nil, fmt.Errorf("transport: connecting through adb forward: %w", err)
	}

	return &adbConn{Conn: conn, transport: a, localPort: localAddr.Port}, nil
}

func (a ADB) binary() string {
	if a.Binary != "" {
		return a.Binary
	}
	return "adb"
}

func (a ADB) forwardArgs(localPort int) []string {
	args := a.deviceArgs()
	return append(args, "forward", fmt.Sprintf("tcp:%d", localPort), fmt.Sprintf("tcp:%d", a.RemotePort))
}

func (a ADB) removeForwardArgs(localPort int) []string {
	args := a.deviceArgs()
	return append(args, "forward", "--remove", fmt.Sprintf("tcp:%d", localPort))
}

func (a ADB) deviceArgs() []string {
	if a.Serial == "" {
		return nil
	}
	return []string{"-s", a.Serial}
}

// removeForward best-effort tears down the port forward; failure here
// is not surfaced since the caller is already handling a dial error.
func (a ADB) removeForward(localPort int) {
	_ = exec.Command(a.binary(), a.removeForwardArgs(localPort)...).Run()
}

// adbConn wraps the forwarded TCP connection so closing it also tears
// down the adb port forward, which otherwise leaks for the lifetime
// of the adb server.
type adbConn struct {
	net.Conn
	transport ADB
	localPort int
}

func (c *adbConn) Close() error {
	err := c.Conn.Close()
	c.transport.removeForward(c.localPort)
	return err
}

// reserveLocalPort picks an unused loopback TCP port by briefly
// binding to port 0 and reading back what the kernel assigned.
func reserveLocalPort() (*net.TCPAddr, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr), nil
}
