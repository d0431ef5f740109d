// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net"

	"golang.org/x/crypto/ssh"
)

// SSH dials a helper reachable only from a remote host, by opening an
// SSH connection to that host and then asking the remote sshd to
// forward a channel to RemoteAddress — equivalent to `ssh -L`, but
// driven from inside the process instead of a separate subprocess.
type SSH struct {
	// Address is the SSH server to connect to, host:port.
	Address string

	// RemoteAddress is where the helper listens, from the remote
	// host's point of view (typically 127.0.0.1:port).
	RemoteAddress string

	Config *ssh.ClientConfig
}

// Dial implements Dialer.
func (s SSH) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	dialer := net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", s.Address)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing ssh host %s: %w", s.Address, err)
	}

	sshConnChan, chans, reqs, err := ssh.NewClientConn(rawConn, s.Address, s.Config)
	if err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("transport: ssh handshake with %s: %w", s.Address, err)
	}
	client := ssh.NewClient(sshConnChan, chans, reqs)

	remoteConn, err := client.Dial("tcp", s.RemoteAddress)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transport: forwarding to %s over ssh: %w", s.RemoteAddress, err)
	}

	return &sshConn{Conn: remoteConn, client: client}, nil
}

// sshConn closes both the forwarded channel and the SSH client that
// owns it, since this transport opens one SSH connection per Dial
// call rather than multiplexing several tunnels over one.
type sshConn struct {
	net.Conn
	client *ssh.Client
}

func (c *sshConn) Close() error {
	err := c.Conn.Close()
	c.client.Close()
	return err
}
