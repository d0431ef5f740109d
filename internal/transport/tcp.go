// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"net"
)

// TCP dials a helper that is already reachable at Address, such as
// one started with adbfsm-server --listen and reached over a VPN or a
// pre-existing adb forward.
type TCP struct {
	Address string
}

// Dial implements Dialer.
func (t TCP) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", t.Address, err)
	}
	return conn, nil
}
