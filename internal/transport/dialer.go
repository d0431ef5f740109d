// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"io"
)

// Dialer produces a connected stream to a running helper process.
// Implementations may dial more than once over their lifetime; each
// call must return an independent connection.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}
