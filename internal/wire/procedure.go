// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Procedure identifies one of the thirteen remote operations. Tags
// are stable wire values — do not renumber existing entries.
type Procedure byte

const (
	ProcListdir       Procedure = 1
	ProcStat          Procedure = 2
	ProcReadlink      Procedure = 3
	ProcMknod         Procedure = 4
	ProcMkdir         Procedure = 5
	ProcUnlink        Procedure = 6
	ProcRmdir         Procedure = 7
	ProcRename        Procedure = 8
	ProcTruncate      Procedure = 9
	ProcRead          Procedure = 10
	ProcWrite         Procedure = 11
	ProcUtimens       Procedure = 12
	ProcCopyFileRange Procedure = 13
)

func (p Procedure) String() string {
	switch p {
	case ProcListdir:
		return "Listdir"
	case ProcStat:
		return "Stat"
	case ProcReadlink:
		return "Readlink"
	case ProcMknod:
		return "Mknod"
	case ProcMkdir:
		return "Mkdir"
	case ProcUnlink:
		return "Unlink"
	case ProcRmdir:
		return "Rmdir"
	case ProcRename:
		return "Rename"
	case ProcTruncate:
		return "Truncate"
	case ProcRead:
		return "Read"
	case ProcWrite:
		return "Write"
	case ProcUtimens:
		return "Utimens"
	case ProcCopyFileRange:
		return "CopyFileRange"
	default:
		return fmt.Sprintf("Procedure(%d)", byte(p))
	}
}

// Valid reports whether p is one of the thirteen defined procedures.
func (p Procedure) Valid() bool {
	return p >= ProcListdir && p <= ProcCopyFileRange
}

// ServerReadyString is the literal handshake greeting the server
// writes immediately after accepting a connection.
const ServerReadyString = "SERVER_IS_READY"
