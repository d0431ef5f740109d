// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devicepicker

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompt writes a numbered list of candidates to out and reads a
// selection index from in. Used as the fallback when Resolve reports
// ErrAmbiguous and the caller's stdin is a terminal.
func Prompt(in io.Reader, out io.Writer, candidates []Device) (Device, error) {
	fmt.Fprintln(out, "multiple devices attached, pick one:")
	for i, d := range candidates {
		fmt.Fprintf(out, "  %d) %s\n", i+1, d)
	}
	fmt.Fprint(out, "> ")

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil {
		return Device{}, fmt.Errorf("devicepicker: reading selection: %w", err)
	}
	index, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || index < 1 || index > len(candidates) {
		return Device{}, fmt.Errorf("devicepicker: invalid selection %q", strings.TrimSpace(line))
	}
	return candidates[index-1], nil
}
