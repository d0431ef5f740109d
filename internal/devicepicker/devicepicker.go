// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package devicepicker resolves which attached device cmd/adbfsm
// should mount when the user did not pin one down with --serial: it
// shells out to `adb devices -l`, and when more than one device is
// attached, narrows the choice with an optional fuzzy filter or an
// interactive numbered prompt.
package devicepicker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Device describes one entry from `adb devices -l`.
type Device struct {
	Serial string
	State  string // "device", "offline", "unauthorized", ...
	Model  string // from the "model:" key=value pair, if present
}

// String renders a Device the way it is shown in a picker prompt.
func (d Device) String() string {
	if d.Model == "" {
		return fmt.Sprintf("%s [%s]", d.Serial, d.State)
	}
	return fmt.Sprintf("%s [%s] %s", d.Serial, d.State, d.Model)
}

// List runs `adb devices -l` and parses its output. binary is the adb
// executable to invoke; empty defaults to "adb" on PATH.
func List(ctx context.Context, binary string) ([]Device, error) {
	if binary == "" {
		binary = "adb"
	}

	out, err := exec.CommandContext(ctx, binary, "devices", "-l").Output()
	if err != nil {
		return nil, fmt.Errorf("devicepicker: running %s devices -l: %w", binary, err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices attached") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		device := Device{Serial: fields[0], State: fields[1]}
		for _, field := range fields[2:] {
			if value, ok := strings.CutPrefix(field, "model:"); ok {
				device.Model = value
			}
		}
		devices = append(devices, device)
	}
	return devices, scanner.Err()
}

// ErrNoDevices is returned by Resolve when adb reports no attached
// devices at all.
var ErrNoDevices = fmt.Errorf("devicepicker: no devices attached")

// ErrAmbiguous is returned by Resolve when more than one device
// matches and the caller has no way to narrow the choice further
// (non-interactive, no filter, no --serial).
type ErrAmbiguous struct {
	Candidates []Device
}

func (e *ErrAmbiguous) Error() string {
	names := make([]string, len(e.Candidates))
	for i, d := range e.Candidates {
		names[i] = d.String()
	}
	return fmt.Sprintf("devicepicker: ambiguous device selection, candidates: %s", strings.Join(names, "; "))
}

// Resolve narrows devices to exactly one using filter as a fuzzy
// pattern against the serial and model. An empty filter matches
// everything, in which case a single attached device is chosen
// automatically but two or more is an ErrAmbiguous.
func Resolve(devices []Device, filter string) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoDevices
	}
	if filter == "" {
		if len(devices) == 1 {
			return devices[0], nil
		}
		return Device{}, &ErrAmbiguous{Candidates: devices}
	}

	type scored struct {
		device Device
		score  int
	}
	var ranked []scored
	for _, d := range devices {
		score, ok := fuzzyScore(d.Serial+" "+d.Model, filter)
		if ok {
			ranked = append(ranked, scored{d, score})
		}
	}
	if len(ranked) == 0 {
		return Device{}, fmt.Errorf("devicepicker: no device matches filter %q", filter)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > 1 && ranked[0].score == ranked[1].score {
		candidates := make([]Device, len(ranked))
		for i, r := range ranked {
			candidates[i] = r.device
		}
		return Device{}, &ErrAmbiguous{Candidates: candidates}
	}
	return ranked[0].device, nil
}

// fuzzyScore ranks candidate against pattern using the same
// subsequence matcher the fzf command line tool scores its own
// results with. ok is false when pattern does not occur as a
// subsequence of candidate at all.
func fuzzyScore(candidate, pattern string) (score int, ok bool) {
	chars := util.RunesToChars([]rune(candidate))
	slab := util.MakeSlab(100*1024, 2048)
	result, _ := algo.FuzzyMatchV2(false, true, true, &chars, []rune(pattern), false, slab)
	if result.Start < 0 {
		return 0, false
	}
	return int(result.Score), true
}
