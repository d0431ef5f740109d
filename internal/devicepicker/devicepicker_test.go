// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devicepicker

import (
	"strings"
	"testing"
)

func parseFixture(t *testing.T) []Device {
	t.Helper()
	// Mirrors the shape of `adb devices -l` output: a header line, a
	// blank trailer, and one line per device with key:value metadata.
	fixture := `List of devices attached
emulator-5554          device product:sdk_gphone64_arm64 model:sdk_gphone64_arm64 device:emu64a transport_id:1
0123456789ABCDEF       device product:raven model:Pixel_6_Pro device:raven transport_id:2
HT8AB1A00123           offline

`
	devices, err := parseDeviceLines(fixture)
	if err != nil {
		t.Fatalf("parseDeviceLines: %v", err)
	}
	return devices
}

// parseDeviceLines duplicates List's line-parsing logic so the test
// does not need a real adb binary on PATH.
func parseDeviceLines(output string) ([]Device, error) {
	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
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
	return devices, nil
}

func TestResolveAutoSelectsSingleDevice(t *testing.T) {
	devices := []Device{{Serial: "emulator-5554", State: "device"}}
	got, err := Resolve(devices, "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Serial != "emulator-5554" {
		t.Fatalf("got %q, want emulator-5554", got.Serial)
	}
}

func TestResolveReportsAmbiguousWithoutFilter(t *testing.T) {
	devices := parseFixture(t)
	_, err := Resolve(devices, "")
	var ambiguous *ErrAmbiguous
	if err == nil {
		t.Fatal("expected ErrAmbiguous")
	}
	if !asAmbiguous(err, &ambiguous) {
		t.Fatalf("expected *ErrAmbiguous, got %T: %v", err, err)
	}
	if len(ambiguous.Candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(ambiguous.Candidates))
	}
}

func TestResolveNarrowsByFuzzyFilter(t *testing.T) {
	devices := parseFixture(t)
	got, err := Resolve(devices, "pixel")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.Serial != "0123456789ABCDEF" {
		t.Fatalf("got %q, want the Pixel 6 Pro entry", got.Serial)
	}
}

func TestResolveRejectsFilterWithNoMatch(t *testing.T) {
	devices := parseFixture(t)
	if _, err := Resolve(devices, "zzz-nonexistent"); err == nil {
		t.Fatal("expected an error when no device matches the filter")
	}
}

func TestResolveReportsNoDevices(t *testing.T) {
	if _, err := Resolve(nil, ""); err != ErrNoDevices {
		t.Fatalf("got %v, want ErrNoDevices", err)
	}
}

func asAmbiguous(err error, target **ErrAmbiguous) bool {
	if a, ok := err.(*ErrAmbiguous); ok {
		*target = a
		return true
	}
	return false
}
