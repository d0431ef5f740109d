// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultResolvesToPowerOfTwoPageSize(t *testing.T) {
	cfg := Default()
	resolved, err := cfg.Resolve(64*1024, 512)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.PageSize != 128*1024 {
		t.Fatalf("page size = %d, want 131072", resolved.PageSize)
	}
	if resolved.MaxPages <= 0 {
		t.Fatalf("max pages = %d, want > 0", resolved.MaxPages)
	}
}

func TestLoadJSONC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adbfsm.jsonc")
	body := `{
		// a comment
		"transport": "tcp",
		"address": "127.0.0.1:9000",
		"page_size": "64KiB",
		"max_cache": "16MiB",
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transport != TransportTCP || cfg.Address != "127.0.0.1:9000" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	resolved, err := cfg.Resolve(128*1024, 256)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.PageSize != 64*1024 {
		t.Fatalf("page size = %d, want 65536", resolved.PageSize)
	}
	if resolved.MaxPages != 256 {
		t.Fatalf("max pages = %d, want 256 (16MiB / 64KiB)", resolved.MaxPages)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adbfsm.yaml")
	body := "transport: ssh\nssh_address: host:22\nssh_remote_address: 127.0.0.1:9001\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transport != TransportSSH || cfg.SSHAddress != "host:22" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestResolveRejectsNonPowerOfTwoPageSize(t *testing.T) {
	cfg := Config{PageSize: "100"}
	if _, err := cfg.Resolve(4096, 64); err == nil {
		t.Fatal("expected an error for a non-power-of-two page size")
	}
}

func TestParsePortRejectsOutOfRange(t *testing.T) {
	if _, err := ParsePort("70000"); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
	if _, err := ParsePort("not-a-number"); err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
	port, err := ParsePort("5555")
	if err != nil || port != 5555 {
		t.Fatalf("ParsePort(5555) = %d, %v", port, err)
	}
}
