// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the mount-options file for an adbfsm mount:
// page size, cache budget, and transport selection, layered under
// whatever the CLI flags in cmd/adbfsm override. There are no
// fallbacks or automatic discovery — an explicit --config flag (or
// none at all, in which case Default applies) is the only input.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Transport selects which internal/transport.Dialer the CLI
// constructs.
type Transport string

const (
	TransportADB Transport = "adb"
	TransportTCP Transport = "tcp"
	TransportSSH Transport = "ssh"
)

// Config is the mount-options file format. Byte-size fields accept
// human-readable suffixes ("128Ki", "32Mi") via go-humanize when
// loaded from a file; the zero value means "use the adapter's
// built-in default".
type Config struct {
	Transport Transport `json:"transport" yaml:"transport"`

	Serial     string `json:"serial,omitempty" yaml:"serial,omitempty"`
	RemotePort int    `json:"remote_port,omitempty" yaml:"remote_port,omitempty"`
	Address    string `json:"address,omitempty" yaml:"address,omitempty"`

	SSHAddress       string `json:"ssh_address,omitempty" yaml:"ssh_address,omitempty"`
	SSHRemoteAddress string `json:"ssh_remote_address,omitempty" yaml:"ssh_remote_address,omitempty"`
	SSHUser          string `json:"ssh_user,omitempty" yaml:"ssh_user,omitempty"`
	SSHKnownHosts    string `json:"ssh_known_hosts,omitempty" yaml:"ssh_known_hosts,omitempty"`

	// PageSize and MaxCache are byte-size strings ("128Ki", "32Mi") as
	// loaded from a file. Use Resolve to get the parsed integers.
	PageSize string `json:"page_size,omitempty" yaml:"page_size,omitempty"`
	MaxCache string `json:"max_cache,omitempty" yaml:"max_cache,omitempty"`

	AllowOther bool `json:"allow_other,omitempty" yaml:"allow_other,omitempty"`
	JSONLog    bool `json:"json_log,omitempty" yaml:"json_log,omitempty"`

	DiagSocket string `json:"diag_socket,omitempty" yaml:"diag_socket,omitempty"`
}

// Default returns a Config with adbfsm's built-in defaults: ADB
// transport, a 128KiB page size, and a 32MiB cache budget.
func Default() Config {
	return Config{
		Transport: TransportADB,
		PageSize:  "128KiB",
		MaxCache:  "32MiB",
	}
}

// Load reads path and parses it as JSONC (stripped of comments and
// trailing commas before unmarshalling) or, for a ".yaml"/".yml"
// suffixed path, as YAML. Fields absent from the file keep Default's
// values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s as yaml: %w", path, err)
		}
		return cfg, nil
	}

	stripped := jsonc.ToJSON(data)
	if err := json.Unmarshal(stripped, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Resolved holds the parsed, numeric form of the byte-size fields.
type Resolved struct {
	PageSize int
	MaxPages int
}

// Resolve parses PageSize and MaxCache into the (page size, max
// pages) pair the cache constructor wants, applying defaultPageSize
// and defaultMaxPages wherever the config field is empty. MaxCache is
// converted to a page count by dividing by the resolved page size,
// rounding up.
func (c Config) Resolve(defaultPageSize, defaultMaxPages int) (Resolved, error) {
	pageSize := defaultPageSize
	if c.PageSize != "" {
		n, err := humanize.ParseBytes(c.PageSize)
		if err != nil {
			return Resolved{}, fmt.Errorf("config: parsing page_size %q: %w", c.PageSize, err)
		}
		pageSize = int(n)
	}
	if pageSize <= 0 || pageSize&(pageSize-1) != 0 {
		return Resolved{}, fmt.Errorf("config: page_size %d is not a positive power of two", pageSize)
	}

	maxPages := defaultMaxPages
	if c.MaxCache != "" {
		n, err := humanize.ParseBytes(c.MaxCache)
		if err != nil {
			return Resolved{}, fmt.Errorf("config: parsing max_cache %q: %w", c.MaxCache, err)
		}
		maxPages = int((n + uint64(pageSize) - 1) / uint64(pageSize))
	}

	return Resolved{PageSize: pageSize, MaxPages: maxPages}, nil
}

// FormatBytes renders n using the same human-readable convention the
// config file accepts.
func FormatBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}

// ParsePort parses a TCP port given as text, rejecting values outside
// 1-65535.
func ParsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid port %q: %w", s, err)
	}
	if n <= 0 || n > 65535 {
		return 0, fmt.Errorf("config: port %d out of range", n)
	}
	return n, nil
}
