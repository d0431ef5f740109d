// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config is documented in config.go; this file exists only
// to mirror the one-doc.go-per-package layout the rest of the module
// uses.
package config
