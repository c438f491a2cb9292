//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for rowgrid using Mage.
//
// Usage:
//
//	mage build        Compile rowgrid binary to bin/
//	mage test:all     Run every test
//	mage test:unit    Run package tests
//	mage test:integration Build, then run tests/integration
//	mage test:race    Run tests with the race detector
//	mage test:cover   Write coverage.out and print a summary
//	mage lint         Run golangci-lint
//	mage clean        Remove build artifacts
//	mage install      Install rowgrid to GOPATH/bin
//	mage stats        Print Go LOC and documentation word counts
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "rowgrid"
	binaryDir  = "bin"
	cmdDir     = "./cmd/rowgrid"
	versionVar = "github.com/mesh-intelligence/rowgrid/internal/cli.Version"
)

// Build compiles the rowgrid binary to bin/. The version is taken from
// ROWGRID_VERSION, or from git describe when that is unset.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := fmt.Sprintf("-X %s=%s", versionVar, buildVersion())
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags,
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

func buildVersion() string {
	if v := os.Getenv("ROWGRID_VERSION"); v != "" {
		return v
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(out) == "" {
		return "dev"
	}
	return strings.TrimSpace(out)
}

// Clean removes build artifacts.
func Clean() error {
	for _, p := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
