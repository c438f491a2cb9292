//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const coverProfile = "coverage.out"

// Test groups the test targets.
type Test mg.Namespace

// All runs every test verbosely.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the package tests, excluding the tests/ directory.
func (Test) Unit() error {
	pkgs, err := packages()
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No test packages found.")
		return nil
	}
	args := append([]string{"test"}, pkgs...)
	return sh.RunV(binGo, args...)
}

// Race runs the package tests with the race detector. The store and the
// notification gate are shared across goroutines, so this is the target CI
// should use.
func (Test) Race() error {
	pkgs, err := packages()
	if err != nil {
		return err
	}
	args := append([]string{"test", "-race", "-count=1"}, pkgs...)
	return sh.RunV(binGo, args...)
}

// Integration builds first, then runs the binary-level tests.
func (Test) Integration() error {
	if _, err := os.Stat("tests"); os.IsNotExist(err) {
		fmt.Println("No integration test directory found (tests/).")
		return nil
	}
	mg.Deps(Build)
	return sh.RunV(binGo, "test", "-v", "./tests/...")
}

// Cover writes a coverage profile and prints the per-function summary.
func (Test) Cover() error {
	pkgs, err := packages()
	if err != nil {
		return err
	}
	args := append([]string{"test", "-coverprofile=" + coverProfile}, pkgs...)
	if err := sh.RunV(binGo, args...); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}

func packages() ([]string, error) {
	out, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for pkg := range strings.SplitSeq(out, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/magefiles") && !strings.Contains(pkg, "/tests/") {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}
