// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     version
// Description: Central version management
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package version

import "fmt"

// Version is the hark release version
const Version = "0.1.0"

// Build metadata, set via -ldflags at release time
var (
	Commit = "unknown"
	Date   = "unknown"
)

// String returns the full version string
func String() string {
	return fmt.Sprintf("hark %s (commit %s, built %s)", Version, Commit, Date)
}
