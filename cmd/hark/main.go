// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     main
// Description: Entry point for the hark CLI
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package main

import (
	"os"

	"github.com/tvoss/hark/cmd/hark/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
