// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     cmd
// Description: CLI command that prints version information
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvoss/hark/pkg/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
