// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     cmd
// Description: Root command and shared flags for the hark CLI
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tvoss/hark/pkg/core/config"
	"github.com/tvoss/hark/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "hark",
	Short: "hark - local wake-word listening pipeline",
	Long: `hark listens to a microphone, watches a sliding audio window for a
wake word, and drives a simple interaction state machine when one fires.

Commands:
  listen   - capture from the microphone and wait for the wake word
  devices  - list available audio input devices
  replay   - run detection over a WAV file offline
  version  - print version information`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "info"
		if verbose {
			level = "debug"
		}
		logging.SetDefaults(level, "text")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/hark.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadFromEnv()
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
}
