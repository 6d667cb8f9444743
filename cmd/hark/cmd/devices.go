// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     cmd
// Description: CLI command that lists audio input devices
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvoss/hark/internal/assistant/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	Long: `Lists every input-capable audio device known to the host, with its
channel count and default sample rate. The device marked with * is the
system default and is used when no --device hint is given.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := audio.ListInputDevices()
	if err != nil {
		printError("listing input devices", err)
		return err
	}

	fmt.Printf("%-3s %-40s %8s %12s\n", "", "NAME", "CHANNELS", "SAMPLE RATE")
	for _, dev := range devices {
		marker := ""
		if dev.IsDefault {
			marker = "*"
		}
		fmt.Printf("%-3s %-40s %8d %9.0f Hz\n",
			marker, dev.Name, dev.MaxInputChannels, dev.DefaultSampleRate)
	}
	return nil
}
