// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     cmd
// Description: CLI command that runs the live listening pipeline
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvoss/hark/internal/assistant"
	"github.com/tvoss/hark/internal/assistant/audio"
	"github.com/tvoss/hark/pkg/core/logging"
)

var (
	listenDevice    string
	listenThreshold float64
	listenScorer    string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Capture from the microphone and wait for the wake word",
	Long: `Opens the configured input device, feeds captured audio through the
wake-word gate, and prints every state change of the assistant until
interrupted with Ctrl+C.

Examples:
  hark listen
  hark listen --device "USB Microphone"
  hark listen --scorer vad --threshold 0.6`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().StringVarP(&listenDevice, "device", "d", "",
		"input device name hint (substring match)")
	listenCmd.Flags().Float64VarP(&listenThreshold, "threshold", "t", 0,
		"detection threshold override (0..1)")
	listenCmd.Flags().StringVar(&listenScorer, "scorer", "",
		"scorer override (energy, vad, stub)")
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading configuration", err)
		return err
	}

	if cmd.Flags().Changed("device") {
		cfg.Audio.DeviceName = listenDevice
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Trigger.Threshold = listenThreshold
	}
	if cmd.Flags().Changed("scorer") {
		cfg.Trigger.Scorer = listenScorer
	}
	if err := cfg.Validate(); err != nil {
		printError("invalid configuration", err)
		return err
	}

	// --verbose wins over the configured level
	if !verbose {
		logging.SetDefaults(cfg.General.LogLevel, cfg.General.LogFormat)
	}

	opts := []assistant.Option{}

	// Level meter, printed from a ticker so the capture fan-out stays cheap
	var level atomic.Uint64
	var meterStop chan struct{}
	if verbose {
		opts = append(opts, assistant.WithAudioTap(func(mono audio.MonoFrame, _ audio.Frame) {
			level.Store(uint64(audio.Level(mono) * 1e6))
		}))
		meterStop = make(chan struct{})
		go runLevelMeter(&level, meterStop)
	}

	c := assistant.NewCoordinator(cfg, opts...)
	c.AddStateListener(func(oldState, newState assistant.State) {
		fmt.Printf("%s  %s -> %s\n",
			time.Now().Format("15:04:05.000"), oldState, newState)
	})

	if err := c.Start(); err != nil {
		printError("starting assistant", err)
		return err
	}

	fmt.Println("hark is listening")
	fmt.Printf("  device:    %s\n", deviceLabel(cfg.Audio.DeviceName))
	fmt.Printf("  scorer:    %s\n", scorerLabel(cfg.Trigger.Scorer))
	fmt.Printf("  threshold: %.2f\n", cfg.Trigger.Threshold)
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nshutting down")
	if meterStop != nil {
		close(meterStop)
	}
	c.Stop()
	return nil
}

func runLevelMeter(level *atomic.Uint64, stop chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			v := float64(level.Load()) / 1e6
			bar := int(v * 200)
			if bar > 40 {
				bar = 40
			}
			fmt.Printf("\rlevel %-40s %.4f", meterBar(bar), v)
		}
	}
}

func meterBar(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '#'
	}
	return string(b)
}

func deviceLabel(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

func scorerLabel(name string) string {
	if name == "" {
		return "energy"
	}
	return name
}
