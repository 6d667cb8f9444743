// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     cmd
// Description: CLI command that runs detection over a WAV file offline
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvoss/hark/internal/assistant/audio"
	"github.com/tvoss/hark/internal/assistant/trigger"
)

var (
	replayThreshold float64
	replayScorer    string
)

var replayCmd = &cobra.Command{
	Use:   "replay <file.wav>",
	Short: "Run detection over a WAV file offline",
	Long: `Feeds a WAV file through the wake-word gate frame by frame and
reports every detection with its confidence.
Useful for tuning the threshold against recorded samples.

Examples:
  hark replay sample.wav
  hark replay --scorer vad --threshold 0.6 sample.wav`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().Float64VarP(&replayThreshold, "threshold", "t", 0,
		"detection threshold override (0..1)")
	replayCmd.Flags().StringVar(&replayScorer, "scorer", "",
		"scorer override (energy, vad, stub)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading configuration", err)
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Trigger.Threshold = replayThreshold
	}
	if cmd.Flags().Changed("scorer") {
		cfg.Trigger.Scorer = replayScorer
	}

	path := args[0]
	frames, sampleRate, err := audio.ReadWAVFrames(path, cfg.Audio.FrameSize)
	if err != nil {
		printError("reading WAV file", err)
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no full frames in %s", path)
	}

	scorer, err := trigger.NewScorer(cfg.Trigger.Scorer, sampleRate, cfg.Trigger.VADMode)
	if err != nil {
		printError("building scorer", err)
		return err
	}

	gate := trigger.NewGate(trigger.Config{
		SampleRate:     sampleRate,
		Threshold:      cfg.Trigger.Threshold,
		WindowDuration: secondsToDuration(cfg.Trigger.WindowSeconds),
		Cooldown:       secondsToDuration(cfg.Trigger.CooldownSeconds),
		QueueSize:      len(frames) + 1,
		PollTimeout:    cfg.Audio.PollTimeout.Duration,
		JoinTimeout:    cfg.Audio.JoinTimeout.Duration,
	}, scorer)

	var mu sync.Mutex
	var hits []trigger.Event
	err = gate.Start(func(ev trigger.Event) {
		mu.Lock()
		hits = append(hits, ev)
		mu.Unlock()
	})
	if err != nil {
		printError("starting trigger gate", err)
		return err
	}

	frameDuration := time.Duration(cfg.Audio.FrameSize) * time.Second / time.Duration(sampleRate)
	for i, frame := range frames {
		mono := audio.Mixdown(frame)
		mono.Index = uint64(i)
		gate.ProcessAudio(mono)
	}

	// The queue holds every frame, so stopping before the processed count
	// reaches the feed total would abandon unscored audio
	deadline := time.Now().Add(drainTimeout(len(frames)))
	for gate.Processed() < uint64(len(frames)) {
		if time.Now().After(deadline) {
			fmt.Printf("warning: scoring stalled, %d of %d frames processed\n",
				gate.Processed(), len(frames))
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	gate.Stop()

	fmt.Printf("replayed %d frames (%s) from %s\n",
		len(frames), (time.Duration(len(frames)) * frameDuration).Round(time.Millisecond), path)

	mu.Lock()
	defer mu.Unlock()
	if len(hits) == 0 {
		fmt.Println("no detections")
		return nil
	}
	for _, ev := range hits {
		fmt.Printf("detection  confidence=%.3f  event=%s\n", ev.Confidence, ev.ID)
	}
	fmt.Printf("%d detection(s) at threshold %.2f\n", len(hits), cfg.Trigger.Threshold)
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// drainTimeout bounds the wait for offline scoring, scaled to the feed
// size so long recordings with slow scorers still finish.
func drainTimeout(frames int) time.Duration {
	d := 10*time.Second + time.Duration(frames)*10*time.Millisecond
	if d > 5*time.Minute {
		d = 5 * time.Minute
	}
	return d
}
