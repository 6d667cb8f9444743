// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     audio
// Description: Input device enumeration and selection
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package audio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// ErrDeviceNotFound indicates that no usable audio input device exists
var ErrDeviceNotFound = errors.New("no matching audio input device")

// DeviceInfo holds information about an audio input device
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// selectInputDevice resolves a device name hint to a PortAudio device.
// A non-empty hint selects the first input-capable device whose name
// contains the hint case-insensitively; no match falls back to the system
// default. PortAudio must already be initialized.
func selectInputDevice(nameHint string) (*portaudio.DeviceInfo, error) {
	if nameHint != "" && nameHint != "default" {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate devices: %w", err)
		}
		hint := strings.ToLower(nameHint)
		for _, dev := range devices {
			if dev.MaxInputChannels > 0 && strings.Contains(strings.ToLower(dev.Name), hint) {
				return dev, nil
			}
		}
		// Fall through to the default device
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return nil, fmt.Errorf("%w: hint %q and no default input device", ErrDeviceNotFound, nameHint)
	}
	return dev, nil
}

// ListInputDevices returns all input-capable audio devices. It manages its
// own PortAudio session so it can be called without a running Source.
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()
	var defaultName string
	if defaultInput != nil {
		defaultName = defaultInput.Name
	}

	var inputs []DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 {
			inputs = append(inputs, DeviceInfo{
				Name:              dev.Name,
				MaxInputChannels:  dev.MaxInputChannels,
				DefaultSampleRate: dev.DefaultSampleRate,
				IsDefault:         dev.Name == defaultName,
			})
		}
	}

	if len(inputs) == 0 {
		return nil, ErrDeviceNotFound
	}
	return inputs, nil
}
