// Package audio inspects Pulse input sources. voiceprompt never captures audio itself;
// the browser bridge owns the microphone. The devices command and doctor use this
// package to show what the bridge will hear.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether the source can deliver speech.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// ListDevices returns Pulse input sources with default and availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voiceprompt"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return devicesFromInfos(infos, defaultSource.ID()), nil
}

func devicesFromInfos(infos pulseproto.GetSourceInfoListReply, defaultID string) []Device {
	devices := make([]Device, 0, len(infos))
	for _, source := range infos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices
}

// Resolve finds the device audio.input names. "default" or an empty input selects the
// server default; anything else matches a substring of the ID or description.
func Resolve(devices []Device, input string) (Device, error) {
	if len(devices) == 0 {
		return Device{}, errors.New("no audio input devices found")
	}

	term := strings.ToLower(strings.TrimSpace(input))
	for _, dev := range devices {
		if term == "" || term == "default" {
			if dev.Default {
				return dev, nil
			}
			continue
		}
		if deviceMatches(dev, term) {
			return dev, nil
		}
	}

	if term == "" || term == "default" {
		return Device{}, errors.New("default audio source is unavailable")
	}
	return Device{}, fmt.Errorf("audio.input %q did not match any device", input)
}

// deviceMatches reports whether a lowercase term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

// sourceStateString maps Pulse source state constants to readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable reads the active port's availability. PulseAudio reports
// unknown=0, no=1, yes=2; sources without ports are treated as available.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			return port.Available != 1
		}
	}
	return true
}
