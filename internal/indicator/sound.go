package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueTick
	cueError
)

const cueSampleRate = 16000

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cues = map[cueKind][]int16{
	cueStart: synthesizeCue([]toneSpec{
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 90 * time.Millisecond, volume: 0.18},
	}),
	cueStop: synthesizeCue([]toneSpec{
		{frequencyHz: 620, duration: 120 * time.Millisecond, volume: 0.18},
	}),
	cueTick: synthesizeCue([]toneSpec{
		{frequencyHz: 1046, duration: 40 * time.Millisecond, volume: 0.12},
	}),
	cueError: synthesizeCue([]toneSpec{
		{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		{frequencyHz: 360, duration: 110 * time.Millisecond, volume: 0.18},
	}),
}

func cueSamples(kind cueKind) []int16 {
	return cues[kind]
}

func emitCue(kind cueKind) error {
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(samples)
}

func playSynthCue(samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("voiceprompt"),
		pulse.ClientApplicationIconName("accessories-text-editor"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voiceprompt cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}

	return nil
}

// synthesizeCue joins tones with a short silence between them.
func synthesizeCue(parts []toneSpec) []int16 {
	gap := make([]int16, samplesForDuration(22*time.Millisecond))
	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine tone with a linear ramp of at most 5ms on both ends.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := max(min(n/10, cueSampleRate/200), 1)
	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
