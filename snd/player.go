package snd

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const playbackFrames = 1024

// Player plays 16-bit mono PCM on the default output device.
type Player struct{}

func NewPlayer() *Player {
	return &Player{}
}

// Play blocks until every sample has been written to the device or ctx is done.
func (p *Player) Play(ctx context.Context, pcm []int16, sampleRate int) error {
	if len(pcm) == 0 {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]int16, playbackFrames)
	stream, err := portaudio.OpenDefaultStream(
		0,
		1,
		float64(sampleRate),
		len(out),
		out,
	)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(pcm); off += len(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(out, pcm[off:])
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil &&
			!errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}

// Scale multiplies every sample by volume, clipping to the int16 range.
func Scale(pcm []int16, volume float64) []int16 {
	out := make([]int16, len(pcm))
	for i, s := range pcm {
		v := float64(s) * volume
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// DecodePCM16 converts little-endian 16-bit PCM bytes into samples. A
// trailing odd byte is dropped.
func DecodePCM16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return out
}
