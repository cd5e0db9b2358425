package snd

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sample is one captured utterance as 16-bit mono PCM.
type Sample struct {
	PCM        []int16
	SampleRate int
}

func (s Sample) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.PCM)) * time.Second / time.Duration(s.SampleRate)
}

// WAV encodes the sample as a RIFF/WAVE file.
func (s Sample) WAV() ([]byte, error) {
	// the encoder needs to seek back to patch the header sizes
	f, err := os.CreateTemp("", "parley-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	enc := wav.NewEncoder(f, s.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  s.SampleRate,
		},
		Data:           make([]int, len(s.PCM)),
		SourceBitDepth: 16,
	}
	for i, v := range s.PCM {
		buf.Data[i] = int(v)
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish wav: %w", err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		return nil, fmt.Errorf("read temp wav: %w", err)
	}
	return data, nil
}
