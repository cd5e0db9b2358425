package snd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

var ErrNoInputDevice = errors.New("no microphone input device available")

// Source opens audio capture streams.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture stream. Calibrate must run before Listen.
type Stream interface {
	Calibrate(ctx context.Context, duration time.Duration) error
	Listen(ctx context.Context) (Sample, error)
	Close() error
}

type MicrophoneConfig struct {
	SampleRate      int
	FramesPerBuffer int
}

func DefaultMicrophoneConfig() MicrophoneConfig {
	return MicrophoneConfig{
		SampleRate:      16000,
		FramesPerBuffer: 1024,
	}
}

// Microphone captures from the default input device through PortAudio.
type Microphone struct {
	cfg    MicrophoneConfig
	logger *log.Logger
}

func NewMicrophone(cfg MicrophoneConfig, logger *log.Logger) *Microphone {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultMicrophoneConfig().SampleRate
	}
	if cfg.FramesPerBuffer <= 0 {
		cfg.FramesPerBuffer = DefaultMicrophoneConfig().FramesPerBuffer
	}
	return &Microphone{cfg: cfg, logger: logger}
}

func (m *Microphone) Open(ctx context.Context) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	if _, err := portaudio.DefaultInputDevice(); err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}

	in := make([]int16, m.cfg.FramesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(
		1,
		0,
		float64(m.cfg.SampleRate),
		len(in),
		in,
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input stream: %w", err)
	}

	bufferDuration := time.Duration(m.cfg.FramesPerBuffer) * time.Second /
		time.Duration(m.cfg.SampleRate)

	m.logger.Debug(
		"microphone open",
		"rate", m.cfg.SampleRate,
		"buffer", bufferDuration,
	)

	return &microphoneStream{
		stream:   stream,
		in:       in,
		rate:     m.cfg.SampleRate,
		detector: NewDetector(bufferDuration),
		logger:   m.logger,
	}, nil
}

type microphoneStream struct {
	stream   *portaudio.Stream
	in       []int16
	rate     int
	detector *Detector
	logger   *log.Logger
}

func (s *microphoneStream) read() ([]int16, error) {
	if err := s.stream.Read(); err != nil {
		if errors.Is(err, portaudio.InputOverflowed) {
			s.logger.Warn("input overflowed")
		} else {
			return nil, fmt.Errorf("read input stream: %w", err)
		}
	}
	return append([]int16(nil), s.in...), nil
}

func (s *microphoneStream) Calibrate(
	ctx context.Context,
	duration time.Duration,
) error {
	if err := s.detector.Calibrate(ctx, s.read, duration); err != nil {
		return fmt.Errorf("ambient noise calibration: %w", err)
	}
	s.logger.Debug("calibrated", "threshold", s.detector.Threshold)
	return nil
}

func (s *microphoneStream) Listen(ctx context.Context) (Sample, error) {
	pcm, err := s.detector.Capture(ctx, s.read)
	if err != nil {
		return Sample{}, fmt.Errorf("capture utterance: %w", err)
	}
	sample := Sample{PCM: pcm, SampleRate: s.rate}
	s.logger.Info("heard", "duration", sample.Duration())
	return sample, nil
}

func (s *microphoneStream) Close() error {
	defer portaudio.Terminate()
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return fmt.Errorf("stop input stream: %w", err)
	}
	return s.stream.Close()
}
