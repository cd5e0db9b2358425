package stt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"node.town/parley/snd"
)

var (
	// ErrNotUnderstood means the service answered but found no speech.
	ErrNotUnderstood = errors.New("speech not understood")
	// ErrUnreachable means the service could not be reached.
	ErrUnreachable = errors.New("recognition service unreachable")
)

type Result struct {
	Text       string
	Language   string  // Detected source language, if the provider reports it
	Confidence float64 // 0.0 - 1.0, zero when unknown
}

// Recognizer converts one captured utterance to text. The source language is
// detected by the provider.
type Recognizer interface {
	Recognize(ctx context.Context, sample snd.Sample) (Result, error)
}

// classify maps a provider call failure onto the package sentinels.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s: %v", ErrUnreachable, provider, err)
	}
	return fmt.Errorf("%s: %w", provider, err)
}

// result trims the transcript and reports an empty one as not understood.
func result(text, language string, confidence float64) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrNotUnderstood
	}
	return Result{
		Text:       text,
		Language:   language,
		Confidence: confidence,
	}, nil
}
