package tts

import "context"

const (
	DefaultRate   = 150 // words per minute
	DefaultVolume = 1.0
)

// Speaker renders text as audible speech. Speak blocks until playback ends.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Options struct {
	Rate   int     // Words per minute
	Volume float64 // 0.0 - 1.0
	Voice  string  // Engine specific voice name, empty for the default
}

func DefaultOptions() Options {
	return Options{Rate: DefaultRate, Volume: DefaultVolume}
}

func (o Options) Normalized() Options {
	if o.Rate <= 0 {
		o.Rate = DefaultRate
	}
	switch {
	case o.Volume < 0:
		o.Volume = 0
	case o.Volume > 1:
		o.Volume = 1
	}
	return o
}
