package tts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/haguro/elevenlabs-go"

	"node.town/parley/snd"
)

const (
	elevenLabsModel      = "eleven_multilingual_v2"
	elevenLabsFormat     = "pcm_16000"
	elevenLabsSampleRate = 16000
	DefaultVoiceID       = "pKLLpypGseGMUjkb5fEZ"
)

// Player plays raw 16-bit mono PCM, blocking until done.
type Player interface {
	Play(ctx context.Context, pcm []int16, sampleRate int) error
}

// ElevenLabs synthesizes speech in the cloud and plays it locally. The
// provider has no speaking-rate control, so Options.Rate is ignored.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	opts    Options
	player  Player
	logger  *log.Logger

	synthesize func(ctx context.Context, text string) ([]byte, error)
}

func NewElevenLabs(
	apiKey, voiceID string,
	opts Options,
	player Player,
	logger *log.Logger,
) (*ElevenLabs, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs: missing API key")
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	e := &ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		opts:    opts.Normalized(),
		player:  player,
		logger:  logger,
	}
	e.synthesize = e.textToSpeech
	return e, nil
}

func (e *ElevenLabs) textToSpeech(ctx context.Context, text string) ([]byte, error) {
	client := elevenlabs.NewClient(ctx, e.apiKey, 30*time.Second)
	ttsReq := elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: elevenLabsModel,
	}

	audio, err := client.TextToSpeech(
		e.voiceID,
		ttsReq,
		elevenlabs.OutputFormat(elevenLabsFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}
	return audio, nil
}

func (e *ElevenLabs) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	audio, err := e.synthesize(ctx, text)
	if err != nil {
		return err
	}

	pcm := snd.Scale(snd.DecodePCM16(audio), e.opts.Volume)
	e.logger.Debug("speak", "engine", "elevenlabs", "samples", len(pcm))

	if err := e.player.Play(ctx, pcm, elevenLabsSampleRate); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}
