package stt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"node.town/parley/snd"
)

// WhisperClient recognizes speech with the OpenAI transcription endpoint.
type WhisperClient struct {
	client *openai.Client
	logger *log.Logger
}

func NewWhisperClient(apiKey string, logger *log.Logger) (*WhisperClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("whisper: missing API key")
	}
	return &WhisperClient{
		client: openai.NewClient(apiKey),
		logger: logger,
	}, nil
}

func (w *WhisperClient) Recognize(
	ctx context.Context,
	sample snd.Sample,
) (Result, error) {
	wav, err := sample.WAV()
	if err != nil {
		return Result{}, err
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(wav),
		FilePath: "utterance.wav",
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Result{}, classify("whisper", err)
	}

	w.logger.Info("hear", "txt", resp.Text, "lang", resp.Language)

	return result(resp.Text, resp.Language, 0)
}
