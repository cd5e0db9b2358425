package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/listen"

	"node.town/parley/snd"
)

type DeepgramClient struct {
	token  string
	model  string
	logger *log.Logger
}

func NewDeepgramClient(token string, logger *log.Logger) (*DeepgramClient, error) {
	if token == "" {
		return nil, fmt.Errorf("deepgram: missing API key")
	}
	return &DeepgramClient{
		token:  token,
		model:  "nova-2",
		logger: logger,
	}, nil
}

// deepgramResponse is the part of the prerecorded response we read.
type deepgramResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (c *DeepgramClient) Recognize(
	ctx context.Context,
	sample snd.Sample,
) (Result, error) {
	wav, err := sample.WAV()
	if err != nil {
		return Result{}, err
	}

	tOptions := &interfaces.PreRecordedTranscriptionOptions{
		Model:          c.model,
		Punctuate:      true,
		SmartFormat:    true,
		DetectLanguage: true,
	}

	client := listen.NewREST(c.token, &interfaces.ClientOptions{})
	dg := api.New(client)

	res, err := dg.FromStream(ctx, bytes.NewReader(wav), tOptions)
	if err != nil {
		return Result{}, classify("deepgram", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return Result{}, fmt.Errorf("deepgram: encode response: %w", err)
	}
	return parseDeepgram(raw, c.logger)
}

func parseDeepgram(raw []byte, logger *log.Logger) (Result, error) {
	var resp deepgramResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, fmt.Errorf("deepgram: decode response: %w", err)
	}

	if len(resp.Results.Channels) == 0 ||
		len(resp.Results.Channels[0].Alternatives) == 0 {
		return Result{}, ErrNotUnderstood
	}

	channel := resp.Results.Channels[0]
	alt := channel.Alternatives[0]

	logger.Info(
		"hear",
		"txt", alt.Transcript,
		"lang", channel.DetectedLanguage,
		"confidence", alt.Confidence,
	)

	return result(alt.Transcript, channel.DetectedLanguage, alt.Confidence)
}
