package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"node.town/parley/config"
	"node.town/parley/db"
	"node.town/parley/pipeline"
	"node.town/parley/snd"
	"node.town/parley/stt"
	"node.town/parley/translate"
	"node.town/parley/tts"
)

// Loggers are the prefixed children of the root logger.
type Loggers struct {
	Main, Hear, Talk, Data *log.Logger
}

func newRecognizer(cfg *config.Config, logger *log.Logger) (stt.Recognizer, error) {
	switch cfg.Recognizer {
	case config.RecognizerWhisper:
		return stt.NewWhisperClient(cfg.OpenAIAPIKey, logger)
	default:
		return stt.NewDeepgramClient(cfg.DeepgramAPIKey, logger)
	}
}

// newTranslator returns the configured translator and a func releasing it.
func newTranslator(
	ctx context.Context,
	cfg *config.Config,
	logger *log.Logger,
) (translate.Translator, func(), error) {
	switch cfg.Translator {
	case config.TranslatorOpenAI:
		t, err := translate.NewOpenAI(cfg.OpenAIAPIKey, logger)
		return t, func() {}, err
	case config.TranslatorGemini:
		t, err := translate.NewGemini(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			return nil, nil, err
		}
		return t, func() {
			if err := t.Close(); err != nil {
				logger.Warn("close gemini client", "error", err)
			}
		}, nil
	default:
		t, err := translate.NewGoogle(ctx, cfg.GoogleAPIKey, logger)
		return t, func() {}, err
	}
}

func newSpeaker(cfg *config.Config, logger *log.Logger) (tts.Speaker, error) {
	switch cfg.Speaker {
	case config.SpeakerElevenLabs:
		return tts.NewElevenLabs(
			cfg.ElevenLabsAPIKey,
			cfg.ElevenLabsVoiceID,
			cfg.Speech,
			snd.NewPlayer(),
			logger,
		)
	default:
		return tts.NewEspeak(cfg.Speech, logger), nil
	}
}

// newController wires every configured provider into a controller. The
// returned func releases provider clients and the archive pool.
func newController(
	ctx context.Context,
	cfg *config.Config,
	loggers Loggers,
) (*pipeline.Controller, func(), error) {
	recognizer, err := newRecognizer(cfg, loggers.Hear)
	if err != nil {
		return nil, nil, fmt.Errorf("recognizer: %w", err)
	}

	translator, closeTranslator, err := newTranslator(ctx, cfg, loggers.Talk)
	if err != nil {
		return nil, nil, fmt.Errorf("translator: %w", err)
	}

	speaker, err := newSpeaker(cfg, loggers.Talk)
	if err != nil {
		closeTranslator()
		return nil, nil, fmt.Errorf("speaker: %w", err)
	}

	closers := []func(){closeTranslator}

	var archive pipeline.Archive
	if cfg.DatabaseURL != "" {
		a, err := db.Open(ctx, cfg.DatabaseURL, loggers.Data)
		if err != nil {
			loggers.Main.Warn("archive disabled", "error", err)
		} else {
			archive = a
			closers = append(closers, a.Close)
		}
	}

	c := pipeline.New(pipeline.Config{
		Source: snd.NewMicrophone(snd.MicrophoneConfig{
			SampleRate: cfg.SampleRate,
		}, loggers.Hear),
		Recognizer:     recognizer,
		Translator:     translator,
		Speaker:        speaker,
		Archive:        archive,
		Logger:         loggers.Main,
		Target:         cfg.Language,
		Sensitivity:    cfg.Sensitivity,
		CaptureTimeout: cfg.CaptureTimeout,
	})

	return c, func() {
		for _, fn := range closers {
			fn()
		}
	}, nil
}
