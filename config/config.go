package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"node.town/parley/lang"
	"node.town/parley/pipeline"
	"node.town/parley/tts"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	RecognizerDeepgram = "deepgram"
	RecognizerWhisper  = "whisper"

	TranslatorGoogle = "google"
	TranslatorOpenAI = "openai"
	TranslatorGemini = "gemini"

	SpeakerEspeak     = "espeak"
	SpeakerElevenLabs = "elevenlabs"
)

type Config struct {
	Language    lang.Language
	Sensitivity float64

	CaptureTimeout time.Duration
	SampleRate     int

	Recognizer string
	Translator string
	Speaker    string

	Speech            tts.Options
	ElevenLabsVoiceID string

	DeepgramAPIKey   string
	OpenAIAPIKey     string
	GoogleAPIKey     string
	GeminiAPIKey     string
	ElevenLabsAPIKey string

	DatabaseURL string
	LogFile     string
}

// SetDefaults registers the default for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("language", lang.DefaultName)
	v.SetDefault("sensitivity", pipeline.DefaultSensitivity)
	v.SetDefault("capture.timeout", time.Duration(0))
	v.SetDefault("capture.sample_rate", 16000)
	v.SetDefault("recognizer", RecognizerDeepgram)
	v.SetDefault("translator", TranslatorGoogle)
	v.SetDefault("speaker", SpeakerEspeak)
	v.SetDefault("speech.rate", tts.DefaultRate)
	v.SetDefault("speech.volume", tts.DefaultVolume)
	v.SetDefault("speech.voice", "")
	v.SetDefault("elevenlabs_voice_id", tts.DefaultVoiceID)
	v.SetDefault("log_file", "parley.log")
}

// Load reads every key from v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	language, err := lang.ByName(v.GetString("language"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	cfg := &Config{
		Language:       language,
		Sensitivity:    pipeline.ClampSensitivity(v.GetFloat64("sensitivity")),
		CaptureTimeout: v.GetDuration("capture.timeout"),
		SampleRate:     v.GetInt("capture.sample_rate"),

		Recognizer: normalize(v.GetString("recognizer")),
		Translator: normalize(v.GetString("translator")),
		Speaker:    normalize(v.GetString("speaker")),

		Speech: tts.Options{
			Rate:   v.GetInt("speech.rate"),
			Volume: v.GetFloat64("speech.volume"),
			Voice:  v.GetString("speech.voice"),
		}.Normalized(),
		ElevenLabsVoiceID: v.GetString("elevenlabs_voice_id"),

		DeepgramAPIKey:   v.GetString("deepgram_api_key"),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		GoogleAPIKey:     v.GetString("google_api_key"),
		GeminiAPIKey:     v.GetString("gemini_api_key"),
		ElevenLabsAPIKey: v.GetString("elevenlabs_api_key"),

		DatabaseURL: v.GetString("database_url"),
		LogFile:     v.GetString("log_file"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Validate checks provider names and the sample rate. Missing API keys are
// reported when the provider is constructed.
func (c *Config) Validate() error {
	switch c.Recognizer {
	case RecognizerDeepgram, RecognizerWhisper:
	default:
		return fmt.Errorf("%w: unknown recognizer %q", ErrInvalid, c.Recognizer)
	}

	switch c.Translator {
	case TranslatorGoogle, TranslatorOpenAI, TranslatorGemini:
	default:
		return fmt.Errorf("%w: unknown translator %q", ErrInvalid, c.Translator)
	}

	switch c.Speaker {
	case SpeakerEspeak, SpeakerElevenLabs:
	default:
		return fmt.Errorf("%w: unknown speaker %q", ErrInvalid, c.Speaker)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: capture.sample_rate must be positive", ErrInvalid)
	}
	if c.CaptureTimeout < 0 {
		return fmt.Errorf("%w: capture.timeout must not be negative", ErrInvalid)
	}
	return nil
}
