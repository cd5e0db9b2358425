package setup

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"node.town/parley/config"
	"node.town/parley/lang"
)

// Answers holds everything the setup form asks for.
type Answers struct {
	Language   string
	Recognizer string
	Translator string
	Speaker    string

	DeepgramAPIKey   string
	OpenAIAPIKey     string
	GoogleAPIKey     string
	GeminiAPIKey     string
	ElevenLabsAPIKey string

	DatabaseURL string
}

// FromViper seeds the form with the current configuration.
func FromViper(v *viper.Viper) Answers {
	config.SetDefaults(v)
	return Answers{
		Language:         v.GetString("language"),
		Recognizer:       v.GetString("recognizer"),
		Translator:       v.GetString("translator"),
		Speaker:          v.GetString("speaker"),
		DeepgramAPIKey:   v.GetString("deepgram_api_key"),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		GoogleAPIKey:     v.GetString("google_api_key"),
		GeminiAPIKey:     v.GetString("gemini_api_key"),
		ElevenLabsAPIKey: v.GetString("elevenlabs_api_key"),
		DatabaseURL:      v.GetString("database_url"),
	}
}

// Apply stores the answers on v. Empty keys leave existing values alone.
func (a Answers) Apply(v *viper.Viper) {
	v.Set("language", a.Language)
	v.Set("recognizer", a.Recognizer)
	v.Set("translator", a.Translator)
	v.Set("speaker", a.Speaker)

	for key, value := range map[string]string{
		"deepgram_api_key":   a.DeepgramAPIKey,
		"openai_api_key":     a.OpenAIAPIKey,
		"google_api_key":     a.GoogleAPIKey,
		"gemini_api_key":     a.GeminiAPIKey,
		"elevenlabs_api_key": a.ElevenLabsAPIKey,
		"database_url":       a.DatabaseURL,
	} {
		if value != "" {
			v.Set(key, value)
		}
	}
}

// Save applies the answers, validates them and writes path.
func Save(v *viper.Viper, a Answers, path string) error {
	a.Apply(v)
	if _, err := config.Load(v); err != nil {
		return err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (a *Answers) form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Target language").
				Options(huh.NewOptions(lang.Names()...)...).
				Value(&a.Language),
			huh.NewSelect[string]().
				Title("Speech recognizer").
				Options(
					huh.NewOption("Deepgram", config.RecognizerDeepgram),
					huh.NewOption("OpenAI Whisper", config.RecognizerWhisper),
				).
				Value(&a.Recognizer),
			huh.NewSelect[string]().
				Title("Translator").
				Options(
					huh.NewOption("Google Cloud Translation", config.TranslatorGoogle),
					huh.NewOption("OpenAI", config.TranslatorOpenAI),
					huh.NewOption("Gemini", config.TranslatorGemini),
				).
				Value(&a.Translator),
			huh.NewSelect[string]().
				Title("Speech output").
				Options(
					huh.NewOption("espeak-ng (local)", config.SpeakerEspeak),
					huh.NewOption("ElevenLabs", config.SpeakerElevenLabs),
				).
				Value(&a.Speaker),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Deepgram API key").
				EchoMode(huh.EchoModePassword).
				Value(&a.DeepgramAPIKey),
			huh.NewInput().
				Title("OpenAI API key").
				EchoMode(huh.EchoModePassword).
				Value(&a.OpenAIAPIKey),
			huh.NewInput().
				Title("Google Cloud API key").
				EchoMode(huh.EchoModePassword).
				Value(&a.GoogleAPIKey),
			huh.NewInput().
				Title("Gemini API key").
				EchoMode(huh.EchoModePassword).
				Value(&a.GeminiAPIKey),
			huh.NewInput().
				Title("ElevenLabs API key").
				EchoMode(huh.EchoModePassword).
				Value(&a.ElevenLabsAPIKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Postgres URL for the translation archive (optional)").
				Value(&a.DatabaseURL),
		),
	)
}

// RunSetup asks for providers and keys and writes them to path.
func RunSetup(v *viper.Viper, path string, logger *log.Logger) error {
	logger.Info("starting setup")

	answers := FromViper(v)
	if err := answers.form().Run(); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}

	confirmed := true
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Write configuration to %s?", path)).
		Value(&confirmed).
		Run()
	if err != nil {
		return fmt.Errorf("setup form: %w", err)
	}
	if !confirmed {
		logger.Info("setup cancelled")
		return nil
	}

	if err := Save(v, answers, path); err != nil {
		return err
	}

	logger.Info("setup completed", "path", path)
	return nil
}
