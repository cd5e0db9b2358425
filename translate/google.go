package translate

import (
	"context"
	"fmt"
	"html"

	"github.com/charmbracelet/log"
	"google.golang.org/api/option"
	gtranslate "google.golang.org/api/translate/v2"
)

// Google uses the Cloud Translation v2 API.
type Google struct {
	service *gtranslate.Service
	logger  *log.Logger
}

func NewGoogle(
	ctx context.Context,
	apiKey string,
	logger *log.Logger,
	opts ...option.ClientOption,
) (*Google, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google translate: missing API key")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := gtranslate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google translate: %w", err)
	}
	return &Google{service: service, logger: logger}, nil
}

func (g *Google) Translate(
	ctx context.Context,
	text, source, target string,
) (string, error) {
	call := g.service.Translations.List([]string{text}, target).
		Format("text").
		Context(ctx)
	if source != "" && source != Auto {
		call = call.Source(source)
	}

	resp, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	if len(resp.Translations) == 0 {
		return "", ErrEmptyTranslation
	}

	tr := resp.Translations[0]
	g.logger.Debug(
		"translated",
		"from", tr.DetectedSourceLanguage,
		"to", target,
	)
	return clean(html.UnescapeString(tr.TranslatedText))
}
