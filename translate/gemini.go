package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Gemini struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

func NewGemini(ctx context.Context, apiKey string, logger *log.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini translate: missing API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini translate: %w", err)
	}
	return &Gemini{
		client: client,
		model:  "gemini-1.5-flash",
		logger: logger,
	}, nil
}

func (g *Gemini) Translate(
	ctx context.Context,
	text, source, target string,
) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.GenerationConfig.SetTemperature(0.1)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt(source, target))},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("gemini translate: %w", err)
	}
	return clean(responseText(resp))
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}

func (g *Gemini) Close() error {
	return g.client.Close()
}
