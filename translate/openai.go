package translate

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

// systemPrompt instructs a chat model to act as a plain translator.
func systemPrompt(source, target string) string {
	from := "the language the text is written in (detect it)"
	if source != "" && source != Auto {
		from = fmt.Sprintf("the language with code %q", source)
	}
	return fmt.Sprintf(
		`Translate the user's text from %s into the language with code %q.
Reply with the translation only, without quotes, notes or explanations.`,
		from,
		target,
	)
}

type OpenAI struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

func NewOpenAI(apiKey string, logger *log.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai translate: missing API key")
	}
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), logger), nil
}

// NewOpenAIWithConfig allows pointing at an OpenAI-compatible server.
func NewOpenAIWithConfig(cfg openai.ClientConfig, logger *log.Logger) *OpenAI {
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4oMini,
		logger: logger,
	}
}

func (o *OpenAI) Translate(
	ctx context.Context,
	text, source, target string,
) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt(source, target),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: text,
				},
			},
			Temperature: 0.1,
		},
	)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	o.logger.Debug("translated", "to", target, "tokens", resp.Usage.TotalTokens)
	return clean(resp.Choices[0].Message.Content)
}
