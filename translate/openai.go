package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"node.town/tandem/fault"
)

// OpenAI translates with a chat completion.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

func NewOpenAI(apiKey, baseURL, model string, logger *log.Logger) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger,
	}
}

func (o *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: prompt(sourceLang, targetLang),
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
		return "", fault.Service("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", fault.Service("openai", fmt.Errorf("no choices in response"))
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.logger.Debug("translated", "source", sourceLang, "target", targetLang, "txt", out)
	return out, nil
}
