package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"node.town/tandem/fault"
)

// Gemini translates with a Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
	logger *log.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, logger *log.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{client: client, model: model, logger: logger}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) setupModel(sourceLang, targetLang string) *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.model)
	model.GenerationConfig.SetTemperature(0.1)
	model.GenerationConfig.SetMaxOutputTokens(1024)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{
			genai.Text(prompt(sourceLang, targetLang)),
		},
	}
	// Conversation is translated verbatim, rude or not.
	model.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockOnlyHigh,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockOnlyHigh,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockOnlyHigh,
		},
	}
	return model
}

func (g *Gemini) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	model := g.setupModel(sourceLang, targetLang)
	stream := model.GenerateContentStream(ctx, genai.Text(text))

	var out strings.Builder
	for {
		resp, err := stream.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", fault.Service("gemini", err)
		}
		out.WriteString(responseText(resp))
	}

	result := strings.TrimSpace(out.String())
	if result == "" {
		return "", fault.Service("gemini", fmt.Errorf("empty response"))
	}
	g.logger.Debug("translated", "source", sourceLang, "target", targetLang, "txt", result)
	return result, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
