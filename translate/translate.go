// Package translate renders a caption from one language into another.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

type Options struct {
	Provider      string
	GoogleAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiAPIKey  string
	GeminiModel   string
}

// New builds the translator named by opts.Provider: "google", "openai" or
// "gemini".
func New(ctx context.Context, opts Options, logger *log.Logger) (Translator, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "google":
		if opts.GoogleAPIKey == "" {
			return nil, fmt.Errorf("google: missing API key")
		}
		return NewGoogle(ctx, opts.GoogleAPIKey, logger)
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: missing API key")
		}
		return NewOpenAI(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel, logger), nil
	case "gemini":
		if opts.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: missing API key")
		}
		return NewGemini(ctx, opts.GeminiAPIKey, opts.GeminiModel, logger)
	default:
		return nil, fmt.Errorf("unknown translator %q", opts.Provider)
	}
}

// Identity wraps a translator so that same-language requests never reach
// the provider.
type Identity struct {
	Translator
}

func (t Identity) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}
	return t.Translator.Translate(ctx, text, sourceLang, targetLang)
}

func prompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"Translate the user's message from the language with code %q to the language with code %q. "+
			"Reply with the translation only, no quotes and no commentary. "+
			"Keep names and product names as they are.",
		sourceLang,
		targetLang,
	)
}
