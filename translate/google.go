package translate

import (
	"context"
	"fmt"
	"html"

	"github.com/charmbracelet/log"
	"google.golang.org/api/option"
	gtranslate "google.golang.org/api/translate/v2"

	"node.town/tandem/fault"
)

// Google uses the Cloud Translation v2 API.
type Google struct {
	svc    *gtranslate.Service
	logger *log.Logger
}

func NewGoogle(ctx context.Context, apiKey string, logger *log.Logger, opts ...option.ClientOption) (*Google, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := gtranslate.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation service: %w", err)
	}
	return &Google{svc: svc, logger: logger}, nil
}

// Service is shared with the language lister.
func (g *Google) Service() *gtranslate.Service {
	return g.svc
}

func (g *Google) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	resp, err := g.svc.Translations.List([]string{text}, targetLang).
		Source(sourceLang).
		Format("text").
		Context(ctx).
		Do()
	if err != nil {
		return "", fault.Service("google", err)
	}
	if len(resp.Translations) == 0 {
		return "", fault.Service("google", fmt.Errorf("empty response"))
	}
	out := html.UnescapeString(resp.Translations[0].TranslatedText)
	g.logger.Debug("translated", "source", sourceLang, "target", targetLang, "txt", out)
	return out, nil
}
