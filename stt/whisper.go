package stt

import (
	"bytes"
	"context"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"node.town/tandem/fault"
	"node.town/tandem/langs"
	"node.town/tandem/snd"
)

// Whisper transcribes through the OpenAI audio API.
type Whisper struct {
	client *openai.Client
	logger *log.Logger
}

func NewWhisper(apiKey, baseURL string, logger *log.Logger) *Whisper {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Whisper{
		client: openai.NewClientWithConfig(config),
		logger: logger,
	}
}

func (w *Whisper) Transcribe(
	ctx context.Context,
	seg *snd.Segment,
	locale string,
) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "segment.wav",
		Reader:   bytes.NewReader(snd.EncodeWAV(seg)),
		Language: langs.Base(locale),
	})
	if err != nil {
		return "", fault.Service("whisper", err)
	}
	w.logger.Debug("hear", "txt", resp.Text, "locale", locale)
	return result("whisper", resp.Text)
}
