// Package stt turns captured audio segments into text.
package stt

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"node.town/tandem/fault"
	"node.town/tandem/snd"
)

type Recognizer interface {
	Transcribe(ctx context.Context, seg *snd.Segment, locale string) (string, error)
}

type Options struct {
	Provider       string
	DeepgramAPIKey string
	DeepgramModel  string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
}

// New builds the recognizer named by opts.Provider: "deepgram" or
// "whisper".
func New(opts Options, logger *log.Logger) (Recognizer, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "deepgram":
		if opts.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("deepgram: missing API key")
		}
		return NewDeepgram(opts.DeepgramAPIKey, opts.DeepgramModel, logger), nil
	case "whisper", "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("whisper: missing API key")
		}
		return NewWhisper(opts.OpenAIAPIKey, opts.OpenAIBaseURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown speech recognizer %q", opts.Provider)
	}
}

// result normalizes a provider transcript; blank means nothing was said.
func result(provider, transcript string) (string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", fmt.Errorf("%s: %w", provider, fault.ErrNoSpeech)
	}
	return transcript, nil
}
