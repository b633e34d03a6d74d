// Package tts renders translated text as 16-bit mono PCM.
package tts

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"node.town/tandem/snd"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, rate int) (*snd.Stream, error)
}

type Options struct {
	Provider         string
	ElevenLabsAPIKey string
	ElevenLabsModel  string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	// Voices override the voice for a language or locale.
	Voices map[string]string
	// DefaultVoice is used when nothing else matches.
	DefaultVoice string
}

// New builds the synthesizer named by opts.Provider, "elevenlabs" or
// "openai", together with the voice directory for it.
func New(opts Options, logger *log.Logger) (Synthesizer, *Directory, error) {
	switch strings.ToLower(opts.Provider) {
	case "", "elevenlabs":
		if opts.ElevenLabsAPIKey == "" {
			return nil, nil, fmt.Errorf("elevenlabs: missing API key")
		}
		dir := NewDirectory(or(opts.DefaultVoice, ElevenLabsDefaultVoice), opts.Voices)
		return NewElevenLabs(opts.ElevenLabsAPIKey, opts.ElevenLabsModel, logger), dir, nil
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("openai: missing API key")
		}
		dir := NewDirectory(or(opts.DefaultVoice, OpenAIDefaultVoice), opts.Voices)
		return NewOpenAI(opts.OpenAIAPIKey, opts.OpenAIBaseURL, opts.OpenAIModel, logger), dir, nil
	default:
		return nil, nil, fmt.Errorf("unknown speech synthesizer %q", opts.Provider)
	}
}

// FormatRate renders a rate adjustment the way speech services spell it:
// "+0%", "+25%", "-20%".
func FormatRate(rate int) string {
	if rate < 0 {
		return fmt.Sprintf("%d%%", rate)
	}
	return fmt.Sprintf("+%d%%", rate)
}

// Speed converts a rate adjustment back into a multiplier.
func Speed(rate int) float64 {
	return 1 + float64(rate)/100
}

func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
