package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"node.town/tandem/fault"
	"node.town/tandem/snd"
)

const (
	OpenAIDefaultVoice = string(openai.VoiceAlloy)
	openAISampleRate   = 24000
)

// OpenAI uses the speech endpoint, which takes the speed directly.
type OpenAI struct {
	client *openai.Client
	model  openai.SpeechModel
	logger *log.Logger
}

func NewOpenAI(apiKey, baseURL, model string, logger *log.Logger) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	m := openai.TTSModel1
	if model != "" {
		m = openai.SpeechModel(model)
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  m,
		logger: logger,
	}
}

func (o *OpenAI) Synthesize(
	ctx context.Context,
	text string,
	voiceID string,
	rate int,
) (*snd.Stream, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          Speed(rate),
	})
	if err != nil {
		return nil, fault.Service("openai", fmt.Errorf("failed to generate speech: %w", err))
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return nil, fault.Service("openai", fmt.Errorf("failed to read speech: %w", err))
	}
	stream := &snd.Stream{PCM: pcm, SampleRate: openAISampleRate}
	o.logger.Debug("generated",
		"voice", voiceID,
		"rate", FormatRate(rate),
		"duration", stream.Duration(),
	)
	return stream, nil
}
