package tts

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/haguro/elevenlabs-go"

	"node.town/tandem/fault"
	"node.town/tandem/snd"
)

const (
	ElevenLabsDefaultVoice = "pKLLpypGseGMUjkb5fEZ"
	elevenLabsSampleRate   = 24000
)

// ElevenLabs streams raw PCM from the ElevenLabs API. The API has no rate
// control, so the rate adjustment is applied to the playback sample rate.
type ElevenLabs struct {
	apiKey string
	model  string
	logger *log.Logger
}

func NewElevenLabs(apiKey, model string, logger *log.Logger) *ElevenLabs {
	if model == "" {
		model = "eleven_turbo_v2_5"
	}
	return &ElevenLabs{apiKey: apiKey, model: model, logger: logger}
}

func (e *ElevenLabs) Synthesize(
	ctx context.Context,
	text string,
	voiceID string,
	rate int,
) (*snd.Stream, error) {
	client := elevenlabs.NewClient(ctx, e.apiKey, 30*time.Second)
	ttsReq := elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: e.model,
	}

	var buf bytes.Buffer
	err := client.TextToSpeechStream(
		&buf,
		voiceID,
		ttsReq,
		elevenlabs.OutputFormat(fmt.Sprintf("pcm_%d", elevenLabsSampleRate)),
	)
	if err != nil {
		return nil, fault.Service("elevenlabs", fmt.Errorf("failed to generate speech: %w", err))
	}

	stream := &snd.Stream{
		PCM:        buf.Bytes(),
		SampleRate: ScaleRate(elevenLabsSampleRate, rate),
	}
	e.logger.Debug("generated",
		"voice", voiceID,
		"rate", FormatRate(rate),
		"duration", stream.Duration(),
	)
	return stream, nil
}

type VoiceInfo struct {
	ID       string
	Name     string
	Language string
	Accent   string
}

// Voices lists the voices available to the account.
func (e *ElevenLabs) Voices(ctx context.Context) ([]VoiceInfo, error) {
	client := elevenlabs.NewClient(ctx, e.apiKey, 30*time.Second)
	voices, err := client.GetVoices()
	if err != nil {
		return nil, fault.Service("elevenlabs", fmt.Errorf("failed to list voices: %w", err))
	}
	out := make([]VoiceInfo, 0, len(voices))
	for _, v := range voices {
		out = append(out, VoiceInfo{
			ID:       v.VoiceId,
			Name:     v.Name,
			Language: v.Labels["language"],
			Accent:   v.Labels["accent"],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ByLanguage picks one voice per labelled language, first by name.
func ByLanguage(voices []VoiceInfo) map[string]string {
	out := make(map[string]string)
	for _, v := range voices {
		if v.Language == "" {
			continue
		}
		if _, ok := out[v.Language]; !ok {
			out[v.Language] = v.ID
		}
	}
	return out
}

// ScaleRate speeds up or slows down raw PCM by changing the rate it is
// played at. The result never drops below half the base rate.
func ScaleRate(base, rate int) int {
	scaled := base * (100 + rate) / 100
	if scaled < base/2 {
		return base / 2
	}
	return scaled
}
