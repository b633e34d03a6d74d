package pipeline

import (
	"context"

	"node.town/tandem/snd"
)

// Microphone opens the capture device held by the capture stage for the
// whole session. Open fails with fault.ErrDeviceUnavailable.
type Microphone interface {
	Open(ctx context.Context, deviceID string) (snd.Source, error)
}

// SpeechRecognizer fails with fault.ErrNoSpeech or fault.ErrService.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, seg *snd.Segment, locale string) (string, error)
}

// Translator fails with fault.ErrService.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// VoiceDirectory never fails; unknown languages get a fixed default voice.
type VoiceDirectory interface {
	ResolveVoice(targetLang string) string
}

// SpeechSynthesizer renders text with a rate adjustment in percent.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, rate int) (*snd.Stream, error)
}

// AudioOutput plays a stream until it finishes, ctx is done or Stop is
// called.
type AudioOutput interface {
	Play(ctx context.Context, stream *snd.Stream) error
	Stop()
}
