package pipeline

import (
	"context"
	"errors"
	"math"

	"node.town/tandem/session"
	"node.town/tandem/snd"
)

// RateAdjustment converts a speed multiplier into a percentage change:
// 1.0 is 0, 1.25 is +25, 0.8 is -20.
func RateAdjustment(speed float64) int {
	if speed <= 0 {
		return 0
	}
	return int(math.Round((speed - 1) * 100))
}

// synthesize speaks finalized translations, muting capture while it does.
type synthesize struct {
	worker
	voices VoiceDirectory
	synth  SpeechSynthesizer
	output AudioOutput
}

type synthesized struct {
	stream *snd.Stream
	err    error
}

func (s *synthesize) run(ctx context.Context) {
	s.logger.Info("synthesis started", "generation", s.gen)
	defer s.logger.Info("synthesis stopped", "generation", s.gen)

	for s.live(ctx) {
		job, ok := s.state.Jobs.Take(ctx, s.timing.QueuePoll)
		if !ok {
			continue
		}
		if job.Generation != s.gen || !s.live(ctx) {
			s.logger.Debug("dropping stale job", "generation", job.Generation)
			continue
		}
		s.speak(ctx, job)
		s.status(session.StatusIdle)
	}
}

func (s *synthesize) speak(ctx context.Context, job session.Job) {
	voice := s.voices.ResolveVoice(job.TargetLang)
	rate := RateAdjustment(s.state.Settings().VoiceSpeed)

	if !s.state.SetSpeaking(s.gen, true) {
		return
	}
	// Once the session is gone the flag belongs to whoever stopped it.
	defer s.state.SetSpeaking(s.gen, false)

	s.status("Generating")
	s.logger.Info("speaking", "voice", voice, "rate", rate, "text", job.Text)
	stream, err := s.await(ctx, job.Text, voice, rate)
	if !s.live(ctx) {
		return
	}
	if err != nil {
		s.logger.Error("synthesis failed", "voice", voice, "error", err)
		s.report("Speech Error: %v", err)
		return
	}

	s.status("Speaking")
	if err := s.output.Play(ctx, stream); err != nil && s.live(ctx) {
		s.logger.Error("playback failed", "error", err)
		s.report("Playback Error: %v", err)
	}
}

// await runs synthesis in its own goroutine so that a stop is noticed even
// while the provider is still working.
func (s *synthesize) await(ctx context.Context, text, voice string, rate int) (*snd.Stream, error) {
	done := make(chan synthesized, 1)
	go func() {
		callCtx, cancel := s.call(ctx)
		defer cancel()
		stream, err := s.synth.Synthesize(callCtx, text, voice, rate)
		done <- synthesized{stream: stream, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.stream == nil {
			return nil, errors.New("synthesizer returned no audio")
		}
		return r.stream, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
