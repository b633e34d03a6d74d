package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"node.town/tandem/fault"
	"node.town/tandem/session"
)

// recognize transcribes queued segments into the live caption and keeps
// the live translation fresh.
type recognize struct {
	worker
	recognizer SpeechRecognizer
	translator Translator
	fix        *Corrector
	now        func() time.Time

	// lastCall is when the translator was last called, successful or not.
	lastCall time.Time
	// pending is a live caption the throttle held back.
	pending string
}

func (r *recognize) run(ctx context.Context) {
	r.logger.Info("recognition started", "generation", r.gen)
	defer r.logger.Info("recognition stopped", "generation", r.gen)

	for r.live(ctx) {
		captured, ok := r.state.Audio.Get(ctx, r.timing.QueuePoll)
		if !ok {
			r.catchUp(ctx)
			continue
		}
		if captured.Generation != r.gen || captured.Segment == nil {
			r.logger.Debug("dropping stale segment", "generation", captured.Generation)
			continue
		}
		r.segment(ctx, captured)
	}
}

func (r *recognize) segment(ctx context.Context, captured session.Captured) {
	dir := r.state.Settings().Direction()
	r.status("Processing")

	callCtx, cancel := r.call(ctx)
	text, err := r.recognizer.Transcribe(callCtx, captured.Segment, dir.SourceLocale)
	cancel()
	if !r.live(ctx) {
		return
	}
	silence := fmt.Sprintf("Silence (%s)", strings.ToUpper(dir.SourceLang))
	if err != nil {
		if fault.Classify(err) == fault.Report {
			r.logger.Warn("transcription failed", "locale", dir.SourceLocale, "error", err)
			r.report("Recognition Error: %v", err)
		}
		r.status(silence)
		return
	}

	fragment := r.fix.Fix(text, dir.SourceLocale)
	if fragment == "" {
		r.status(silence)
		return
	}
	caption, ok := r.state.AppendCaption(r.gen, fragment)
	if !ok {
		return
	}
	r.logger.Debug("heard", "fragment", fragment, "caption", caption)
	r.translate(ctx, dir, caption)
}

// catchUp translates a caption the throttle held back once the interval
// has passed with no new fragment arriving.
func (r *recognize) catchUp(ctx context.Context) {
	if r.pending == "" {
		return
	}
	caption, _ := r.state.Live()
	if caption != r.pending {
		r.pending = ""
		return
	}
	if r.now().Sub(r.lastCall) < r.timing.TranslateInterval {
		return
	}
	r.translate(ctx, r.state.Settings().Direction(), caption)
}

func (r *recognize) translate(ctx context.Context, dir session.Direction, caption string) {
	if dir.SourceLang == dir.TargetLang {
		r.pending = ""
		r.state.SetTranslation(r.gen, caption, caption)
		return
	}
	if r.now().Sub(r.lastCall) < r.timing.TranslateInterval {
		r.pending = caption
		return
	}

	r.pending = ""
	r.lastCall = r.now()
	r.status(fmt.Sprintf("%s -> %s", strings.ToUpper(dir.SourceLang), strings.ToUpper(dir.TargetLang)))

	callCtx, cancel := r.call(ctx)
	out, err := r.translator.Translate(callCtx, caption, dir.SourceLang, dir.TargetLang)
	cancel()
	if !r.live(ctx) {
		return
	}
	if err != nil {
		r.logger.Warn("translation failed", "source", dir.SourceLang, "target", dir.TargetLang, "error", err)
		r.report("Translation Error: %v", err)
		r.pending = caption
		return
	}
	if !r.state.SetTranslation(r.gen, caption, out) {
		r.logger.Debug("dropping translation of a finished caption", "caption", caption)
	}
	r.status(session.StatusIdle)
}
