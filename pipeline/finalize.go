package pipeline

import (
	"context"
	"time"

	"node.town/tandem/session"
)

// finalize commits the live utterance once its caption has stopped
// changing for the quiet threshold.
type finalize struct {
	worker
	now func() time.Time
}

func (f *finalize) run(ctx context.Context) {
	f.logger.Info("finalizer started", "generation", f.gen, "quiet", f.timing.QuietThreshold)
	defer f.logger.Info("finalizer stopped", "generation", f.gen)

	ticker := time.NewTicker(f.timing.FinalizePoll)
	defer ticker.Stop()

	var last string
	since := f.now()
	for f.live(ctx) {
		caption, _ := f.state.Live()
		switch {
		case caption == "" || caption != last:
			last = caption
			since = f.now()
		case f.now().Sub(since) >= f.timing.QuietThreshold:
			f.commit(caption)
			last = ""
			since = f.now()
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (f *finalize) commit(caption string) {
	dir := f.state.Settings().Direction()
	entry, ok := f.state.Commit(f.gen, caption, dir)
	if !ok {
		return
	}
	f.status("Committed")
	f.logger.Info("committed",
		"id", entry.ID,
		"speaker", entry.Speaker,
		"original", entry.Original,
		"translated", entry.Translated,
	)

	// A job still waiting belongs to an older utterance.
	if n := f.state.Jobs.Drain(); n > 0 {
		f.logger.Debug("dropped pending speech job", "count", n)
	}
	if entry.Translated == "" {
		f.logger.Warn("nothing to speak", "id", entry.ID)
		return
	}
	f.state.Jobs.Offer(session.Job{
		Generation: f.gen,
		Text:       entry.Translated,
		TargetLang: entry.TargetLang,
	})
}
