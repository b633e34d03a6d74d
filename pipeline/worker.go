package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"node.town/tandem/session"
)

// worker is what every stage knows about the session it was spawned into.
type worker struct {
	state  *session.State
	gen    uint64
	stage  session.Stage
	timing Timings
	logger *log.Logger
}

// live reports whether the worker should keep going: its session has not
// been stopped and no newer session has started.
func (w *worker) live(ctx context.Context) bool {
	return ctx.Err() == nil && w.state.Current(w.gen)
}

func (w *worker) status(label string) {
	w.state.SetStatus(w.gen, w.stage, label)
}

func (w *worker) report(format string, args ...any) {
	w.state.SetError(w.gen, format, args...)
}

// sleep waits for d and reports whether the worker is still live.
func (w *worker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return w.live(ctx)
}

// call bounds one network request by the service timeout. Results that
// arrive after the session moved on are dropped by the generation checks.
func (w *worker) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, w.timing.ServiceTimeout)
}
