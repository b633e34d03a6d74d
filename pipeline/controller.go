// Package pipeline runs the four stages of a translation session: capture,
// recognition with translation, finalization and synthesis. Each stage is a
// goroutine bound to one session generation; starting a new session makes
// every older worker stop writing, even if it has not yet seen its context
// cancelled.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"node.town/tandem/session"
)

// Deps are the collaborators the stages call out to.
type Deps struct {
	Microphone  Microphone
	Recognizer  SpeechRecognizer
	Translator  Translator
	Voices      VoiceDirectory
	Synthesizer SpeechSynthesizer
	Output      AudioOutput
}

type Options struct {
	Timings Timings
	// DisableCapture and DisableSynthesis leave the stage out entirely.
	DisableCapture   bool
	DisableSynthesis bool
	Corrections      map[string]string
	Logger           *log.Logger
	Now              func() time.Time
}

type Controller struct {
	state  *session.State
	deps   Deps
	opts   Options
	fix    *Corrector
	logger *log.Logger

	// op serializes Start, Stop, Flush and Close.
	op sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	// devices tracks the workers of the latest generation that hold the
	// microphone or the speaker.
	devices *sync.WaitGroup
}

func NewController(state *session.State, deps Deps, opts Options) *Controller {
	opts.Timings = opts.Timings.withDefaults()
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		state:  state,
		deps:   deps,
		opts:   opts,
		fix:    NewCorrector(opts.Corrections),
		logger: opts.Logger.WithPrefix("main"),
	}
}

func (c *Controller) State() *session.State {
	return c.state
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Start spawns the stage workers under a new generation. It reports false
// when a session is already running. It waits for the previous session to
// let go of the audio devices first.
func (c *Controller) Start() bool {
	c.op.Lock()
	defer c.op.Unlock()
	return c.start()
}

func (c *Controller) start() bool {
	if c.Running() {
		return false
	}
	c.releaseDevices()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Whatever the old capture worker queued on its way out is stale.
	c.state.Audio.Drain()

	gen := c.state.Advance()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	devices := &sync.WaitGroup{}
	c.devices = devices

	var names []string
	for _, s := range c.stages(gen) {
		names = append(names, string(s.stage))
		c.wg.Add(1)
		if s.device {
			devices.Add(1)
		}
		go func(s stage) {
			defer c.wg.Done()
			if s.device {
				defer devices.Done()
			}
			s.run(ctx)
		}(s)
	}
	c.logger.Info("session started", "generation", gen, "stages", names)
	return true
}

// releaseDevices blocks until the previous generation's capture and
// synthesis workers have returned.
func (c *Controller) releaseDevices() {
	c.mu.Lock()
	devices := c.devices
	c.mu.Unlock()
	if devices == nil {
		return
	}
	start := time.Now()
	devices.Wait()
	c.logger.Debug("devices released", "waited", time.Since(start))
}

// Stop cancels the running session, interrupts playback and discards
// whatever is still queued. It is safe to call at any time.
func (c *Controller) Stop() {
	c.op.Lock()
	defer c.op.Unlock()
	c.stop()
}

func (c *Controller) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasRunning := c.running
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
	if wasRunning {
		// Retire the generation so a worker that has not yet noticed the
		// cancellation cannot write anything more.
		c.state.Advance()
	}

	if c.deps.Output != nil {
		c.deps.Output.Stop()
	}
	segments := c.state.Audio.Drain()
	jobs := c.state.Jobs.Drain()
	c.state.ClearSpeaking()
	c.state.ResetStatus()

	if wasRunning {
		c.logger.Info("session stopped", "dropped_segments", segments, "dropped_jobs", jobs)
	}
}

// Flush restarts a running session, throwing away any partial audio.
func (c *Controller) Flush() {
	c.op.Lock()
	defer c.op.Unlock()
	if !c.Running() {
		return
	}
	c.stop()
	c.start()
}

// Close stops the session and waits for every worker to return.
func (c *Controller) Close() {
	c.op.Lock()
	defer c.op.Unlock()
	c.stop()
	c.wg.Wait()
	// A worker may have written between the drain and its exit.
	c.state.Audio.Drain()
	c.state.Jobs.Drain()
	c.state.ResetStatus()
}

type stage struct {
	stage  session.Stage
	run    func(context.Context)
	// device is set for stages that hold the microphone or the speaker.
	device bool
}

func (c *Controller) stages(gen uint64) []stage {
	base := func(s session.Stage, prefix string) worker {
		return worker{
			state:  c.state,
			gen:    gen,
			stage:  s,
			timing: c.opts.Timings,
			logger: c.opts.Logger.WithPrefix(prefix),
		}
	}

	var out []stage
	if !c.opts.DisableCapture {
		w := &capture{worker: base(session.StageCapture, "mic"), mic: c.deps.Microphone}
		out = append(out, stage{session.StageCapture, w.run, true})
	}
	r := &recognize{
		worker:     base(session.StageRecognize, "hear"),
		recognizer: c.deps.Recognizer,
		translator: c.deps.Translator,
		fix:        c.fix,
		now:        c.opts.Now,
	}
	out = append(out, stage{session.StageRecognize, r.run, false})
	f := &finalize{worker: base(session.StageFinalize, "done"), now: c.opts.Now}
	out = append(out, stage{session.StageFinalize, f.run, false})
	if !c.opts.DisableSynthesis {
		s := &synthesize{
			worker: base(session.StageSynthesize, "talk"),
			voices: c.deps.Voices,
			synth:  c.deps.Synthesizer,
			output: c.deps.Output,
		}
		out = append(out, stage{session.StageSynthesize, s.run, true})
	}
	return out
}
