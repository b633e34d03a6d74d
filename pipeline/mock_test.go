package pipeline

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"node.town/tandem/fault"
	"node.town/tandem/session"
	"node.town/tandem/snd"
)

type MockSource struct {
	mu           sync.Mutex
	segments     []*snd.Segment
	listens      int
	calibrations int
	threshold    float64
	closed       bool
}

func (m *MockSource) Listen(ctx context.Context, opts snd.ListenOptions) (*snd.Segment, error) {
	m.mu.Lock()
	m.listens++
	if len(m.segments) > 0 {
		seg := m.segments[0]
		m.segments = m.segments[1:]
		m.mu.Unlock()
		return seg, nil
	}
	m.mu.Unlock()

	select {
	case <-time.After(opts.Timeout):
		return nil, fault.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *MockSource) Calibrate(ctx context.Context, d time.Duration) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calibrations++
	return m.threshold, nil
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockSource) Listens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listens
}

type MockMicrophone struct {
	mu     sync.Mutex
	source snd.Source
	err    error
	opens  int
}

func (m *MockMicrophone) Open(ctx context.Context, deviceID string) (snd.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens++
	if m.err != nil {
		return nil, m.err
	}
	return m.source, nil
}

func (m *MockMicrophone) Opens() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

type MockRecognizer struct {
	mu      sync.Mutex
	results []recognized
	calls   int
	// started, when set, receives a value as each call begins.
	started chan struct{}
	// release, when set, must yield before a call returns.
	release chan struct{}
}

type recognized struct {
	text string
	err  error
}

func (m *MockRecognizer) Transcribe(ctx context.Context, seg *snd.Segment, locale string) (string, error) {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.results) == 0 {
		return "", fault.ErrNoSpeech
	}
	r := m.results[0]
	if len(m.results) > 1 {
		m.results = m.results[1:]
	}
	return r.text, r.err
}

type MockTranslator struct {
	mu    sync.Mutex
	calls []time.Time
	fn    func(text, src, tgt string) (string, error)
}

func (m *MockTranslator) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, time.Now())
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return tgt + ":" + text, nil
	}
	return fn(text, src, tgt)
}

func (m *MockTranslator) Calls() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.calls...)
}

type MockVoices struct{}

func (MockVoices) ResolveVoice(lang string) string {
	return "voice-" + lang
}

type MockSynthesizer struct {
	mu    sync.Mutex
	calls []synthCall
	err   func(text string) error
}

type synthCall struct {
	text  string
	voice string
	rate  int
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voice string, rate int) (*snd.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, synthCall{text, voice, rate})
	if m.err != nil {
		if err := m.err(text); err != nil {
			return nil, err
		}
	}
	return &snd.Stream{PCM: []byte(text), SampleRate: 24000}, nil
}

func (m *MockSynthesizer) Calls() []synthCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]synthCall(nil), m.calls...)
}

// MockOutput records what it played. With block set, Play waits for Stop or
// ctx.
type MockOutput struct {
	mu       sync.Mutex
	played   []string
	block    bool
	stops    int
	speaking []bool
	state    *session.State
	stopped  chan struct{}
}

func (m *MockOutput) Play(ctx context.Context, stream *snd.Stream) error {
	m.mu.Lock()
	m.played = append(m.played, string(stream.PCM))
	if m.state != nil {
		m.speaking = append(m.speaking, m.state.Speaking())
	}
	if m.stopped == nil {
		m.stopped = make(chan struct{})
	}
	stopped := m.stopped
	block := m.block
	m.mu.Unlock()

	if !block {
		return nil
	}
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockOutput) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	if m.stopped != nil {
		close(m.stopped)
		m.stopped = nil
	}
}

func (m *MockOutput) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.played...)
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func fastTimings() Timings {
	return Timings{
		ListenTimeout:      10 * time.Millisecond,
		MaxPhrase:          50 * time.Millisecond,
		Calibration:        10 * time.Millisecond,
		QueuePoll:          5 * time.Millisecond,
		SpeakingIdle:       5 * time.Millisecond,
		DeviceBackoff:      20 * time.Millisecond,
		ListenErrorBackoff: 5 * time.Millisecond,
		TranslateInterval:  20 * time.Millisecond,
		FinalizePoll:       10 * time.Millisecond,
		QuietThreshold:     50 * time.Millisecond,
		ServiceTimeout:     time.Second,
	}
}

func testWorker(state *session.State, gen uint64, stage session.Stage, timings Timings) worker {
	return worker{
		state:  state,
		gen:    gen,
		stage:  stage,
		timing: timings,
		logger: testLogger(),
	}
}

func segment() *snd.Segment {
	return &snd.Segment{
		Samples:    make([]int16, 1600),
		SampleRate: snd.SampleRate,
		CapturedAt: time.Now(),
	}
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// CountingMicrophone tracks how many of its sources are open at once.
// Closing a source takes closeDelay, like releasing a real device.
type CountingMicrophone struct {
	mu         sync.Mutex
	open       int
	maxOpen    int
	opens      int
	closeDelay time.Duration
}

func (m *CountingMicrophone) Open(ctx context.Context, deviceID string) (snd.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open++
	m.opens++
	if m.open > m.maxOpen {
		m.maxOpen = m.open
	}
	return &countedSource{mic: m}, nil
}

func (m *CountingMicrophone) Stats() (opens, maxOpen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens, m.maxOpen
}

type countedSource struct {
	MockSource
	mic *CountingMicrophone
}

func (s *countedSource) Close() error {
	time.Sleep(s.mic.closeDelay)
	s.mic.mu.Lock()
	defer s.mic.mu.Unlock()
	s.mic.open--
	return nil
}
