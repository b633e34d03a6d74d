package snd

import (
	"context"
	"errors"
	"math"
	"time"

	"node.town/tandem/fault"
)

const (
	stallTimeout = 2 * time.Second

	// Calibrated thresholds sit this far above the ambient energy.
	dynamicRatio = 1.5
	minThreshold = 10
)

var (
	errStalled = errors.New("no audio frames from device")
	errClosed  = errors.New("capture device closed")
)

// Frame is one callback's worth of captured samples.
type Frame struct {
	Samples []int16
	At      time.Time
}

type ListenOptions struct {
	// Threshold is the RMS energy above which a frame counts as speech.
	Threshold float64
	// Timeout bounds the wait for speech to begin.
	Timeout time.Duration
	// MaxPhrase bounds the length of a recorded phrase.
	MaxPhrase time.Duration
	// Pause is how much trailing quiet ends a phrase. It is also how much
	// audio before the onset is kept.
	Pause time.Duration
	// MinSpeech is the least amount of loud audio a phrase must contain.
	MinSpeech time.Duration
}

func (o ListenOptions) withDefaults() ListenOptions {
	if o.Timeout <= 0 {
		o.Timeout = time.Second
	}
	if o.MaxPhrase <= 0 {
		o.MaxPhrase = 3 * time.Second
	}
	if o.Pause <= 0 {
		o.Pause = 500 * time.Millisecond
	}
	if o.MinSpeech <= 0 {
		o.MinSpeech = 150 * time.Millisecond
	}
	return o
}

// Source is an open capture device.
type Source interface {
	Listen(ctx context.Context, opts ListenOptions) (*Segment, error)
	Calibrate(ctx context.Context, d time.Duration) (float64, error)
	Close() error
}

// frameSource turns a channel of frames into a Source. The device
// implementation feeds it from the capture callback.
type frameSource struct {
	frames <-chan Frame
	rate   int
	failed func() error
	close  func() error
}

func (s *frameSource) Listen(ctx context.Context, opts ListenOptions) (*Segment, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	return detectPhrase(ctx, s.frames, s.rate, opts)
}

func (s *frameSource) Calibrate(ctx context.Context, d time.Duration) (float64, error) {
	if err := s.failure(); err != nil {
		return 0, err
	}
	return measureAmbient(ctx, s.frames, s.rate, d)
}

func (s *frameSource) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func (s *frameSource) failure() error {
	if s.failed == nil {
		return nil
	}
	return s.failed()
}

// detectPhrase waits for a frame louder than the threshold, then records
// until a pause or the phrase limit.
func detectPhrase(
	ctx context.Context,
	frames <-chan Frame,
	rate int,
	opts ListenOptions,
) (*Segment, error) {
	opts = opts.withDefaults()
	start := time.Now()

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	stall := time.NewTimer(stallTimeout)
	defer stall.Stop()

	var (
		pauseN     = durationToSamples(opts.Pause, rate)
		maxN       = durationToSamples(opts.MaxPhrase, rate)
		minSpeechN = durationToSamples(opts.MinSpeech, rate)

		preroll    []Frame
		prerollN   int
		phrase     []int16
		speaking   bool
		capturedAt time.Time

		speech, silence int
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-deadline.C:
			return nil, fault.ErrTimeout

		case <-stall.C:
			return nil, fault.Device("listen", errStalled)

		case f, ok := <-frames:
			if !ok {
				return nil, fault.Device("listen", errClosed)
			}
			resetTimer(stall, stallTimeout)

			if f.At.Before(start.Add(-opts.Pause)) {
				continue
			}

			loud := RMS(f.Samples) > opts.Threshold
			n := len(f.Samples)

			if !speaking {
				if !loud {
					preroll = append(preroll, f)
					prerollN += n
					for len(preroll) > 1 && prerollN-len(preroll[0].Samples) >= pauseN {
						prerollN -= len(preroll[0].Samples)
						preroll = preroll[1:]
					}
					continue
				}

				speaking = true
				if !deadline.Stop() {
					select {
					case <-deadline.C:
					default:
					}
				}
				capturedAt = f.At
				for _, p := range preroll {
					phrase = append(phrase, p.Samples...)
				}
				preroll = nil
			}

			phrase = append(phrase, f.Samples...)
			if loud {
				speech += n
				silence = 0
			} else {
				silence += n
			}

			if silence >= pauseN || len(phrase) >= maxN {
				if speech < minSpeechN {
					return nil, fault.ErrNoSpeech
				}
				return &Segment{
					Samples:    phrase,
					SampleRate: rate,
					CapturedAt: capturedAt,
				}, nil
			}
		}
	}
}

// measureAmbient listens for d and returns a threshold just above the
// ambient energy.
func measureAmbient(
	ctx context.Context,
	frames <-chan Frame,
	rate int,
	d time.Duration,
) (float64, error) {
	start := time.Now()
	want := durationToSamples(d, rate)
	stall := time.NewTimer(stallTimeout)
	defer stall.Stop()

	var samples []int16
	for len(samples) < want {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-stall.C:
			return 0, errors.Join(fault.ErrCalibration, fault.Device("calibrate", errStalled))
		case f, ok := <-frames:
			if !ok {
				return 0, errors.Join(fault.ErrCalibration, fault.Device("calibrate", errClosed))
			}
			resetTimer(stall, stallTimeout)
			if f.At.Before(start) {
				continue
			}
			samples = append(samples, f.Samples...)
		}
	}

	return math.Max(RMS(samples)*dynamicRatio, minThreshold), nil
}

func durationToSamples(d time.Duration, rate int) int {
	return int(d * time.Duration(rate) / time.Second)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
