package snd

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"

	"node.town/tandem/fault"
)

// DeviceInfo describes a capture device.
type DeviceInfo struct {
	ID        string
	Name      string
	IsDefault bool
}

// Devices lists the capture devices known to the default backend.
func Devices() ([]DeviceInfo, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fault.Device("init audio context", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fault.Device("list capture devices", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:        info.ID.String(),
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// Microphone opens capture devices. The returned Source keeps the device
// open until it is closed; opening and closing per phrase is not reliable
// on real hardware.
type Microphone struct {
	logger *log.Logger
}

func NewMicrophone(logger *log.Logger) *Microphone {
	return &Microphone{logger: logger}
}

// Open opens the capture device whose id or name matches deviceID, or the
// system default when deviceID is empty.
func (m *Microphone) Open(ctx context.Context, deviceID string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.logger.Debug("miniaudio", "msg", message)
	})
	if err != nil {
		return nil, fault.Device("init audio context", err)
	}

	release := func() {
		_ = mctx.Uninit()
		mctx.Free()
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = SampleRate
	cfg.Alsa.NoMMap = 1

	if deviceID != "" {
		infos, err := mctx.Devices(malgo.Capture)
		if err != nil {
			release()
			return nil, fault.Device("list capture devices", err)
		}
		found := false
		for _, info := range infos {
			if info.ID.String() == deviceID || info.Name() == deviceID {
				cfg.Capture.DeviceID = info.ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			release()
			return nil, fault.Device("open", fmt.Errorf("no capture device %q", deviceID))
		}
	}

	frames := make(chan Frame, 64)
	var stopped atomic.Bool

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			select {
			case frames <- Frame{Samples: Int16s(input), At: time.Now()}:
			default:
				// nobody is listening; drop
			}
		},
		Stop: func() {
			stopped.Store(true)
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		release()
		return nil, fault.Device("init capture device", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		release()
		return nil, fault.Device("start capture device", err)
	}

	m.logger.Info("open", "device", deviceID)

	var once sync.Once
	return &frameSource{
		frames: frames,
		rate:   SampleRate,
		failed: func() error {
			if stopped.Load() {
				return fault.Device("listen", errClosed)
			}
			return nil
		},
		close: func() error {
			once.Do(func() {
				device.Uninit()
				release()
				m.logger.Info("close", "device", deviceID)
			})
			return nil
		},
	}, nil
}

// Speaker plays synthesized speech on the default output device, one
// stream at a time.
type Speaker struct {
	logger *log.Logger

	mu        sync.Mutex
	interrupt chan struct{}
}

func NewSpeaker(logger *log.Logger) *Speaker {
	return &Speaker{logger: logger}
}

// Play blocks until the stream has been played, ctx is done, or Stop is
// called.
func (s *Speaker) Play(ctx context.Context, stream *Stream) error {
	interrupt := make(chan struct{})
	s.mu.Lock()
	s.interrupt = interrupt
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.interrupt == interrupt {
			s.interrupt = nil
		}
		s.mu.Unlock()
	}()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fault.Device("init audio context", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(stream.SampleRate)
	cfg.Alsa.NoMMap = 1

	reader := bytes.NewReader(stream.PCM)
	done := make(chan struct{})
	var finished sync.Once

	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			n, _ := reader.Read(output)
			for i := n; i < len(output); i++ {
				output[i] = 0
			}
			if reader.Len() == 0 {
				finished.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		return fault.Device("init playback device", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fault.Device("start playback device", err)
	}

	s.logger.Debug("play", "duration", stream.Duration())

	select {
	case <-done:
		// let the last buffer drain
		time.Sleep(100 * time.Millisecond)
		return nil
	case <-interrupt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop interrupts the current playback, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interrupt != nil {
		close(s.interrupt)
		s.interrupt = nil
	}
}
