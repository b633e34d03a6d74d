// Package fault names the ways a collaborator call can fail and what the
// pipeline does about each of them.
package fault

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable means the capture or playback device could not be
	// opened, or failed hard while open.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrTimeout means nothing crossed the energy threshold before the
	// per-attempt listen timeout.
	ErrTimeout = errors.New("listen timeout")

	// ErrNoSpeech means audio was heard but nothing was recognized in it.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrService is wrapped by every transcription, translation and synthesis
	// failure.
	ErrService = errors.New("service error")

	// ErrCalibration is wrapped by ambient noise calibration failures.
	ErrCalibration = errors.New("calibration failed")
)

type Kind int

const (
	// Ignore: the loop continues silently.
	Ignore Kind = iota
	// Report: surfaced through the error field and worker status; the stage
	// moves on to the next unit of work.
	Report
	// Backoff: surfaced, then the stage waits before reacquiring its device.
	Backoff
)

func (k Kind) String() string {
	switch k {
	case Ignore:
		return "ignore"
	case Report:
		return "report"
	case Backoff:
		return "backoff"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Classify maps an error from any collaborator to its handling policy.
// Context cancellation is ignored since it only happens on stop.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return Ignore
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrNoSpeech),
		errors.Is(err, context.Canceled):
		return Ignore
	case errors.Is(err, ErrDeviceUnavailable):
		return Backoff
	default:
		return Report
	}
}

// Service wraps a provider failure so that it matches ErrService.
func Service(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrService) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrService, err)
}

// Device wraps a hardware failure so that it matches ErrDeviceUnavailable.
func Device(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDeviceUnavailable, err)
}
