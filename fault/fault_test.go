package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Ignore},
		{"timeout", ErrTimeout, Ignore},
		{"wrapped no speech", fmt.Errorf("listen: %w", ErrNoSpeech), Ignore},
		{"canceled", context.Canceled, Ignore},
		{"device", Device("open", errors.New("busy")), Backoff},
		{"service", Service("deepgram", errors.New("502")), Report},
		{"calibration", fmt.Errorf("%w: short read", ErrCalibration), Report},
		{"unknown", errors.New("boom"), Report},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestServiceWrapsOnce(t *testing.T) {
	inner := errors.New("quota exceeded")
	err := Service("google", Service("google", inner))

	if !errors.Is(err, ErrService) {
		t.Fatal("expected ErrService")
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected inner error to be preserved")
	}
	if got, want := err.Error(), "google: service error: quota exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if Service("google", nil) != nil {
		t.Error("Service(nil) should be nil")
	}
}
