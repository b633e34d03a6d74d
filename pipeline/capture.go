package pipeline

import (
	"context"
	"errors"

	"node.town/tandem/fault"
	"node.town/tandem/snd"
)

// capture holds the microphone open for the whole session and feeds
// detected phrases into the audio queue.
type capture struct {
	worker
	mic Microphone
}

func (c *capture) run(ctx context.Context) {
	c.logger.Info("capture started", "generation", c.gen)
	defer c.logger.Info("capture stopped", "generation", c.gen)

	for c.live(ctx) {
		deviceID := c.state.Settings().DeviceID
		c.status("Opening")
		src, err := c.mic.Open(ctx, deviceID)
		if err != nil {
			if !c.live(ctx) {
				return
			}
			c.logger.Error("failed to open microphone", "device", deviceID, "error", err)
			c.report("Device Init Error: %v", err)
			c.status("Off")
			c.sleep(ctx, c.timing.DeviceBackoff)
			continue
		}

		c.logger.Info("microphone open", "device", deviceID)
		err = c.listen(ctx, src)
		if cerr := src.Close(); cerr != nil {
			c.logger.Warn("failed to close microphone", "error", cerr)
		}
		if err != nil && c.live(ctx) {
			c.logger.Error("microphone failed", "error", err)
			c.report("Device Error: %v", err)
			c.status("Error")
			c.sleep(ctx, c.timing.DeviceBackoff)
		}
	}
}

// listen runs listen cycles against an open source. It returns a non-nil
// error only when the device has to be reopened.
func (c *capture) listen(ctx context.Context, src snd.Source) error {
	for c.live(ctx) {
		settings := c.state.Settings()

		if c.state.ConsumeCalibration(c.gen) {
			c.calibrate(ctx, src)
			continue
		}

		if c.state.Speaking() {
			c.status("Paused")
			c.sleep(ctx, c.timing.SpeakingIdle)
			continue
		}

		c.status("Listening")
		seg, err := src.Listen(ctx, snd.ListenOptions{
			Threshold: settings.Sensitivity,
			Timeout:   c.timing.ListenTimeout,
			MaxPhrase: c.timing.MaxPhrase,
		})
		switch fault.Classify(err) {
		case fault.Ignore:
			if err != nil {
				continue
			}
		case fault.Backoff:
			return err
		default:
			if !c.live(ctx) {
				return nil
			}
			c.logger.Warn("listen failed", "error", err)
			c.report("Capture Error: %v", err)
			c.status("Error")
			c.sleep(ctx, c.timing.ListenErrorBackoff)
			continue
		}

		// Playback may have started while we were listening; that audio
		// is our own voice.
		if seg == nil || c.state.Speaking() || !c.live(ctx) {
			continue
		}
		if err := c.state.Audio.Put(ctx, c.gen, seg); err != nil {
			return nil
		}
		c.logger.Debug("segment", "duration", seg.Duration(), "queued", c.state.Audio.Len())
		c.state.ClearError(c.gen)
	}
	return nil
}

func (c *capture) calibrate(ctx context.Context, src snd.Source) {
	c.status("Calibrating")
	c.logger.Info("calibrating", "duration", c.timing.Calibration)
	threshold, err := src.Calibrate(ctx, c.timing.Calibration)
	if err != nil {
		if errors.Is(err, context.Canceled) || !c.live(ctx) {
			return
		}
		c.logger.Warn("calibration failed", "error", err)
		c.report("Calibration Error: %v", err)
		c.status("Calibration Failed")
		return
	}
	if c.state.ApplyCalibration(c.gen, threshold) {
		c.logger.Info("calibrated", "threshold", threshold)
	}
}
