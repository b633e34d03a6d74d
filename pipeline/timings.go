package pipeline

import "time"

// Timings are the intervals the stages poll, wait and back off with.
type Timings struct {
	ListenTimeout      time.Duration `mapstructure:"listen_timeout"`
	MaxPhrase          time.Duration `mapstructure:"max_phrase"`
	Calibration        time.Duration `mapstructure:"calibration"`
	QueuePoll          time.Duration `mapstructure:"queue_poll"`
	SpeakingIdle       time.Duration `mapstructure:"speaking_idle"`
	DeviceBackoff      time.Duration `mapstructure:"device_backoff"`
	ListenErrorBackoff time.Duration `mapstructure:"listen_error_backoff"`
	TranslateInterval  time.Duration `mapstructure:"translate_interval"`
	FinalizePoll       time.Duration `mapstructure:"finalize_poll"`
	QuietThreshold     time.Duration `mapstructure:"quiet_threshold"`
	ServiceTimeout     time.Duration `mapstructure:"service_timeout"`
}

// DefaultTimings finalizes an utterance after one quiet second.
func DefaultTimings() Timings {
	return Timings{
		ListenTimeout:      time.Second,
		MaxPhrase:          3 * time.Second,
		Calibration:        time.Second,
		QueuePoll:          200 * time.Millisecond,
		SpeakingIdle:       100 * time.Millisecond,
		DeviceBackoff:      3 * time.Second,
		ListenErrorBackoff: time.Second,
		TranslateInterval:  500 * time.Millisecond,
		FinalizePoll:       400 * time.Millisecond,
		QuietThreshold:     time.Second,
		ServiceTimeout:     15 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultTimings.
func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.ListenTimeout, d.ListenTimeout)
	fill(&t.MaxPhrase, d.MaxPhrase)
	fill(&t.Calibration, d.Calibration)
	fill(&t.QueuePoll, d.QueuePoll)
	fill(&t.SpeakingIdle, d.SpeakingIdle)
	fill(&t.DeviceBackoff, d.DeviceBackoff)
	fill(&t.ListenErrorBackoff, d.ListenErrorBackoff)
	fill(&t.TranslateInterval, d.TranslateInterval)
	fill(&t.FinalizePoll, d.FinalizePoll)
	fill(&t.QuietThreshold, d.QuietThreshold)
	fill(&t.ServiceTimeout, d.ServiceTimeout)
	return t
}
