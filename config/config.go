// Package config reads the typed configuration out of viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"node.town/tandem/langs"
	"node.town/tandem/pipeline"
	"node.town/tandem/session"
)

type Config struct {
	StationA      session.Voice `mapstructure:"station_a"`
	StationB      session.Voice `mapstructure:"station_b"`
	ActiveStation string        `mapstructure:"active_station"`
	Sensitivity   float64       `mapstructure:"sensitivity"`
	VoiceSpeed    float64       `mapstructure:"voice_speed"`
	DeviceID      string        `mapstructure:"device_id"`

	Recognizer  string `mapstructure:"recognizer"`
	Translator  string `mapstructure:"translator"`
	Synthesizer string `mapstructure:"synthesizer"`

	DeepgramAPIKey   string `mapstructure:"deepgram_api_key"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	GoogleAPIKey     string `mapstructure:"google_api_key"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	ElevenLabsAPIKey string `mapstructure:"elevenlabs_api_key"`

	Voices       map[string]string `mapstructure:"voices"`
	DefaultVoice string            `mapstructure:"default_voice"`
	Corrections  map[string]string `mapstructure:"corrections"`

	Timings pipeline.Timings `mapstructure:"timings"`
	Debug   Debug            `mapstructure:"debug"`

	HTTPPort int    `mapstructure:"http_port"`
	LogFile  string `mapstructure:"log_file"`
	Verbose  bool   `mapstructure:"verbose"`
}

// Debug switches off stages so the others can be exercised alone.
type Debug struct {
	DisableCapture   bool `mapstructure:"disable_capture"`
	DisableSynthesis bool `mapstructure:"disable_synthesis"`
}

var providers = map[string][]string{
	"recognizer":  {"deepgram", "whisper"},
	"translator":  {"google", "openai", "gemini"},
	"synthesizer": {"elevenlabs", "openai"},
}

// SetDefaults registers every key, so that AutomaticEnv can fill any of
// them from the environment.
func SetDefaults(v *viper.Viper) {
	s := session.DefaultSettings()
	// Locales are left empty so that they follow the language.
	v.SetDefault("station_a.lang", s.StationA.Lang)
	v.SetDefault("station_a.locale", "")
	v.SetDefault("station_b.lang", s.StationB.Lang)
	v.SetDefault("station_b.locale", "")
	v.SetDefault("active_station", string(s.Active))
	v.SetDefault("sensitivity", s.Sensitivity)
	v.SetDefault("voice_speed", s.VoiceSpeed)
	v.SetDefault("device_id", "")

	v.SetDefault("recognizer", "deepgram")
	v.SetDefault("translator", "google")
	v.SetDefault("synthesizer", "elevenlabs")

	for _, key := range []string{
		"deepgram_api_key",
		"openai_api_key",
		"openai_base_url",
		"google_api_key",
		"gemini_api_key",
		"elevenlabs_api_key",
		"default_voice",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("voices", map[string]string{})
	v.SetDefault("corrections", map[string]string{})

	t := pipeline.DefaultTimings()
	v.SetDefault("timings.listen_timeout", t.ListenTimeout)
	v.SetDefault("timings.max_phrase", t.MaxPhrase)
	v.SetDefault("timings.calibration", t.Calibration)
	v.SetDefault("timings.queue_poll", t.QueuePoll)
	v.SetDefault("timings.speaking_idle", t.SpeakingIdle)
	v.SetDefault("timings.device_backoff", t.DeviceBackoff)
	v.SetDefault("timings.listen_error_backoff", t.ListenErrorBackoff)
	v.SetDefault("timings.translate_interval", t.TranslateInterval)
	v.SetDefault("timings.finalize_poll", t.FinalizePoll)
	v.SetDefault("timings.quiet_threshold", t.QuietThreshold)
	v.SetDefault("timings.service_timeout", t.ServiceTimeout)

	v.SetDefault("debug.disable_capture", false)
	v.SetDefault("debug.disable_synthesis", false)

	v.SetDefault("http_port", 8080)
	v.SetDefault("log_file", "tandem.log")
	v.SetDefault("verbose", false)
}

func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, ok := session.ParseStation(c.ActiveStation); !ok {
		return fmt.Errorf("active_station must be A or B, not %q", c.ActiveStation)
	}
	for _, st := range []*session.Voice{&c.StationA, &c.StationB} {
		if st.Lang == "" {
			return fmt.Errorf("station language is required")
		}
		if st.Locale == "" {
			st.Locale = langs.DefaultLocale(st.Lang)
		}
	}

	for key, value := range map[string]*string{
		"recognizer":  &c.Recognizer,
		"translator":  &c.Translator,
		"synthesizer": &c.Synthesizer,
	} {
		*value = strings.ToLower(*value)
		if !contains(providers[key], *value) {
			return fmt.Errorf("%s must be one of %s, not %q",
				key,
				strings.Join(providers[key], ", "),
				*value,
			)
		}
	}
	return nil
}

// Settings is the initial session state described by the config, with
// sliders clamped to their ranges.
func (c *Config) Settings() session.Settings {
	active, _ := session.ParseStation(c.ActiveStation)
	return session.Settings{
		StationA:    c.StationA,
		StationB:    c.StationB,
		Active:      active,
		Sensitivity: clamp(c.Sensitivity, session.MinSensitivity, session.MaxSensitivity),
		VoiceSpeed:  clamp(c.VoiceSpeed, session.MinVoiceSpeed, session.MaxVoiceSpeed),
		DeviceID:    c.DeviceID,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
