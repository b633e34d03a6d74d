package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"node.town/tandem/session"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Settings(); got != session.DefaultSettings() {
		t.Errorf("settings = %+v, want defaults", got)
	}
	if cfg.Timings.QuietThreshold != time.Second || cfg.Timings.FinalizePoll != 400*time.Millisecond {
		t.Errorf("timings = %+v", cfg.Timings)
	}
	if cfg.Recognizer != "deepgram" || cfg.Translator != "google" || cfg.Synthesizer != "elevenlabs" {
		t.Errorf("providers = %s/%s/%s", cfg.Recognizer, cfg.Translator, cfg.Synthesizer)
	}
	if cfg.HTTPPort != 8080 || cfg.LogFile != "tandem.log" {
		t.Errorf("http_port = %d, log_file = %q", cfg.HTTPPort, cfg.LogFile)
	}
}

func TestYAMLAndEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	cfg, err := Load(newViper(t, `
station_b:
  lang: fr
active_station: b
sensitivity: 5000
voice_speed: 1.25
translator: OpenAI
timings:
  quiet_threshold: 2.2s
debug:
  disable_synthesis: true
corrections:
  tandem app: Tandem
voices:
  fr: nova
`))
	if err != nil {
		t.Fatal(err)
	}

	s := cfg.Settings()
	if s.Active != session.StationB || s.StationB.Lang != "fr" || s.StationB.Locale != "fr-FR" {
		t.Errorf("stations = %+v", s)
	}
	if s.Sensitivity != session.MaxSensitivity || s.VoiceSpeed != 1.25 {
		t.Errorf("sliders = %v, %v", s.Sensitivity, s.VoiceSpeed)
	}
	if cfg.Translator != "openai" || cfg.OpenAIAPIKey != "from-env" {
		t.Errorf("translator = %q, key = %q", cfg.Translator, cfg.OpenAIAPIKey)
	}
	if cfg.Timings.QuietThreshold != 2200*time.Millisecond {
		t.Errorf("quiet threshold = %v", cfg.Timings.QuietThreshold)
	}
	if !cfg.Debug.DisableSynthesis || cfg.Debug.DisableCapture {
		t.Errorf("debug = %+v", cfg.Debug)
	}
	if cfg.Corrections["tandem app"] != "Tandem" || cfg.Voices["fr"] != "nova" {
		t.Errorf("maps = %v, %v", cfg.Corrections, cfg.Voices)
	}
}

func TestInvalidConfig(t *testing.T) {
	for name, yaml := range map[string]string{
		"station":    "active_station: C",
		"recognizer": "recognizer: siri",
		"language":   "station_a:\n  lang: \"\"",
	} {
		if _, err := Load(newViper(t, yaml)); err == nil {
			t.Errorf("%s: invalid config accepted", name)
		}
	}
}
