package setup

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestApplyWritesConfig(t *testing.T) {
	v := viper.New()
	v.Set("openai_api_key", "keep-me")
	v.Set("station_a.lang", "en")

	answers := FromViper(v)
	answers.Translator = "gemini"
	answers.GeminiAPIKey = "g-key"
	answers.StationB = "te"
	answers.Apply(v)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := v.WriteConfigAs(path); err != nil {
		t.Fatal(err)
	}

	r := viper.New()
	r.SetConfigFile(path)
	if err := r.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]string{
		"translator":     "gemini",
		"gemini_api_key": "g-key",
		"openai_api_key": "keep-me",
		"station_a.lang": "en",
		"station_b.lang": "te",
	} {
		if got := r.GetString(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}
