// Package setup asks for providers and API keys and writes them to the
// config file.
package setup

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Answers are what the setup form collects.
type Answers struct {
	Recognizer  string
	Translator  string
	Synthesizer string

	DeepgramAPIKey   string
	OpenAIAPIKey     string
	GoogleAPIKey     string
	GeminiAPIKey     string
	ElevenLabsAPIKey string

	StationA string
	StationB string
}

// FromViper prefills the form with the current configuration.
func FromViper(v *viper.Viper) Answers {
	return Answers{
		Recognizer:       v.GetString("recognizer"),
		Translator:       v.GetString("translator"),
		Synthesizer:      v.GetString("synthesizer"),
		DeepgramAPIKey:   v.GetString("deepgram_api_key"),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		GoogleAPIKey:     v.GetString("google_api_key"),
		GeminiAPIKey:     v.GetString("gemini_api_key"),
		ElevenLabsAPIKey: v.GetString("elevenlabs_api_key"),
		StationA:         v.GetString("station_a.lang"),
		StationB:         v.GetString("station_b.lang"),
	}
}

func (a *Answers) form() *huh.Form {
	secret := func(title string, value *string) *huh.Input {
		return huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(value)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Speech recognition").
				Options(huh.NewOptions("deepgram", "whisper")...).
				Value(&a.Recognizer),
			huh.NewSelect[string]().
				Title("Translation").
				Options(huh.NewOptions("google", "openai", "gemini")...).
				Value(&a.Translator),
			huh.NewSelect[string]().
				Title("Speech synthesis").
				Options(huh.NewOptions("elevenlabs", "openai")...).
				Value(&a.Synthesizer),
		),
		huh.NewGroup(
			secret("Deepgram API key", &a.DeepgramAPIKey),
			secret("OpenAI API key", &a.OpenAIAPIKey),
			secret("Google Cloud Translation API key", &a.GoogleAPIKey),
			secret("Gemini API key", &a.GeminiAPIKey),
			secret("ElevenLabs API key", &a.ElevenLabsAPIKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Station A language code").
				Placeholder("en").
				Value(&a.StationA),
			huh.NewInput().
				Title("Station B language code").
				Placeholder("hi").
				Value(&a.StationB),
		),
	)
}

// Apply stores the answers in v. Blank keys leave the current value alone.
func (a Answers) Apply(v *viper.Viper) {
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("recognizer", a.Recognizer)
	set("translator", a.Translator)
	set("synthesizer", a.Synthesizer)
	set("deepgram_api_key", a.DeepgramAPIKey)
	set("openai_api_key", a.OpenAIAPIKey)
	set("google_api_key", a.GoogleAPIKey)
	set("gemini_api_key", a.GeminiAPIKey)
	set("elevenlabs_api_key", a.ElevenLabsAPIKey)
	set("station_a.lang", a.StationA)
	set("station_b.lang", a.StationB)
}

// Run shows the form and writes the result to path.
func Run(v *viper.Viper, path string, logger *log.Logger) error {
	logger.Info("Starting Tandem setup...")

	answers := FromViper(v)
	if err := answers.form().Run(); err != nil {
		return fmt.Errorf("error during setup: %w", err)
	}
	answers.Apply(v)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}
	logger.Info("Setup completed successfully!", "config", path)
	return nil
}
