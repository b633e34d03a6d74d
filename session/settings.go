package session

import "strings"

// Station is one of the two conversing parties.
type Station string

const (
	StationA Station = "A"
	StationB Station = "B"
)

// Other returns the opposite station.
func (s Station) Other() Station {
	if s == StationB {
		return StationA
	}
	return StationB
}

func (s Station) Valid() bool {
	return s == StationA || s == StationB
}

// ParseStation accepts "a", "A", "b" or "B".
func ParseStation(v string) (Station, bool) {
	st := Station(strings.ToUpper(strings.TrimSpace(v)))
	return st, st.Valid()
}

// Voice is a station's language code ("hi") and recognition locale ("hi-IN").
type Voice struct {
	Lang   string `json:"lang" mapstructure:"lang"`
	Locale string `json:"locale" mapstructure:"locale"`
}

const (
	MinSensitivity = 10
	MaxSensitivity = 800
	MinVoiceSpeed  = 0.5
	MaxVoiceSpeed  = 2.0
)

// Settings is copied out of the State under its lock; a copy is never
// shared between goroutines.
type Settings struct {
	StationA Voice   `json:"station_a"`
	StationB Voice   `json:"station_b"`
	Active   Station `json:"active_station"`

	// Sensitivity is the RMS energy threshold for speech onset.
	Sensitivity float64 `json:"sensitivity"`
	// VoiceSpeed multiplies the playback rate of synthesized speech.
	VoiceSpeed float64 `json:"voice_speed"`
	// CalibrateNoise is a one-shot request cleared by the capture stage.
	CalibrateNoise bool `json:"calibrate_noise"`
	// DeviceID selects the capture device; empty means the system default.
	DeviceID string `json:"device_id"`
}

func DefaultSettings() Settings {
	return Settings{
		StationA:    Voice{Lang: "en", Locale: "en-US"},
		StationB:    Voice{Lang: "hi", Locale: "hi-IN"},
		Active:      StationA,
		Sensitivity: 120,
		VoiceSpeed:  1.0,
	}
}

func (s Settings) Voice(st Station) Voice {
	if st == StationB {
		return s.StationB
	}
	return s.StationA
}

// Direction is the translation direction for the active station.
type Direction struct {
	Speaker      Station
	SourceLang   string
	SourceLocale string
	TargetLang   string
}

func (s Settings) Direction() Direction {
	src := s.Voice(s.Active)
	dst := s.Voice(s.Active.Other())
	return Direction{
		Speaker:      s.Active,
		SourceLang:   src.Lang,
		SourceLocale: src.Locale,
		TargetLang:   dst.Lang,
	}
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
