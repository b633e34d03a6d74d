// Package session holds the state shared by the pipeline stages and the
// presentation layer: settings, the live utterance, history, worker status
// and the two queues between stages.
//
// Every field behind the mutex is only touched for the duration of a single
// mutation; no method calls out to I/O or to another locking method while
// holding it. Writes made on behalf of a pipeline worker carry the worker's
// generation and are dropped when that generation is no longer current.
package session

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"node.town/tandem/etc"
	"node.town/tandem/langs"
)

// Stage names a pipeline worker in the status map.
type Stage string

const (
	StageCapture    Stage = "capture"
	StageRecognize  Stage = "recognize"
	StageFinalize   Stage = "finalize"
	StageSynthesize Stage = "synthesize"
)

// Stages lists the workers in dependency order.
var Stages = []Stage{StageCapture, StageRecognize, StageFinalize, StageSynthesize}

const StatusIdle = "Idle"

// Entry is a committed utterance. It is never modified after creation.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Speaker    Station   `json:"speaker"`
	Confidence float64   `json:"confidence"`
}

// View is a point-in-time copy of everything the presentation layer reads.
type View struct {
	Settings    Settings         `json:"settings"`
	Caption     string           `json:"caption"`
	Translation string           `json:"translation"`
	History     []Entry          `json:"history"`
	Status      map[Stage]string `json:"status"`
	Error       string           `json:"error"`
	Generation  uint64           `json:"generation"`
	Speaking    bool             `json:"speaking"`
}

type State struct {
	mu          sync.Mutex
	settings    Settings
	caption     string
	translation string
	history     []Entry
	status      map[Stage]string
	errMsg      string

	generation atomic.Uint64
	speaking   atomic.Bool

	Audio *AudioQueue
	Jobs  *JobSlot

	now   func() time.Time
	newID func() string
}

func New(settings Settings) *State {
	s := &State{
		settings: settings,
		status:   make(map[Stage]string, len(Stages)),
		Audio:    NewAudioQueue(64),
		Jobs:     NewJobSlot(),
		now:      time.Now,
		newID:    etc.NewFreshID,
	}
	for _, stage := range Stages {
		s.status[stage] = StatusIdle
	}
	return s
}

// Settings returns a copy of the current settings.
func (s *State) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies fn to the settings under the lock.
func (s *State) UpdateSettings(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
}

// SetStationLanguage selects a station's language and its default locale.
// The live utterance is discarded because it no longer matches.
func (s *State) SetStationLanguage(st Station, lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := Voice{Lang: lang, Locale: langs.DefaultLocale(lang)}
	if st == StationB {
		s.settings.StationB = v
	} else {
		s.settings.StationA = v
	}
	s.resetLiveLocked()
}

func (s *State) SetStationLocale(st Station, locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == StationB {
		s.settings.StationB.Locale = locale
	} else {
		s.settings.StationA.Locale = locale
	}
	s.resetLiveLocked()
}

// SetActiveStation reports whether the active station changed.
func (s *State) SetActiveStation(st Station) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings.Active == st {
		return false
	}
	s.settings.Active = st
	s.resetLiveLocked()
	return true
}

func (s *State) SetSensitivity(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Sensitivity = clamp(v, MinSensitivity, MaxSensitivity)
}

func (s *State) SetVoiceSpeed(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.VoiceSpeed = clamp(v, MinVoiceSpeed, MaxVoiceSpeed)
}

func (s *State) SetDevice(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.DeviceID = id
}

// RequestCalibration asks the capture stage for one ambient noise
// calibration pass.
func (s *State) RequestCalibration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.CalibrateNoise = true
	s.errMsg = "Calibrating..."
}

// ConsumeCalibration clears a pending calibration request and reports
// whether there was one.
func (s *State) ConsumeCalibration(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) || !s.settings.CalibrateNoise {
		return false
	}
	s.settings.CalibrateNoise = false
	return true
}

// ApplyCalibration stores a measured threshold as the new sensitivity.
func (s *State) ApplyCalibration(gen uint64, threshold float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return false
	}
	s.settings.Sensitivity = clamp(threshold, MinSensitivity, MaxSensitivity)
	if s.errMsg == "Calibrating..." {
		s.errMsg = ""
	}
	return true
}

// Generation is the current session generation; zero before the first
// start.
func (s *State) Generation() uint64 {
	return s.generation.Load()
}

// Current reports whether gen is still the current generation.
func (s *State) Current(gen uint64) bool {
	return s.generation.Load() == gen
}

// Advance starts a new generation. Workers holding an older one stop
// writing immediately.
func (s *State) Advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation.Add(1)
}

func (s *State) currentLocked(gen uint64) bool {
	return s.generation.Load() == gen
}

// Live returns the live caption and translation.
func (s *State) Live() (caption, translation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caption, s.translation
}

// AppendCaption space-joins fragment onto the live caption and returns the
// result.
func (s *State) AppendCaption(gen uint64, fragment string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return "", false
	}
	s.caption = strings.TrimSpace(s.caption + " " + fragment)
	return s.caption, true
}

// SetTranslation stores text as the translation of caption. It is dropped
// unless caption is exactly the live caption, so a late translation never
// lands on a caption that has grown or on the next utterance.
func (s *State) SetTranslation(gen uint64, caption, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) || s.caption == "" || s.caption != caption {
		return false
	}
	s.translation = text
	return true
}

// Commit moves the live utterance into history, provided the caption is
// still the one the caller observed. The live utterance is reset.
func (s *State) Commit(gen uint64, caption string, dir Direction) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) || caption == "" || s.caption != caption {
		return Entry{}, false
	}
	entry := Entry{
		ID:         s.newID(),
		Timestamp:  s.now(),
		Original:   s.caption,
		Translated: s.translation,
		SourceLang: dir.SourceLang,
		TargetLang: dir.TargetLang,
		Speaker:    dir.Speaker,
		Confidence: 1.0,
	}
	s.history = append([]Entry{entry}, s.history...)
	s.resetLiveLocked()
	return entry, true
}

// ResetLive discards the live utterance.
func (s *State) ResetLive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLiveLocked()
}

func (s *State) resetLiveLocked() {
	s.caption = ""
	s.translation = ""
}

// History returns the committed entries, most recent first.
func (s *State) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *State) SetStatus(gen uint64, stage Stage, label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return false
	}
	s.status[stage] = label
	return true
}

// ResetStatus marks every stage idle.
func (s *State) ResetStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stage := range Stages {
		s.status[stage] = StatusIdle
	}
}

func (s *State) Status() map[Stage]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Stage]string, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

func (s *State) SetError(gen uint64, format string, args ...any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return false
	}
	s.errMsg = fmt.Sprintf(format, args...)
	return true
}

func (s *State) ClearError(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentLocked(gen) {
		s.errMsg = ""
	}
}

func (s *State) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// SetSpeaking raises or lowers the half-duplex flag on behalf of the
// synthesis worker of generation gen. Capture does not listen while it is
// set.
func (s *State) SetSpeaking(gen uint64, v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return false
	}
	s.speaking.Store(v)
	return true
}

// ClearSpeaking lowers the half-duplex flag regardless of generation.
func (s *State) ClearSpeaking() {
	s.speaking.Store(false)
}

func (s *State) Speaking() bool {
	return s.speaking.Load()
}

func (s *State) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]Entry, len(s.history))
	copy(history, s.history)
	status := make(map[Stage]string, len(s.status))
	for k, v := range s.status {
		status[k] = v
	}
	return View{
		Settings:    s.settings,
		Caption:     s.caption,
		Translation: s.translation,
		History:     history,
		Status:      status,
		Error:       s.errMsg,
		Generation:  s.generation.Load(),
		Speaking:    s.speaking.Load(),
	}
}
