package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
)

func TestDirectoryResolution(t *testing.T) {
	d := NewDirectory("default", map[string]string{
		"hi":    "hindi-override",
		"en_GB": "british",
	})
	d.Learn(map[string]string{
		"hi": "hindi-learned",
		"fr": "french-learned",
	})
	d.Learn(map[string]string{"fr": "ignored"})

	cases := map[string]string{
		"hi":    "hindi-override",
		"hi-IN": "hindi-override",
		"en-GB": "british",
		"en-US": "default",
		"fr":    "french-learned",
		"fr-CA": "french-learned",
		"xx":    "default",
		"":      "default",
	}
	for lang, want := range cases {
		if got := d.ResolveVoice(lang); got != want {
			t.Errorf("ResolveVoice(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestFormatRate(t *testing.T) {
	cases := map[int]string{0: "+0%", 25: "+25%", -20: "-20%"}
	for rate, want := range cases {
		if got := FormatRate(rate); got != want {
			t.Errorf("FormatRate(%d) = %q, want %q", rate, got, want)
		}
	}
	if Speed(-50) != 0.5 || Speed(0) != 1 {
		t.Error("Speed does not invert the rate")
	}
}

func TestScaleRate(t *testing.T) {
	cases := []struct{ rate, want int }{
		{0, 24000},
		{50, 36000},
		{-25, 18000},
		{-90, 12000},
	}
	for _, tc := range cases {
		if got := ScaleRate(24000, tc.rate); got != tc.want {
			t.Errorf("ScaleRate(24000, %d) = %d, want %d", tc.rate, got, tc.want)
		}
	}
}

func TestByLanguage(t *testing.T) {
	got := ByLanguage([]VoiceInfo{
		{ID: "a", Name: "Aria", Language: "en"},
		{ID: "b", Name: "Bella", Language: "en"},
		{ID: "c", Name: "Chitra", Language: "hi"},
		{ID: "d", Name: "Dave"},
	})
	if len(got) != 2 || got["en"] != "a" || got["hi"] != "c" {
		t.Errorf("ByLanguage = %v", got)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	type speechRequest struct {
		Input          string  `json:"input"`
		Voice          string  `json:"voice"`
		ResponseFormat string  `json:"response_format"`
		Speed          float64 `json:"speed"`
	}
	requests := make(chan speechRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req speechRequest
		json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(make([]byte, 4800))
	}))
	defer srv.Close()

	o := NewOpenAI("k", srv.URL+"/v1", "", log.New(io.Discard))
	stream, err := o.Synthesize(context.Background(), "नमस्ते", "alloy", 25)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(stream.PCM) != 4800 || stream.SampleRate != 24000 {
		t.Errorf("stream = %d bytes at %d Hz", len(stream.PCM), stream.SampleRate)
	}
	req := <-requests
	if req.Input != "नमस्ते" || req.Voice != "alloy" || req.ResponseFormat != "pcm" || req.Speed != 1.25 {
		t.Errorf("request = %+v", req)
	}
}

func TestNewPicksProvider(t *testing.T) {
	logger := log.New(io.Discard)
	s, dir, err := New(Options{ElevenLabsAPIKey: "k"}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*ElevenLabs); !ok {
		t.Errorf("default provider = %T", s)
	}
	if dir.ResolveVoice("hi") != ElevenLabsDefaultVoice {
		t.Errorf("default voice = %q", dir.ResolveVoice("hi"))
	}

	_, dir, err = New(Options{Provider: "openai", OpenAIAPIKey: "k", Voices: map[string]string{"hi": "nova"}}, logger)
	if err != nil {
		t.Fatal(err)
	}
	if dir.ResolveVoice("hi-IN") != "nova" || dir.ResolveVoice("fr") != OpenAIDefaultVoice {
		t.Error("openai directory ignores overrides or default")
	}
	if _, _, err := New(Options{Provider: "openai"}, logger); err == nil {
		t.Error("missing key accepted")
	}
}
