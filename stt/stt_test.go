package stt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"node.town/tandem/fault"
	"node.town/tandem/snd"
)

type upload struct {
	language string
	hasFile  bool
}

func whisperServer(t *testing.T, text string, status int) (*httptest.Server, <-chan upload) {
	t.Helper()
	uploads := make(chan upload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		u := upload{language: r.FormValue("language")}
		_, u.hasFile = r.MultipartForm.File["file"]
		uploads <- u
		if status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":{"message":"nope","type":"server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	t.Cleanup(srv.Close)
	return srv, uploads
}

func testSegment() *snd.Segment {
	return &snd.Segment{Samples: make([]int16, 160), SampleRate: snd.SampleRate}
}

func TestWhisperTranscribes(t *testing.T) {
	srv, uploads := whisperServer(t, " hello world ", http.StatusOK)
	w := NewWhisper("key", srv.URL+"/v1", log.New(io.Discard))

	text, err := w.Transcribe(context.Background(), testSegment(), "hi-IN")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	u := <-uploads
	if u.language != "hi" {
		t.Errorf("language = %q, want hi", u.language)
	}
	if !u.hasFile {
		t.Error("no audio file uploaded")
	}
}

func TestWhisperBlankIsNoSpeech(t *testing.T) {
	srv, _ := whisperServer(t, "   ", http.StatusOK)
	w := NewWhisper("key", srv.URL+"/v1", log.New(io.Discard))

	_, err := w.Transcribe(context.Background(), testSegment(), "en-US")
	if !errors.Is(err, fault.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if fault.Classify(err) != fault.Ignore {
		t.Error("blank transcript should be ignored")
	}
}

func TestWhisperFailureIsServiceError(t *testing.T) {
	srv, _ := whisperServer(t, "", http.StatusInternalServerError)
	w := NewWhisper("key", srv.URL+"/v1", log.New(io.Discard))

	_, err := w.Transcribe(context.Background(), testSegment(), "en-US")
	if !errors.Is(err, fault.ErrService) {
		t.Fatalf("err = %v, want ErrService", err)
	}
}

func TestNewPicksProvider(t *testing.T) {
	logger := log.New(io.Discard)
	if r, err := New(Options{DeepgramAPIKey: "k"}, logger); err != nil {
		t.Fatal(err)
	} else if _, ok := r.(*Deepgram); !ok {
		t.Errorf("default provider = %T, want *Deepgram", r)
	}
	if r, err := New(Options{Provider: "whisper", OpenAIAPIKey: "k"}, logger); err != nil {
		t.Fatal(err)
	} else if _, ok := r.(*Whisper); !ok {
		t.Errorf("whisper provider = %T", r)
	}
	if _, err := New(Options{Provider: "deepgram"}, logger); err == nil {
		t.Error("missing key accepted")
	}
	if _, err := New(Options{Provider: "carrier-pigeon"}, logger); err == nil {
		t.Error("unknown provider accepted")
	}
}
