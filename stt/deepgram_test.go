package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"node.town/tandem/fault"
)

func deepgramServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("language"); got != "en-US" {
			t.Errorf("language = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("DEEPGRAM_HOST", srv.URL)
	return srv
}

func TestDeepgramTranscribes(t *testing.T) {
	deepgramServer(t, `{"metadata":{"request_id":"x"},"results":{"channels":[{"alternatives":[{"transcript":"good morning","confidence":0.9}]}]}}`)
	d := NewDeepgram("key", "", log.New(io.Discard))

	text, err := d.Transcribe(context.Background(), testSegment(), "en-US")
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if text != "good morning" {
		t.Errorf("text = %q", text)
	}
}

func TestDeepgramResponseWithoutResults(t *testing.T) {
	deepgramServer(t, `{"metadata":{"request_id":"x"}}`)
	d := NewDeepgram("key", "", log.New(io.Discard))

	_, err := d.Transcribe(context.Background(), testSegment(), "en-US")
	if !errors.Is(err, fault.ErrService) {
		t.Fatalf("err = %v, want ErrService", err)
	}
}

func TestDeepgramEmptyChannels(t *testing.T) {
	deepgramServer(t, `{"metadata":{"request_id":"x"},"results":{"channels":[]}}`)
	d := NewDeepgram("key", "", log.New(io.Discard))

	_, err := d.Transcribe(context.Background(), testSegment(), "en-US")
	if !errors.Is(err, fault.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
}
