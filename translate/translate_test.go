package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"google.golang.org/api/option"

	"node.town/tandem/fault"
)

type MockTranslator struct {
	calls int
}

func (m *MockTranslator) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	m.calls++
	return tgt + ":" + text, nil
}

func TestIdentitySkipsSameLanguage(t *testing.T) {
	inner := &MockTranslator{}
	tr := Identity{inner}

	out, err := tr.Translate(context.Background(), "Hello", "en", "en")
	if err != nil || out != "Hello" {
		t.Fatalf("got %q, %v", out, err)
	}
	if inner.calls != 0 {
		t.Fatal("provider called for same-language text")
	}
	if out, _ := tr.Translate(context.Background(), "Hello", "en", "hi"); out != "hi:Hello" {
		t.Errorf("got %q", out)
	}
}

type query struct {
	q, target, source, format, key string
}

func TestGoogleTranslate(t *testing.T) {
	queries := make(chan query, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		queries <- query{
			q:      r.Form.Get("q"),
			target: r.Form.Get("target"),
			source: r.Form.Get("source"),
			format: r.Form.Get("format"),
			key:    r.Form.Get("key"),
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"translations":[{"translatedText":"Tom &amp; Jerry"}]}}`)
	}))
	defer srv.Close()

	g, err := NewGoogle(
		context.Background(),
		"secret",
		log.New(io.Discard),
		option.WithEndpoint(srv.URL+"/language/translate/"),
	)
	if err != nil {
		t.Fatal(err)
	}

	out, err := g.Translate(context.Background(), "Tom and Jerry", "en", "hi")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "Tom & Jerry" {
		t.Errorf("out = %q", out)
	}
	q := <-queries
	want := query{q: "Tom and Jerry", target: "hi", source: "en", format: "text", key: "secret"}
	if q != want {
		t.Errorf("query = %+v, want %+v", q, want)
	}
}

func TestGoogleFailureIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"quota exceeded"}}`)
	}))
	defer srv.Close()

	g, err := NewGoogle(context.Background(), "k", log.New(io.Discard), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = g.Translate(context.Background(), "x", "en", "hi")
	if !errors.Is(err, fault.ErrService) || fault.Classify(err) != fault.Report {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenAITranslate(t *testing.T) {
	prompts := make(chan []map[string]string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Messages []map[string]string `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		prompts <- req.Messages
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":" नमस्ते \n"}}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI("k", srv.URL+"/v1", "", log.New(io.Discard))
	out, err := o.Translate(context.Background(), "Hello", "en", "hi")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "नमस्ते" {
		t.Errorf("out = %q", out)
	}
	messages := <-prompts
	if len(messages) != 2 || messages[0]["role"] != "system" || messages[1]["content"] != "Hello" {
		t.Errorf("messages = %v", messages)
	}
}

func TestNewPicksProvider(t *testing.T) {
	logger := log.New(io.Discard)
	ctx := context.Background()
	if tr, err := New(ctx, Options{Provider: "openai", OpenAIAPIKey: "k"}, logger); err != nil {
		t.Fatal(err)
	} else if _, ok := tr.(*OpenAI); !ok {
		t.Errorf("openai provider = %T", tr)
	}
	if tr, err := New(ctx, Options{GoogleAPIKey: "k"}, logger); err != nil {
		t.Fatal(err)
	} else if _, ok := tr.(*Google); !ok {
		t.Errorf("default provider = %T", tr)
	}
	if _, err := New(ctx, Options{Provider: "gemini"}, logger); err == nil {
		t.Error("missing gemini key accepted")
	}
	if _, err := New(ctx, Options{Provider: "babelfish"}, logger); err == nil {
		t.Error("unknown provider accepted")
	}
}
