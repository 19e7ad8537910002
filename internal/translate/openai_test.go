package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenAI) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	translator := NewOpenAIWithConfig(cfg, "gpt-4o-mini")
	translator.sleep = func(time.Duration) {}
	return srv, translator
}

func TestTranslateSuccess(t *testing.T) {
	var gotSystem, gotUser string
	_, translator := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				gotSystem = m.Content
			case "user":
				gotUser = m.Content
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Hola  "}}]}`))
	})

	got, err := translator.Translate(context.Background(), "Hello", "Spanish")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "Hola" {
		t.Fatalf("expected trimmed translation, got %q", got)
	}
	if !strings.Contains(gotSystem, "Spanish") {
		t.Fatalf("expected target language in system prompt, got %q", gotSystem)
	}
	if gotUser != "Hello" {
		t.Fatalf("expected original text as user message, got %q", gotUser)
	}
}

func TestTranslateEmptyTextShortCircuits(t *testing.T) {
	var calls atomic.Int32
	_, translator := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	got, err := translator.Translate(context.Background(), "   ", "Spanish")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
	if calls.Load() != 0 {
		t.Fatal("expected no API call for empty text")
	}
}

func TestTranslateRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	_, translator := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hola"}}]}`))
	})

	got, err := translator.Translate(context.Background(), "Hello", "Spanish")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got != "Hola" {
		t.Fatalf("expected Hola, got %q", got)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestTranslateFailsAfterRetries(t *testing.T) {
	var calls atomic.Int32
	_, translator := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	})

	_, err := translator.Translate(context.Background(), "Hello", "Spanish")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "after retries") {
		t.Fatalf("expected retry exhaustion error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestTranslateStopsOnCancelledContext(t *testing.T) {
	var calls atomic.Int32
	_, translator := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := translator.Translate(ctx, "Hello", "Spanish")
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
	if calls.Load() > 1 {
		t.Fatalf("expected no retries after cancellation, got %d attempts", calls.Load())
	}
}
