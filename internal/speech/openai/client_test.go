package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesize(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3 bytes"))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Model:   "tts-1",
		Voice:   "onyx",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	audio, err := client.Synthesize(context.Background(), "What hides in the deep?")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3 bytes" {
		t.Errorf("audio = %q", audio)
	}
	if payload["input"] != "What hides in the deep?" || payload["voice"] != "onyx" || payload["model"] != "tts-1" {
		t.Errorf("payload = %v", payload)
	}
	if payload["response_format"] != "mp3" {
		t.Errorf("response_format = %v", payload["response_format"])
	}
}

func TestSynthesizeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad voice"}}`))
	}))
	defer server.Close()

	client, _ := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/", Model: "tts-1", Voice: "x"})
	if _, err := client.Synthesize(context.Background(), "hi"); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{Model: "tts-1"}); err == nil {
		t.Error("expected error without api key")
	}
}
