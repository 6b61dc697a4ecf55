package groq

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelcrew/internal/llm"
)

func groqResponse(content string, withChoice bool) string {
	choices := "[]"
	if withChoice {
		c, _ := json.Marshal(content)
		choices = `[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":` + string(c) + `}}]`
	}
	return `{"id":"test-id","object":"chat.completion","created":1234567890,"model":"llama3-8b-8192","choices":` +
		choices + `,"usage":{"prompt_tokens":10,"completion_tokens":20,"total_tokens":30}}`
}

func TestComplete(t *testing.T) {
	tests := []struct {
		name           string
		jsonMode       bool
		statusCode     int
		responseBody   string
		want           string
		wantErr        error
		wantErrContain string
	}{
		{
			name:         "successfulGeneration",
			statusCode:   http.StatusOK,
			responseBody: groqResponse("Why do stars twinkle?", true),
			want:         "Why do stars twinkle?",
		},
		{
			name:         "jsonMode",
			jsonMode:     true,
			statusCode:   http.StatusOK,
			responseBody: groqResponse(`{"captions":[]}`, true),
			want:         `{"captions":[]}`,
		},
		{
			name:         "emptyResponse",
			statusCode:   http.StatusOK,
			responseBody: groqResponse("", true),
			wantErr:      llm.ErrEmptyResponse,
		},
		{
			name:         "noChoices",
			statusCode:   http.StatusOK,
			responseBody: groqResponse("", false),
			wantErr:      llm.ErrNoChoices,
		},
		{
			name:           "httpErrorUnauthorized",
			statusCode:     http.StatusUnauthorized,
			responseBody:   `{"error": {"message": "invalid api key", "type": "authentication_error"}}`,
			wantErrContain: "generate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&body)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client, err := NewClient("test-api-key", "llama3-8b-8192", 0.7, WithBaseURL(server.URL+"/"))
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}

			got, err := client.Complete(context.Background(), llm.Request{
				System: "You write scripts.",
				User:   "stars",
				JSON:   tt.jsonMode,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Complete() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantErrContain != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrContain) {
					t.Errorf("Complete() error = %v, want error containing %q", err, tt.wantErrContain)
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Complete() = %q, want %q", got, tt.want)
			}
			if _, ok := body["response_format"]; ok != tt.jsonMode {
				t.Errorf("response_format present = %v, want %v", ok, tt.jsonMode)
			}
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", "llama3-8b-8192", 0.7); err == nil {
		t.Error("expected error for empty api key")
	}
}
