package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastConfig(retries int) RetryConfig {
	return RetryConfig{
		MaxRetries:   retries,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryClientRetriesOnStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"429", http.StatusTooManyRequests},
		{"500", http.StatusInternalServerError},
		{"502", http.StatusBadGateway},
		{"503", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&attempts, 1) < 3 {
					w.WriteHeader(tt.status)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := NewRetryClient(server.Client(), fastConfig(3))
			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			resp, err := client.Do(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected status 200, got %d", resp.StatusCode)
			}
			if got := atomic.LoadInt32(&attempts); got != 3 {
				t.Errorf("expected 3 attempts, got %d", got)
			}
		})
	}
}

func TestRetryClientDoesNotRetryClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(status)
			}))
			defer server.Close()

			client := NewRetryClient(server.Client(), fastConfig(3))
			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			resp, err := client.Do(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != status {
				t.Errorf("expected status %d, got %d", status, resp.StatusCode)
			}
			if got := atomic.LoadInt32(&attempts); got != 1 {
				t.Errorf("expected 1 attempt, got %d", got)
			}
		})
	}
}

func TestRetryClientZeroRetriesMakesOneAttempt(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRetryClient(server.Client(), DefaultRetryConfig())
	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestRetryClientRespectsMaxRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	maxRetries := 2
	client := NewRetryClient(server.Client(), fastConfig(maxRetries))

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	// Last response body stays readable.
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Errorf("read final body: %v", err)
	}
	expectedAttempts := int32(1 + maxRetries)
	if got := atomic.LoadInt32(&attempts); got != expectedAttempts {
		t.Errorf("expected %d attempts, got %d", expectedAttempts, got)
	}
}

func TestRetryClientWithRequestBody(t *testing.T) {
	var attempts int32
	bodies := make(chan string, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- string(body)
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRetryClient(server.Client(), fastConfig(3))

	bodyContent := "test body content"
	req, _ := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(bodyContent))

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	close(bodies)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	n := 0
	for body := range bodies {
		n++
		if body != bodyContent {
			t.Errorf("attempt %d: expected body %q, got %q", n, bodyContent, body)
		}
	}
	if n != 2 {
		t.Errorf("expected 2 bodies, got %d", n)
	}
}

func TestRetryClientStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRetryClient(server.Client(), RetryConfig{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)

	start := time.Now()
	_, err := client.Do(req)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Error("retry backoff ignored context cancellation")
	}
}

func TestNewRetryClientAppliesDefaults(t *testing.T) {
	client := NewRetryClient(nil, RetryConfig{MaxRetries: -2})

	if client.client != http.DefaultClient {
		t.Error("expected http.DefaultClient when nil is passed")
	}
	if client.config.MaxRetries != 0 {
		t.Errorf("expected MaxRetries 0, got %d", client.config.MaxRetries)
	}
	if client.config.InitialDelay != 500*time.Millisecond {
		t.Errorf("expected InitialDelay 500ms, got %v", client.config.InitialDelay)
	}
	if client.config.MaxDelay != 5*time.Second {
		t.Errorf("expected MaxDelay 5s, got %v", client.config.MaxDelay)
	}
	if client.config.Multiplier != 2.0 {
		t.Errorf("expected Multiplier 2.0, got %f", client.config.Multiplier)
	}
}
