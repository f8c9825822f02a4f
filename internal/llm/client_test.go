package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestDisabledWithoutKey(t *testing.T) {
	c := New("")
	if c.Enabled() {
		t.Fatal("client without key must be disabled")
	}
	if _, err := c.Analyze(context.Background(), "s", "u"); err == nil {
		t.Fatal("analyze on disabled client must fail")
	}
	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client must be disabled")
	}
}

func TestAnalyze(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  análisis listo  "}},
			},
		})
	}))
	defer srv.Close()

	c := New("key-1")
	c.BaseURL = srv.URL
	c.Model = "test-model"
	out, err := c.Analyze(context.Background(), "system prompt", "portfolio context")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if out != "análisis listo" {
		t.Fatalf("out = %q", out)
	}
	if gotAuth != "Bearer key-1" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 {
		t.Fatalf("request = %+v", gotReq)
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("roles = %+v", gotReq.Messages)
	}
}

func TestAnalyzeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("key-1")
	c.BaseURL = srv.URL
	_, err := c.Analyze(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v", err)
	}
}

func TestAnalyzeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := New("key-1")
	c.BaseURL = srv.URL
	if _, err := c.Analyze(context.Background(), "s", "u"); err == nil {
		t.Fatal("empty choices must be an error")
	}
}

func TestConcurrentAnalyzeSharesClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	c := New("key-1")
	c.BaseURL = srv.URL
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Analyze(context.Background(), "s", "u"); err != nil {
				t.Errorf("analyze: %v", err)
			}
		}()
	}
	wg.Wait()
}
