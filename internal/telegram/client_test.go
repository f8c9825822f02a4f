package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("TOKEN123")
	c.BaseURL = srv.URL
	return c
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	})
	if err := c.SendMessage(context.Background(), 42, "hola", "Markdown"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/botTOKEN123/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != float64(42) || gotBody["text"] != "hola" || gotBody["parse_mode"] != "Markdown" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 403, "description": "bot blocked"})
	})
	err := c.SendMessage(context.Background(), 42, "hola", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Code != 403 || apiErr.Description != "bot blocked" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestGetMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": 1, "username": "iniciativas_bot"},
		})
	})
	me, err := c.GetMe(context.Background())
	if err != nil {
		t.Fatalf("getMe: %v", err)
	}
	if me.Username != "iniciativas_bot" {
		t.Fatalf("me = %+v", me)
	}
}

func TestUpdateDecoding(t *testing.T) {
	raw := `{"update_id":10,"message":{"message_id":2,"from":{"id":7,"first_name":"Ana"},"chat":{"id":9,"type":"private"},"text":"hola"}}`
	var upd Update
	if err := json.Unmarshal([]byte(raw), &upd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if upd.Message == nil || upd.Message.From.ID != 7 || upd.Message.Chat.ID != 9 || upd.Message.Text != "hola" {
		t.Fatalf("update = %+v", upd)
	}
}

func TestConcurrentSendsShareClient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{}})
	})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := c.SendMessage(context.Background(), int64(n), "hola", ""); err != nil {
				t.Errorf("send: %v", err)
			}
		}(i)
	}
	wg.Wait()
}
