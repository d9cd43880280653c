package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendNoWebhook(t *testing.T) {
	s := NewSender("", "TestBot", nil)
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	// Logs only, no HTTP call.
	s.Send("hello from test")
}

func TestSendSlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestBot", nil)
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	s.Send("match detected")

	if received["username"] != "TestBot" {
		t.Fatalf("username: got %s", received["username"])
	}
	if received["text"] == "" {
		t.Fatal("text should not be empty")
	}
}

func TestSendDiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL+"/discord/webhook", "SniperBot", nil)
	s.Send("bought token")

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "SniperBot" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSendWebhookError(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestBot", nil)
	// Must not panic; delivery is best effort.
	s.Send("this will fail gracefully")
}

func TestDefaultBotName(t *testing.T) {
	s := NewSender("", "", nil)
	if s.botName != "TweetSniper" {
		t.Fatalf("expected default bot name, got %s", s.botName)
	}
}
