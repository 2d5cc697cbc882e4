package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"voice-assistant/internal/domain"
	"voice-assistant/internal/infra/gemini"
)

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			}},
		},
	}
}

func TestClient_Generate(t *testing.T) {
	var captured struct {
		SystemInstruct *struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiReply("Hi there!"))
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", gemini.Config{
		Model:        "gemini-test",
		SystemPrompt: "You are a helpful assistant.",
	}, server.URL)

	history := []domain.Exchange{
		{Role: domain.RoleUser, Text: "earlier question", Timestamp: time.Now()},
		{Role: domain.RoleAssistant, Text: "earlier answer", Timestamp: time.Now()},
	}

	reply, err := client.Generate(context.Background(), "Hello", history)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "Hi there!" {
		t.Errorf("reply: got %q", reply)
	}

	if captured.SystemInstruct == nil || len(captured.SystemInstruct.Parts) == 0 ||
		captured.SystemInstruct.Parts[0].Text != "You are a helpful assistant." {
		t.Error("system instruction not sent")
	}

	if len(captured.Contents) != 3 {
		t.Fatalf("contents: got %d, want 3", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Errorf("history roles: got %s, %s", captured.Contents[0].Role, captured.Contents[1].Role)
	}
	if captured.Contents[2].Parts[0].Text != "Hello" {
		t.Errorf("current turn: got %q", captured.Contents[2].Parts[0].Text)
	}
}

func TestClient_Generate_SingleRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiReply("recovered"))
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", gemini.Config{Model: "gemini-test"}, server.URL)

	reply, err := client.Generate(context.Background(), "Hello", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "recovered" {
		t.Errorf("reply: got %q", reply)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls: got %d, want 2", got)
	}
}

func TestClient_Generate_NoSecondRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", gemini.Config{Model: "gemini-test"}, server.URL)

	if _, err := client.Generate(context.Background(), "Hello", nil); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls: got %d, want 2 (single retry budget)", got)
	}
}

func TestClient_Generate_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("bad-key", gemini.Config{Model: "gemini-test"}, server.URL)

	if _, err := client.Generate(context.Background(), "Hello", nil); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls: got %d, want 1 (auth errors must not be retried)", got)
	}
}

func TestClient_Generate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", gemini.Config{Model: "gemini-test"}, server.URL)

	if _, err := client.Generate(context.Background(), "Hello", nil); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
