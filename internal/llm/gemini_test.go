package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiChat(t *testing.T) {
	var gotReq geminiRequest
	var gotPath, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"text": "Here is "}, {"text": "your plan."}},
					},
					"finishReason": "STOP",
				},
			},
			"usageMetadata": map[string]any{
				"promptTokenCount":     42,
				"candidatesTokenCount": 7,
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "test-key", nil)
	resp, err := c.Chat(context.Background(), "gemini-1.5-flash", []Message{
		{Role: "system", Content: "You are a coach."},
		{Role: "user", Content: "Make me a plan."},
	}, Options{Temperature: 0.7})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotReq.SystemInstruction == nil || gotReq.SystemInstruction.Parts[0].Text != "You are a coach." {
		t.Error("system message not mapped to systemInstruction")
	}
	if len(gotReq.Contents) != 1 || gotReq.Contents[0].Role != "user" {
		t.Errorf("contents = %+v", gotReq.Contents)
	}
	if gotReq.GenerationConfig.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotReq.GenerationConfig.Temperature)
	}

	if resp.Content != "Here is your plan." {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.InputTokens != 42 || resp.OutputTokens != 7 {
		t.Errorf("tokens = %d/%d, want 42/7", resp.InputTokens, resp.OutputTokens)
	}
}

func TestGeminiChatAssistantRole(t *testing.T) {
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "ok"}}}},
			},
		})
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "k", nil)
	_, err := c.Chat(context.Background(), "m", []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "again"},
	}, Options{})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if len(gotReq.Contents) != 3 {
		t.Fatalf("contents = %d, want 3", len(gotReq.Contents))
	}
	if gotReq.Contents[1].Role != "model" {
		t.Errorf("assistant role mapped to %q, want model", gotReq.Contents[1].Role)
	}
}

func TestGeminiChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "k", nil)
	_, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, Options{})
	if err == nil {
		t.Fatal("expected error")
	}

	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("error %T is not *InvocationError", err)
	}
	if invErr.Provider != "gemini" {
		t.Errorf("provider = %q", invErr.Provider)
	}
}

func TestGeminiChatNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := NewGeminiClient(srv.URL, "k", nil)
	_, err := c.Chat(context.Background(), "m", []Message{{Role: "user", Content: "hi"}}, Options{})

	var invErr *InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("error %T is not *InvocationError", err)
	}
}
