package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/shared/pdftest"
)

func TestFeedbackSendsInlinePDF(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"score\":72}"}]}}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2,"totalTokenCount":5}}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), "test-key", "gemini-2.5-flash", Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := client.Feedback(context.Background(), llm.FeedbackRequest{
		Document:    pdftest.Resume(),
		MimeType:    "application/pdf",
		Instruction: "review",
	})
	if err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	text, ok := resp.FirstText()
	if !ok || text != `{"score":72}` {
		t.Fatalf("unexpected text %q ok=%v", text, ok)
	}

	contents := captured["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	if inline["mimeType"] != "application/pdf" {
		t.Fatalf("unexpected mime type %v", inline["mimeType"])
	}
}

func TestFeedbackNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), "test-key", "gemini-2.5-flash", Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.Feedback(context.Background(), llm.FeedbackRequest{Document: []byte("%PDF-1.4")}); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "m", Options{}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := NewClient(context.Background(), "k", "", Options{}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}
