package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestResponseFirstText(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "string content", raw: `{"message":{"role":"assistant","content":"{\"score\":1}"}}`, want: `{"score":1}`, wantOK: true},
		{name: "parts content", raw: `{"message":{"role":"assistant","content":[{"type":"text","text":"first"},{"type":"text","text":"second"}]}}`, want: "first", wantOK: true},
		{name: "empty parts", raw: `{"message":{"role":"assistant","content":[]}}`, wantOK: false},
		{name: "null content", raw: `{"message":{"role":"assistant","content":null}}`, want: "", wantOK: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var resp Response
			if err := json.Unmarshal([]byte(tt.raw), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, ok := resp.FirstText()
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("FirstText() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestContentRejectsObject(t *testing.T) {
	var c Content
	if err := json.Unmarshal([]byte(`{"text":"x"}`), &c); err == nil {
		t.Fatalf("expected error for object content")
	}
}

func TestContentMarshalKeepsShape(t *testing.T) {
	raw, err := json.Marshal(PartsContent(Part{Type: "text", Text: "hi"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `[{"type":"text","text":"hi"}]` {
		t.Fatalf("unexpected parts json %s", raw)
	}
	raw, _ = json.Marshal(TextContent("hi"))
	if string(raw) != `"hi"` {
		t.Fatalf("unexpected text json %s", raw)
	}
}

func TestBuildInstructionIncludesJobContextAndFormat(t *testing.T) {
	got := BuildInstruction("Backend Engineer", "Go, Postgres")
	for _, want := range []string{"The job title is: Backend Engineer", "The job description is: Go, Postgres", `"score": number`} {
		if !strings.Contains(got, want) {
			t.Fatalf("instruction missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(BuildInstruction("", " "), "The job title is: not provided") {
		t.Fatalf("expected placeholder for empty job title")
	}
}

func TestPlaceholderClient(t *testing.T) {
	_, err := PlaceholderClient{}.Feedback(context.Background(), FeedbackRequest{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
