package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Client abstracts AI providers that review a résumé document.
type Client interface {
	Feedback(ctx context.Context, req FeedbackRequest) (Response, error)
}

// FeedbackRequest carries the stored document and the instruction.
type FeedbackRequest struct {
	FilePath    string // storage key, used for logging and provider file names
	Document    []byte
	FileName    string
	MimeType    string
	Instruction string
}

// Response is the provider's reply message.
type Response struct {
	Provider string  `json:"provider,omitempty"`
	Model    string  `json:"model,omitempty"`
	Message  Message `json:"message"`
}

// Message is one chat message. Content is either a string or a list of parts.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Part is one element of multi-part content.
type Part struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

// Content holds either a plain string or a list of parts.
type Content struct {
	Text  string
	Parts []Part
	// IsParts is set when the content arrived as a list.
	IsParts bool
}

// TextContent builds string content.
func TextContent(s string) Content {
	return Content{Text: s}
}

// PartsContent builds multi-part content.
func PartsContent(parts ...Part) Content {
	return Content{Parts: parts, IsParts: true}
}

// UnmarshalJSON accepts a JSON string, a list of parts, or null.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*c = Content{}
		return nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*c = TextContent(s)
		return nil
	case trimmed[0] == '[':
		var parts []Part
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		*c = PartsContent(parts...)
		return nil
	default:
		return fmt.Errorf("llm: unsupported message content %.32s", trimmed)
	}
}

// MarshalJSON writes the shape the content arrived in.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts {
		if c.Parts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// FirstText returns the string content, or the text of the first part.
// ok is false when the content is a list with no parts.
func (r Response) FirstText() (string, bool) {
	c := r.Message.Content
	if !c.IsParts {
		return c.Text, true
	}
	if len(c.Parts) == 0 {
		return "", false
	}
	return c.Parts[0].Text, true
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM provider not configured")

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Feedback returns ErrNotConfigured.
func (PlaceholderClient) Feedback(ctx context.Context, req FeedbackRequest) (Response, error) {
	_ = ctx
	_ = req
	return Response{}, ErrNotConfigured
}
