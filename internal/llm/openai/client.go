package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"resulenz-backend/internal/extract"
	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/shared/metrics"
	"resulenz-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	providerName   = "openai"
)

// Options tunes the client. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// InlineText sends extracted document text instead of the PDF file part.
	InlineText bool
}

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	inlineText bool
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		inlineText: opts.InlineText,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Feedback sends the document and instruction as one user message.
func (c *Client) Feedback(ctx context.Context, req llm.FeedbackRequest) (llm.Response, error) {
	started := time.Now()
	resp, err := c.feedback(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.IncLLMRequest(providerName, outcome)
	fields := map[string]any{
		"provider":    providerName,
		"model":       c.model,
		"file_path":   req.FilePath,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err
		telemetry.Error("llm.request_failed", fields)
	}
	return resp, err
}

func (c *Client) feedback(ctx context.Context, req llm.FeedbackRequest) (llm.Response, error) {
	parts, err := c.buildParts(ctx, req)
	if err != nil {
		return llm.Response{}, err
	}
	body := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	}
	if !omitTemperature(c.model) {
		temp := float32(0)
		body.Temperature = &temp
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Response{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return llm.Response{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Response{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return llm.Response{}, fmt.Errorf("openai response parse (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return llm.Response{}, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return llm.Response{}, fmt.Errorf("openai status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openai response missing choices")
	}
	if parsed.Usage != nil {
		telemetry.Info("llm.response", map[string]any{
			"provider":          providerName,
			"model":             parsed.Model,
			"prompt_version":    llm.PromptVersion,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}
	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return llm.Response{Provider: providerName, Model: model, Message: parsed.Choices[0].Message}, nil
}

func (c *Client) buildParts(ctx context.Context, req llm.FeedbackRequest) ([]contentPart, error) {
	if c.inlineText {
		text, err := extract.PDFText(ctx, req.Document)
		if err != nil {
			return nil, fmt.Errorf("openai inline text: %w", err)
		}
		return []contentPart{
			{Type: "text", Text: req.Instruction},
			{Type: "text", Text: "Resume text:\n" + text},
		}, nil
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = extract.MimePDF
	}
	name := req.FileName
	if name == "" {
		name = "resume.pdf"
	}
	return []contentPart{
		{Type: "text", Text: req.Instruction},
		{Type: "file", File: &filePart{
			Filename: name,
			FileData: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(req.Document),
		}},
	}, nil
}

// omitTemperature reports models that reject an explicit temperature.
func omitTemperature(model string) bool {
	if isGPT5(model) {
		return true
	}
	m := strings.ToLower(strings.TrimSpace(model))
	for _, denied := range strings.Split(os.Getenv("LLM_NO_TEMP0_MODELS"), ",") {
		if d := strings.ToLower(strings.TrimSpace(denied)); d != "" && d == m {
			return true
		}
	}
	return false
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
