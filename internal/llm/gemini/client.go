package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"resulenz-backend/internal/extract"
	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/shared/metrics"
	"resulenz-backend/internal/shared/telemetry"
	"resulenz-backend/internal/shared/tracing"
)

const providerName = "gemini"

// Options tunes the client.
type Options struct {
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
	Timeout time.Duration
}

// Client implements llm.Client on the Gemini API.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model, timeout: opts.Timeout}, nil
}

// Feedback sends the instruction and the PDF as inline data.
func (c *Client) Feedback(ctx context.Context, req llm.FeedbackRequest) (resp llm.Response, err error) {
	ctx, span := tracing.Start(ctx, "gemini.feedback",
		attribute.String("ai.provider", providerName),
		attribute.String("ai.model", c.model),
		attribute.Int("input.document_bytes", len(req.Document)),
	)
	defer func() {
		tracing.End(span, err)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			telemetry.Error("llm.request_failed", map[string]any{
				"provider":  providerName,
				"model":     c.model,
				"file_path": req.FilePath,
				"error":     err,
			})
		}
		metrics.IncLLMRequest(providerName, outcome)
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = extract.MimePDF
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Instruction),
			genai.NewPartFromBytes(req.Document, mimeType),
		}, genai.RoleUser),
	}
	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return llm.Response{}, fmt.Errorf("gemini response missing candidates")
	}
	if usage := result.UsageMetadata; usage != nil {
		telemetry.Info("llm.response", map[string]any{
			"provider":          providerName,
			"model":             c.model,
			"prompt_version":    llm.PromptVersion,
			"prompt_tokens":     usage.PromptTokenCount,
			"completion_tokens": usage.CandidatesTokenCount,
			"total_tokens":      usage.TotalTokenCount,
		})
	}

	parts := make([]llm.Part, 0)
	if content := result.Candidates[0].Content; content != nil {
		for _, p := range content.Parts {
			if p == nil || p.Text == "" || p.Thought {
				continue
			}
			parts = append(parts, llm.Part{Type: "text", Text: p.Text})
		}
	}
	return llm.Response{
		Provider: providerName,
		Model:    c.model,
		Message:  llm.Message{Role: "assistant", Content: llm.PartsContent(parts...)},
	}, nil
}

var _ llm.Client = (*Client)(nil)
