package resumes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resulenz-backend/internal/blobref"
	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/render"
	"resulenz-backend/internal/shared/storage/kv"
	"resulenz-backend/internal/shared/storage/kv/memory"
	"resulenz-backend/internal/shared/storage/object/local"
)

const validFeedbackJSON = `{"score": 80, "summary": "Solid backend résumé.", "strengths": ["Clear layout"], "weaknesses": ["No metrics"], "improvements": ["Quantify impact"]}`

type stubLLM struct {
	resp  llm.Response
	err   error
	calls int
	last  llm.FeedbackRequest
}

func (s *stubLLM) Feedback(ctx context.Context, req llm.FeedbackRequest) (llm.Response, error) {
	s.calls++
	s.last = req
	return s.resp, s.err
}

func textResponse(text string) llm.Response {
	return llm.Response{Provider: "stub", Model: "stub-1", Message: llm.Message{Role: "assistant", Content: llm.TextContent(text)}}
}

type stubConverter struct {
	img   render.Image
	err   error
	calls int
}

func (s *stubConverter) FirstPage(ctx context.Context, pdf []byte, fileName string) (render.Image, error) {
	s.calls++
	if s.err != nil {
		return render.Image{}, s.err
	}
	return s.img, nil
}

func pngConverter() *stubConverter {
	return &stubConverter{img: render.Image{Data: []byte("\x89PNG fake"), ContentType: render.ContentTypePNG, FileName: "resume.png"}}
}

// countingKV records every Set.
type countingKV struct {
	kv.Store
	mu   sync.Mutex
	sets []kvWrite
	fail error
}

type kvWrite struct {
	Namespace, Key, Value string
}

func (c *countingKV) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	if c.fail != nil {
		return c.fail
	}
	c.mu.Lock()
	c.sets = append(c.sets, kvWrite{namespace, key, value})
	c.mu.Unlock()
	return c.Store.Set(ctx, namespace, key, value, ttl)
}

func (c *countingKV) writes() []kvWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]kvWrite(nil), c.sets...)
}

// countingRefs counts revocations per token.
type countingRefs struct {
	*blobref.Registry
	mu      sync.Mutex
	revokes map[string]int
	created int
}

func newCountingRefs() *countingRefs {
	return &countingRefs{Registry: blobref.New("/api/v1/objects/", time.Minute), revokes: map[string]int{}}
}

func (c *countingRefs) Create(data []byte, contentType string) (blobref.Ref, error) {
	ref, err := c.Registry.Create(data, contentType)
	if err == nil {
		c.mu.Lock()
		c.created++
		c.mu.Unlock()
	}
	return ref, err
}

func (c *countingRefs) Revoke(token string) bool {
	c.mu.Lock()
	c.revokes[token]++
	c.mu.Unlock()
	return c.Registry.Revoke(token)
}

func (c *countingRefs) totalRevokes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.revokes {
		n += v
	}
	return n
}

type fixture struct {
	svc   *Service
	kv    *countingKV
	refs  *countingRefs
	llm   *stubLLM
	conv  *stubConverter
	blobs *local.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		kv:    &countingKV{Store: memory.New(nil)},
		refs:  newCountingRefs(),
		llm:   &stubLLM{resp: textResponse(validFeedbackJSON)},
		conv:  pngConverter(),
		blobs: local.New(t.TempDir()),
	}
	f.svc = &Service{
		Blobs:     f.blobs,
		Repo:      NewRepo(f.kv),
		Converter: f.conv,
		LLM:       f.llm,
		Refs:      f.refs,
		Now:       func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return f
}

var errBoom = errors.New("boom")
