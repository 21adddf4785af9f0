package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resulenz-backend/internal/llm"
	"resulenz-backend/internal/render"
	"resulenz-backend/internal/shared/config"
)

func devConfig(t *testing.T) config.Config {
	return config.Config{
		Env:                "dev",
		ServiceName:        "resulenz-test",
		KVStoreType:        "memory",
		ObjectStoreType:    "local",
		LocalStoreDir:      t.TempDir(),
		LLMProvider:        "none",
		RendererType:       "native",
		RenderDPI:          72,
		ViewTTL:            time.Minute,
		AllowGuest:         true,
		RateLimitPerMinute: 600,
		RateLimitBurst:     20,
	}
}

func TestBuildDevDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), devConfig(t), Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()

	if _, ok := app.LLM.(llm.PlaceholderClient); !ok {
		t.Fatalf("expected placeholder llm, got %T", app.LLM)
	}
	if _, ok := app.Converter.(*render.Native); !ok {
		t.Fatalf("expected native renderer, got %T", app.Converter)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected healthy app, got %d", resp.Code)
	}
}

func TestBuildProductionRequiresSecretsAndProvider(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"
	if _, err := Build(context.Background(), cfg, Options{SkipRouter: true}); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
	cfg.JWTSecret = "s"
	if _, err := Build(context.Background(), cfg, Options{SkipRouter: true}); err == nil {
		t.Fatalf("expected error without LLM provider")
	}
}

func TestBuildWrapsProviderInBreaker(t *testing.T) {
	cfg := devConfig(t)
	cfg.LLMProvider = "openai"
	cfg.OpenAIAPIKey = "k"
	cfg.LLMBreakerEnabled = true
	app, err := Build(context.Background(), cfg, Options{SkipRouter: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer app.Close()
	if _, ok := app.LLM.(*llm.BreakerClient); !ok {
		t.Fatalf("expected breaker-wrapped client, got %T", app.LLM)
	}
}
