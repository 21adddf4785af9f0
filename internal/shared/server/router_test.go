package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resulenz-backend/internal/blobref"
	"resulenz-backend/internal/services/health"
	"resulenz-backend/internal/shared/config"
)

func testConfig() config.Config {
	return config.Config{
		Env:                "dev",
		ServiceName:        "resulenz-test",
		CORSAllowOrigin:    []string{"http://localhost:5173"},
		AllowGuest:         true,
		RateLimitPerMinute: 600,
		RateLimitBurst:     50,
	}
}

func TestRouterPublicRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterDeps{Config: testConfig(), Health: health.NewService(health.Check{Name: "kv", Backend: "memory"})})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health expected 200, got %d", resp.Code)
	}
	var st health.Status
	_ = json.NewDecoder(resp.Body).Decode(&st)
	if !st.OK || st.Backends["kv"].Backend != "memory" {
		t.Fatalf("unexpected health %+v", st)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("me expected 200, got %d", resp.Code)
	}
	var me map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&me)
	if me["isAuthenticated"] != false {
		t.Fatalf("expected anonymous caller, got %v", me)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "ingestion_started_total") {
		t.Fatalf("metrics expected 200 with ingestion series, got %d", resp.Code)
	}
}

func TestRouterMeGuest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterDeps{Config: testConfig()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "g1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	var me map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&me)
	if me["isAuthenticated"] != false || me["isGuest"] != true || me["userId"] != "guest:g1" {
		t.Fatalf("unexpected guest identity %v", me)
	}
}

func TestRouterObjectsArePublic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := blobref.New("/api/v1/objects/", time.Minute)
	ref, err := reg.Create([]byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("create ref: %v", err)
	}
	r := NewRouter(RouterDeps{Config: testConfig(), Objects: blobref.NewHandler(reg)})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, ref.URL, nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "%PDF-1.4" {
		t.Fatalf("expected object bytes, got %d %q", resp.Code, resp.Body.String())
	}
}
