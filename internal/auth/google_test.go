package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	sharedauth "resulenz-backend/internal/shared/auth"
	"resulenz-backend/internal/shared/server/middleware"
	"resulenz-backend/internal/shared/storage/kv/memory"
)

func newGoogleRouter(svc *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Auth(middleware.AuthOptions{Revoker: svc.revoker}))
	svc.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "/resume/abc", want: "/resume/abc"},
		{in: "/upload", want: "/upload"},
		{in: "", want: "/"},
		{in: "https://evil.example/x", want: "/"},
		{in: "//evil.example", want: "/"},
		{in: "resume/abc", want: "/"},
		{in: "/\\evil", want: "/"},
	}
	for _, tt := range tests {
		if got := SafeNext(tt.in); got != tt.want {
			t.Fatalf("SafeNext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStartNotConfigured(t *testing.T) {
	svc := NewGoogleService("", "", "", "http://ui/auth", nil)
	resp := httptest.NewRecorder()
	newGoogleRouter(svc).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestGoogleFlowCarriesNext(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer at-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":"12345","email":"jane@example.com","name":"Jane Doe"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer provider.Close()

	svc := NewGoogleService("client", "secret", "http://api/callback", "http://ui/auth", nil)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"}
	svc.userInfoURL = provider.URL + "/userinfo"
	router := newGoogleRouter(svc)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start?next=/resume/abc", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	loc, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatalf("expected state in %s", loc)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=c1", nil))
	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", resp.Code, resp.Body.String())
	}
	back, err := url.Parse(resp.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	if !strings.HasPrefix(back.String(), "http://ui/auth?") {
		t.Fatalf("unexpected redirect %s", back)
	}
	if back.Query().Get("next") != "/resume/abc" {
		t.Fatalf("expected next preserved, got %q", back.Query().Get("next"))
	}
	claims, err := sharedauth.VerifyJWT(back.Query().Get("token"))
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.Subject != "google:12345" || claims.Email != "jane@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	// State is single use.
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=c1", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on reused state, got %d", resp.Code)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	revoker := sharedauth.NewRevoker(memory.New(nil))
	svc := NewGoogleService("", "", "", "", revoker)
	router := newGoogleRouter(svc)
	router.GET("/api/v1/resumes", func(c *gin.Context) { c.Status(http.StatusOK) })

	token, err := sharedauth.SignJWT(sharedauth.Claims{Email: "jane@example.com", RegisteredClaims: jwtSubject("user-1")})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["signedOut"] != true {
		t.Fatalf("unexpected body %v", body)
	}

	claims, _ := sharedauth.VerifyJWT(token)
	if revoked, _ := revoker.IsRevoked(context.Background(), claims.ID); !revoked {
		t.Fatalf("expected token revoked")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign out, got %d", resp.Code)
	}
}
