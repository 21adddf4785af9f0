package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"resulenz-backend/internal/account"
	googleauth "resulenz-backend/internal/auth"
	"resulenz-backend/internal/blobref"
	"resulenz-backend/internal/resumes"
	"resulenz-backend/internal/services/health"
	"resulenz-backend/internal/shared/auth"
	"resulenz-backend/internal/shared/config"
	"resulenz-backend/internal/shared/metrics"
	"resulenz-backend/internal/shared/server/middleware"
	"resulenz-backend/internal/shared/server/respond"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupIngest  = "INGEST"
)

// RouterDeps are the handlers and shared services the router mounts.
// Nil handlers are skipped.
type RouterDeps struct {
	Config  config.Config
	Health  *health.Service
	Resumes *resumes.Handler
	Account *account.Handler
	Objects *blobref.Handler
	Google  *googleauth.GoogleService
	Revoker *auth.Revoker
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		otelgin.Middleware(cfg.ServiceName),
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(middleware.AuthOptions{AllowGuest: cfg.AllowGuest, Revoker: deps.Revoker}),
		middleware.RateLimit(rateLimitConfig(cfg, deps.Limiter)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		st := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !st.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, st)
	})
	registerMeRoutes(api)
	if deps.Google != nil {
		deps.Google.RegisterRoutes(api)
	}
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(api)
	}
	if deps.Account != nil {
		deps.Account.RegisterRoutes(api)
	}
	if deps.Objects != nil {
		deps.Objects.RegisterRoutes(api)
	}
	return r
}

// rateLimitConfig gives ingestion its own, slower bucket since each call
// costs an AI request.
func rateLimitConfig(cfg config.Config, limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	perSecond := float64(cfg.RateLimitPerMinute) / float64(time.Minute/time.Second)
	burst := cfg.RateLimitBurst
	ingestBurst := burst / 5
	if ingestBurst < 1 {
		ingestBurst = 1
	}
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		Limiter:      limiter,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/resumes" {
				return rateGroupIngest
			}
			return rateGroupDefault
		},
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: perSecond, Burst: burst},
			rateGroupIngest:  {Rate: perSecond / 10, Burst: ingestBurst},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
