package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"resulenz-backend/internal/shared/auth"
	"resulenz-backend/internal/shared/server/respond"
	"resulenz-backend/internal/shared/telemetry"
)

const (
	userIDKey      = "userId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"
	isGuestKey     = "isGuest"
	claimsKey      = "claims"
)

// DefaultPublicPrefixes are served without an identity. Identity is still
// attached when one is presented.
var DefaultPublicPrefixes = []string{
	"/api/v1/health",
	"/api/v1/me",
	"/api/v1/auth/google/",
	"/api/v1/objects/",
	"/metrics",
}

// AuthOptions configures Auth.
type AuthOptions struct {
	// AllowGuest accepts X-Guest-Id as identity "guest:<id>".
	AllowGuest bool
	// Revoker rejects signed-out tokens. Optional.
	Revoker *auth.Revoker
	// Public overrides DefaultPublicPrefixes when non-nil.
	Public []string
}

// Auth validates JWTs or guest headers and stores identity in context.
// Protected routes answer 401 with a login pointer that keeps the
// intended destination.
func Auth(opts AuthOptions) gin.HandlerFunc {
	public := opts.Public
	if public == nil {
		public = DefaultPublicPrefixes
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		isPublic := hasAnyPrefix(c.Request.URL.Path, public)
		reject := func(message string) {
			if isPublic {
				c.Next()
				return
			}
			respond.Error(c, http.StatusUnauthorized, "unauthorized", message, gin.H{"login": LoginPointer(c)})
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				reject("missing or invalid token")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				reject("missing or invalid token")
				return
			}
			claims, err := auth.VerifyJWT(token)
			if err != nil {
				reject("missing or invalid token")
				return
			}
			revoked, err := opts.Revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				telemetry.Warn("auth.revocation_check_failed", map[string]any{"error": err})
			}
			if revoked {
				reject("session has been signed out")
				return
			}

			c.Set(userIDKey, claims.Subject)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			if claims.Picture != "" {
				c.Set(userPictureKey, claims.Picture)
			}
			c.Set(claimsKey, claims)
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" || !opts.AllowGuest {
			reject("Missing identity")
			return
		}

		c.Set(userIDKey, "guest:"+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// LoginPointer maps the requested API route to the sign-in page with the
// UI route the caller was trying to reach.
func LoginPointer(c *gin.Context) string {
	next := "/"
	switch c.FullPath() {
	case "/api/v1/resumes/:id":
		next = "/resume/" + url.PathEscape(c.Param("id"))
	case "/api/v1/resumes":
		if c.Request.Method == http.MethodPost {
			next = "/upload"
		}
	case "/api/v1/data", "/api/v1/files":
		next = "/wipe"
	}
	return "/auth?" + url.Values{"next": {next}}.Encode()
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	return stringFromContext(c, userPictureKey)
}

// IsGuest reports whether the caller authenticated with X-Guest-Id.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}

// ClaimsFromContext returns the verified token claims of a signed-in caller.
func ClaimsFromContext(c *gin.Context) (auth.Claims, bool) {
	if c == nil {
		return auth.Claims{}, false
	}
	val, ok := c.Get(claimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := val.(auth.Claims)
	return claims, ok
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
