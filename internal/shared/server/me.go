package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resulenz-backend/internal/shared/server/middleware"
	"resulenz-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

// meHandler reports the caller's auth state. Anonymous callers get
// isAuthenticated=false rather than an error so the UI can decide where
// to send them.
func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	response := gin.H{
		"isAuthenticated": userID != "" && !middleware.IsGuest(c),
		"isGuest":         middleware.IsGuest(c),
	}
	if userID != "" {
		response["userId"] = userID
	}
	if email := middleware.UserEmailFromContext(c); email != "" {
		response["email"] = email
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		response["name"] = name
	}
	if picture := middleware.UserPictureFromContext(c); picture != "" {
		response["picture"] = picture
	}

	respond.JSON(c, http.StatusOK, response)
}
