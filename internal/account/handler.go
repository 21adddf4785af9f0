package account

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resulenz-backend/internal/shared/auth"
	"resulenz-backend/internal/shared/server/middleware"
	"resulenz-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/files", h.files)
	rg.DELETE("/data", h.wipe)
	rg.POST("/account/claim-guest", h.claimGuest)
}

func (h *Handler) files(c *gin.Context) {
	items, err := h.Svc.Files(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to list files", nil)
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) wipe(c *gin.Context) {
	owner := middleware.UserIDFromContext(c)
	var claims *auth.Claims
	if cl, ok := middleware.ClaimsFromContext(c); ok {
		claims = &cl
	}
	res, err := h.Svc.Wipe(c.Request.Context(), owner, claims)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to wipe data", gin.H{
			"deletedFiles": res.DeletedFiles,
		})
		return
	}
	respond.OK(c, res)
}

func (h *Handler) claimGuest(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", gin.H{"login": middleware.LoginPointer(c)})
		return
	}

	authedUserID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if authedUserID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", gin.H{"login": middleware.LoginPointer(c)})
		return
	}

	guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
	if guestID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing X-Guest-Id header", []map[string]string{
			{"field": "X-Guest-Id", "issue": "required"},
		})
		return
	}
	if _, err := uuid.Parse(guestID); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid guest id", []map[string]string{
			{"field": "X-Guest-Id", "issue": "invalid"},
		})
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), "guest:"+guestID, authedUserID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to claim guest data", nil)
		return
	}
	respond.JSON(c, http.StatusOK, result)
}
