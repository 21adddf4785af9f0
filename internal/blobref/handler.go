package blobref

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resulenz-backend/internal/shared/server/respond"
)

// Handler serves referenced bytes. The token is the capability.
type Handler struct {
	Registry *Registry
}

// NewHandler constructs the handler.
func NewHandler(r *Registry) *Handler {
	return &Handler{Registry: r}
}

// RegisterRoutes attaches the object route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/objects/:token", h.get)
}

func (h *Handler) get(c *gin.Context) {
	data, contentType, ok := h.Registry.Resolve(c.Param("token"))
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "Object not found", nil)
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, contentType, data)
}
