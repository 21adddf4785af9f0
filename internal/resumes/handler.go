package resumes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resulenz-backend/internal/shared/server/middleware"
	"resulenz-backend/internal/shared/server/respond"
	"resulenz-backend/internal/shared/telemetry"
)

// multipartOverhead leaves room for the text fields next to the file.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc   *Service
	Views *Views
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, views *Views) *Handler {
	return &Handler{Svc: svc, Views: views}
}

// RegisterRoutes attaches résumé routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", h.ingest)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.open)
	rg.DELETE("/views/:viewId", h.releaseView)
}

func (h *Handler) ingest(c *gin.Context) {
	owner := middleware.UserIDFromContext(c)
	limit := h.Svc.maxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "File must be 20 MB or smaller", gin.H{"limitBytes": limit})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > limit {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "File must be 20 MB or smaller", gin.H{"limitBytes": limit})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()
	doc, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(c)
	last := StageStarting
	in := IngestInput{
		Owner:          owner,
		FileName:       fileHeader.Filename,
		Document:       doc,
		CompanyName:    strings.TrimSpace(c.PostForm("companyName")),
		JobTitle:       strings.TrimSpace(c.PostForm("jobTitle")),
		JobDescription: strings.TrimSpace(c.PostForm("jobDescription")),
		Progress: func(stage Stage) {
			last = stage
			telemetry.Debug("ingestion.stage", map[string]any{
				"request_id":  requestID,
				"stage":       string(stage),
				"status_text": stage.StatusText(),
			})
		},
	}

	// A disconnecting client must not abort the pipeline between its two writes.
	res, err := h.Svc.Ingest(context.WithoutCancel(c.Request.Context()), in)
	if stage, id, ok := FailedStage(err); ok {
		c.Set("stage", string(stage))
		if id != "" {
			c.Set("resumeId", id)
		}
	}
	if err != nil {
		writeIngestError(c, err)
		return
	}

	c.Set("resumeId", res.Record.ID)
	c.Set("stage", string(last))
	c.Header("Location", res.Route)
	respond.JSON(c, http.StatusCreated, IngestResponse{
		RecordResponse: toRecordResponse(res.Record, true),
		Route:          res.Route,
		StatusText:     last.StatusText(),
	})
}

func writeIngestError(c *gin.Context, err error) {
	details := gin.H{"statusText": StageFailed.StatusText()}
	if stage, id, ok := FailedStage(err); ok {
		details["stage"] = string(stage)
		if id != "" {
			details["id"] = id
			details["route"] = Route(id)
		}
	}
	switch {
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "File must be 20 MB or smaller", details)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", validationMessage(err), details)
	case errors.Is(err, ErrInvalidAIOutput):
		respond.Error(c, http.StatusBadGateway, "invalid_ai_output", ErrInvalidAIOutput.Error(), details)
	case errors.Is(err, ErrSchemaMismatch):
		respond.Error(c, http.StatusBadGateway, "schema_mismatch", "AI feedback did not match the expected format", details)
	case errors.Is(err, ErrAIFailed):
		respond.Error(c, http.StatusBadGateway, "pipeline_failed", StageFailed.StatusText(), details)
	default:
		respond.Error(c, http.StatusInternalServerError, "pipeline_failed", StageFailed.StatusText(), details)
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ErrInvalidInput.Error()+": "); i >= 0 {
		return msg[i+len(ErrInvalidInput.Error())+2:]
	}
	return ErrInvalidInput.Error()
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func (h *Handler) list(c *gin.Context) {
	owner := middleware.UserIDFromContext(c)
	records, err := h.Svc.List(c.Request.Context(), owner)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to list resumes", nil)
		return
	}
	items := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toHistoryItem(rec))
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) open(c *gin.Context) {
	owner := middleware.UserIDFromContext(c)
	id := strings.TrimSpace(c.Param("id"))
	c.Set("resumeId", id)

	view := h.Svc.Open(c.Request.Context(), owner, id)
	if !view.Found {
		view.Close()
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		return
	}
	expires := h.Views.Track(owner, view)
	c.Set("viewId", view.ID)

	respond.OK(c, ViewResponse{
		ViewID:    view.ID,
		ExpiresAt: expires,
		Resume:    view.Resume,
		Image:     view.Image,
		Record:    toRecordResponse(view.Record, true),
	})
}

func (h *Handler) releaseView(c *gin.Context) {
	owner := middleware.UserIDFromContext(c)
	viewID := c.Param("viewId")
	c.Set("viewId", viewID)
	if !h.Views.Release(owner, viewID) {
		respond.Error(c, http.StatusNotFound, "not_found", "view not found", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
