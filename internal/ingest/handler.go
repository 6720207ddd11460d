package ingest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"precedent-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the ingest service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches ingestion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync", h.startSync)
	rg.POST("/reindex", h.startReindex)
	rg.GET("/sync/:id", h.getJob)
}

type syncRequest struct {
	Queries       []string `json:"queries"`
	PerQueryLimit int      `json:"perQueryLimit"`
}

func (h *Handler) startSync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	queries := make([]string, 0, len(req.Queries))
	for _, q := range req.Queries {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			queries = append(queries, trimmed)
		}
	}
	if len(queries) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "queries must contain at least one non-empty entry", nil)
		return
	}
	if req.PerQueryLimit < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "perQueryLimit must not be negative", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	job, err := h.Svc.StartSync(ctx, queries, req.PerQueryLimit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start sync", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func (h *Handler) startReindex(c *gin.Context) {
	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	job, err := h.Svc.StartReindex(ctx)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start reindex", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func (h *Handler) getJob(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}

	job, err := h.Svc.GetJob(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrJobNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		}
		return
	}

	resp := gin.H{
		"jobId":     job.ID,
		"kind":      job.Kind,
		"status":    job.Status,
		"createdAt": job.CreatedAt,
	}
	if job.StartedAt != nil {
		resp["startedAt"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		resp["completedAt"] = job.CompletedAt
	}
	if job.ErrorMessage != "" {
		resp["error"] = job.ErrorMessage
	}
	if job.Report != nil {
		resp["report"] = gin.H{
			"queriesProcessed": job.Report.QueriesProcessed,
			"hitsFound":        job.Report.HitsFound,
			"fetched":          job.Report.Fetched,
			"indexed":          job.Report.Indexed,
			"failed":           job.Report.Failed,
			"failures":         job.Report.FailurePreview(),
		}
	}
	respond.JSON(c, http.StatusOK, resp)
}
