package cases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"precedent-backend/internal/analysis"
	"precedent-backend/internal/lawyers"
	"precedent-backend/internal/shared/server/respond"
	"precedent-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to case storage and the analysis orchestrator.
type Handler struct {
	Repo     Repo
	Analyzer *analysis.Service
	Lawyers  *lawyers.Service
}

// NewHandler constructs a Handler. Lawyers may be nil; responses then omit
// recommendations.
func NewHandler(repo Repo, analyzer *analysis.Service, lawyerSvc *lawyers.Service) *Handler {
	return &Handler{Repo: repo, Analyzer: analyzer, Lawyers: lawyerSvc}
}

// RegisterRoutes attaches case routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyzeCase)
	rg.POST("/cases/:id/analyze", h.reanalyzeCase)
	rg.GET("/cases", h.listCases)
	rg.GET("/cases/:id", h.getCase)
}

type analyzeRequest struct {
	Description string `json:"description"`
	CaseType    string `json:"caseType"`
}

func (h *Handler) analyzeCase(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "description is required", nil)
		return
	}

	now := time.Now().UTC()
	record := Case{
		ID:          uuid.NewString(),
		Description: req.Description,
		CaseType:    analysis.DefaultCaseType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if hint := strings.TrimSpace(req.CaseType); hint != "" {
		record.CaseType = hint
	}
	if err := h.Repo.Create(c.Request.Context(), record); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store case", nil)
		return
	}

	ctx := analysis.WithRequestID(c.Request.Context(), c.GetString("requestId"))
	result, err := h.Analyzer.Analyze(ctx, req.Description, req.CaseType)
	if err != nil {
		if errors.Is(err, analysis.ErrAnalysisFailed) {
			respond.Error(c, http.StatusBadGateway, "analysis_failed", "analysis is unavailable right now", []map[string]string{
				{"field": "llm", "issue": err.Error()},
			})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to analyze case", nil)
		return
	}

	// Write-back is best-effort: the caller already has the result.
	if err := h.Repo.SetAnalysis(c.Request.Context(), record.ID, result, result.RetrievedMatches, result.AnalyzedAt); err != nil {
		telemetry.Warn("cases.analysis_writeback_failed", map[string]any{
			"case_id":    record.ID,
			"err":        err.Error(),
			"request_id": c.GetString("requestId"),
		})
	}

	resp := gin.H{
		"caseId":   record.ID,
		"analysis": result,
	}
	if h.Lawyers != nil {
		recommended, err := h.Lawyers.Recommend(c.Request.Context(), result.CaseType)
		if err != nil {
			telemetry.Warn("cases.lawyer_recommendation_failed", map[string]any{
				"case_id":    record.ID,
				"case_type":  result.CaseType,
				"err":        err.Error(),
				"request_id": c.GetString("requestId"),
			})
		} else {
			resp["recommendedLawyers"] = recommended
		}
	}
	respond.JSON(c, http.StatusOK, resp)
}

// reanalyzeCase re-runs analysis for a stored case asynchronously. The caller
// polls GET /cases/:id; analysisStatus moves processing -> completed or failed.
func (h *Handler) reanalyzeCase(c *gin.Context) {
	id := c.Param("id")
	record, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "case not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch case", nil)
		}
		return
	}

	if err := h.Repo.SetAnalysisStatus(c.Request.Context(), record.ID, AnalysisStatusProcessing); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		return
	}

	requestID := c.GetString("requestId")
	go h.runReanalysis(analysis.WithRequestID(context.Background(), requestID), record, requestID)

	respond.JSON(c, http.StatusAccepted, gin.H{
		"caseId": record.ID,
		"status": AnalysisStatusProcessing,
	})
}

// runReanalysis does the analyze + write-back on a detached context so it
// outlives the triggering request.
func (h *Handler) runReanalysis(ctx context.Context, record Case, requestID string) {
	defer func() {
		if r := recover(); r != nil {
			_ = h.Repo.SetAnalysisStatus(ctx, record.ID, AnalysisStatusFailed)
			telemetry.Error("cases.reanalysis_panicked", map[string]any{
				"case_id":    record.ID,
				"panic":      fmt.Sprint(r),
				"request_id": requestID,
			})
		}
	}()

	result, err := h.Analyzer.Analyze(ctx, record.Description, record.CaseType)
	if err != nil {
		if statusErr := h.Repo.SetAnalysisStatus(ctx, record.ID, AnalysisStatusFailed); statusErr != nil {
			telemetry.Error("cases.reanalysis_status_failed", map[string]any{
				"case_id":    record.ID,
				"err":        statusErr.Error(),
				"request_id": requestID,
			})
		}
		telemetry.Warn("cases.reanalysis_failed", map[string]any{
			"case_id":    record.ID,
			"err":        err.Error(),
			"request_id": requestID,
		})
		return
	}

	if err := h.Repo.SetAnalysis(ctx, record.ID, result, result.RetrievedMatches, result.AnalyzedAt); err != nil {
		telemetry.Error("cases.analysis_writeback_failed", map[string]any{
			"case_id":    record.ID,
			"err":        err.Error(),
			"request_id": requestID,
		})
	}
}

func (h *Handler) getCase(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "case id is required", nil)
		return
	}

	record, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "case not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch case", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, record)
}

func (h *Handler) listCases(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	items, err := h.Repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list cases", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"cases": items, "count": len(items)})
}
