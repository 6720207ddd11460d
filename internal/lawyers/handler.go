package lawyers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"precedent-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the lawyer service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches lawyer routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/lawyers/recommend", h.recommend)
	rg.POST("/lawyers", h.createLawyer)
}

func (h *Handler) recommend(c *gin.Context) {
	caseType := strings.TrimSpace(c.Query("caseType"))
	if caseType == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "caseType is required", nil)
		return
	}

	recommended, err := h.Svc.Recommend(c.Request.Context(), caseType)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to recommend lawyers", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"lawyers": recommended})
}

type createLawyerRequest struct {
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	Rating         float64 `json:"rating"`
	CasesWon       int     `json:"casesWon"`
	Verified       bool    `json:"verified"`
}

func (h *Handler) createLawyer(c *gin.Context) {
	var req createLawyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "rating must be between 0 and 5", nil)
		return
	}

	l := Lawyer{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Specialization: strings.TrimSpace(req.Specialization),
		Rating:         req.Rating,
		CasesWon:       req.CasesWon,
		Verified:       req.Verified,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Svc.Repo.Create(c.Request.Context(), l); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store lawyer", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, l)
}
