package precedents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"precedent-backend/internal/embedding"
	"precedent-backend/internal/shared/server/respond"
	"precedent-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the precedent store.
type Handler struct {
	Repo     Repo
	Embedder embedding.Client
}

// NewHandler constructs a Handler. Embedder may be nil; manual submissions
// are then stored unembedded and picked up by the next reindex run.
func NewHandler(repo Repo, embedder embedding.Client) *Handler {
	return &Handler{Repo: repo, Embedder: embedder}
}

// RegisterRoutes attaches precedent routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/precedents", h.listPrecedents)
	rg.GET("/precedents/:id", h.getPrecedent)
	rg.POST("/precedents", h.createPrecedent)
}

func (h *Handler) listPrecedents(c *gin.Context) {
	filter := Filter{
		Court:   strings.TrimSpace(c.Query("court")),
		Keyword: strings.TrimSpace(c.Query("keyword")),
		Limit:   20,
	}
	if v := c.Query("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "year must be an integer", nil)
			return
		}
		filter.Year = year
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}

	items, err := h.Repo.List(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list precedents", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"precedents": items, "count": len(items)})
}

func (h *Handler) getPrecedent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "precedent id is required", nil)
		return
	}

	p, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "precedent not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch precedent", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, p)
}

type createPrecedentRequest struct {
	CaseNumber  string   `json:"caseNumber"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Court       string   `json:"court"`
	Judges      []string `json:"judges"`
	Plaintiff   string   `json:"plaintiff"`
	Defendant   string   `json:"defendant"`
	Facts       string   `json:"facts"`
	Decision    string   `json:"decision"`
	Summary     string   `json:"summary"`
	Verdict     string   `json:"verdict"`
	IPCSections []string `json:"ipcSections"`
	Keywords    []string `json:"keywords"`
}

func (h *Handler) createPrecedent(c *gin.Context) {
	var req createPrecedentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "title is required", nil)
		return
	}

	now := time.Now().UTC()
	p := PrecedentCase{
		ID:          uuid.NewString(),
		CaseNumber:  strings.TrimSpace(req.CaseNumber),
		Title:       req.Title,
		Year:        req.Year,
		Court:       strings.TrimSpace(req.Court),
		Judges:      req.Judges,
		Plaintiff:   strings.TrimSpace(req.Plaintiff),
		Defendant:   strings.TrimSpace(req.Defendant),
		Facts:       req.Facts,
		Decision:    req.Decision,
		Summary:     req.Summary,
		Verdict:     NormalizeVerdict(req.Verdict),
		IPCSections: req.IPCSections,
		Keywords:    req.Keywords,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Year == 0 {
		p.Year = now.Year()
	}

	if err := h.Repo.Create(c.Request.Context(), p); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store precedent", nil)
		return
	}

	// Embed inline when a client is configured; a failure leaves the record
	// unembedded for reindexAll to pick up later.
	embedded := false
	if h.Embedder != nil {
		vec, err := h.Embedder.Embed(c.Request.Context(), p.IndexText())
		if err != nil {
			telemetry.Warn("precedents.create.embed_failed", map[string]any{
				"precedent_id": p.ID,
				"err":          err.Error(),
				"request_id":   c.GetString("requestId"),
			})
		} else if err := h.Repo.SetEmbedding(c.Request.Context(), p.ID, vec); err != nil {
			telemetry.Warn("precedents.create.set_embedding_failed", map[string]any{
				"precedent_id": p.ID,
				"err":          err.Error(),
				"request_id":   c.GetString("requestId"),
			})
		} else {
			embedded = true
		}
	}

	respond.JSON(c, http.StatusCreated, gin.H{
		"id":      p.ID,
		"indexed": embedded,
	})
}
