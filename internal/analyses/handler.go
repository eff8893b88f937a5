package analyses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-critic/internal/resumes"
	"resume-critic/internal/shared/server/middleware"
	"resume-critic/internal/shared/server/respond"
)

// Handler serves analysis endpoints.
type Handler struct {
	Service *Service
}

// Analyze handles POST /api/v1/resumes/:id/analyze. It answers 202
// immediately; the run completes in the background.
func (h *Handler) Analyze(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	analysis, err := h.Service.Create(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.resumeError(c, err)
		return
	}
	c.Set("analysisId", analysis.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

// Get handles GET /api/v1/analyses/:id.
func (h *Handler) Get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	analysis, err := h.Service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.analysisError(c, err)
		return
	}
	c.Set("analysisId", analysis.ID)
	respond.OK(c, analysis)
}

// Latest handles GET /api/v1/resumes/:id/analysis. By default only
// completed runs are returned; ?any=1 includes in-flight and failed.
func (h *Handler) Latest(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	completedOnly := c.Query("any") != "1"
	analysis, err := h.Service.Latest(c.Request.Context(), userID, c.Param("id"), completedOnly)
	if err != nil {
		h.resumeError(c, err)
		return
	}
	respond.OK(c, analysis)
}

// List handles GET /api/v1/resumes/:id/analyses.
func (h *Handler) List(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	items, err := h.Service.ListForResume(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.resumeError(c, err)
		return
	}
	if items == nil {
		items = []Analysis{}
	}
	respond.OK(c, gin.H{"items": items})
}

// Review handles GET /api/v1/resumes/:id/review.
func (h *Handler) Review(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	review, err := h.Service.ReviewForResume(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.resumeError(c, err)
		return
	}
	respond.OK(c, review)
}

func (h *Handler) resumeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, resumes.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, resumes.ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this resume", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "no analysis found for this resume", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}

func (h *Handler) analysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this analysis", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}
