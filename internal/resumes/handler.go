package resumes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-critic/internal/shared/server/middleware"
	"resume-critic/internal/shared/server/respond"
)

const maxUploadBytes = 10 << 20

// Handler serves resume endpoints.
type Handler struct {
	Service *Service
}

type base64UploadRequest struct {
	FileName       string    `json:"fileName" binding:"required"`
	Content        string    `json:"content" binding:"required"`
	ProfileSummary string    `json:"profileSummary"`
	Sections       []Section `json:"sections"`
}

// Upload handles POST /api/v1/resumes. It accepts either a multipart
// form with a "file" field or a JSON body with base64 content.
func (h *Handler) Upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}

	var resume Resume
	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		resume, err = h.uploadMultipart(c, userID)
	} else {
		resume, err = h.uploadBase64(c, userID)
	}
	if err != nil {
		h.uploadError(c, err)
		return
	}
	c.Set("resumeId", resume.ID)
	respond.JSON(c, http.StatusCreated, resume)
}

func (h *Handler) uploadMultipart(c *gin.Context, userID string) (Resume, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Resume{}, fmt.Errorf("%w: multipart field \"file\" is required", errBadUpload)
	}
	if fileHeader.Size > maxUploadBytes {
		return Resume{}, errTooLarge
	}
	f, err := fileHeader.Open()
	if err != nil {
		return Resume{}, fmt.Errorf("%w: could not read uploaded file", errBadUpload)
	}
	defer f.Close()

	in := UploadInput{
		FileName:       fileHeader.Filename,
		ProfileSummary: c.PostForm("profileSummary"),
	}
	if raw := c.PostForm("sections"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Sections); err != nil {
			return Resume{}, fmt.Errorf("%w: sections must be a JSON array", errBadUpload)
		}
	}
	return h.Service.Upload(c.Request.Context(), userID, in, io.LimitReader(f, maxUploadBytes))
}

func (h *Handler) uploadBase64(c *gin.Context, userID string) (Resume, error) {
	var req base64UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return Resume{}, fmt.Errorf("%w: fileName and content are required", errBadUpload)
	}
	if len(req.Content) > maxUploadBytes*4/3+4 {
		return Resume{}, errTooLarge
	}
	in := UploadInput{
		FileName:       req.FileName,
		ProfileSummary: req.ProfileSummary,
		Sections:       req.Sections,
	}
	return h.Service.UploadBase64(c.Request.Context(), userID, in, req.Content)
}

var (
	errBadUpload = errors.New("invalid upload")
	errTooLarge  = errors.New("file too large")
)

func (h *Handler) uploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "resumes are limited to 10 MB", nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, "unsupported_file_type", "only pdf, docx, and txt files are accepted", nil)
	case errors.Is(err, errBadUpload):
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "could not store resume", nil)
	}
}

// List handles GET /api/v1/resumes.
func (h *Handler) List(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Service.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "could not list resumes", nil)
		return
	}
	if items == nil {
		items = []Resume{}
	}
	respond.OK(c, gin.H{"items": items})
}

// Get handles GET /api/v1/resumes/:id.
func (h *Handler) Get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	resume, err := h.Service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.ownershipError(c, err)
		return
	}
	c.Set("resumeId", resume.ID)
	respond.OK(c, resume)
}

// File handles GET /api/v1/resumes/:id/file, streaming the original
// bytes inline with their stored content type.
func (h *Handler) File(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	resume, rc, err := h.Service.OpenFile(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.ownershipError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", resume.FileName))
	c.DataFromReader(http.StatusOK, resume.SizeBytes, resume.FileType, rc, nil)
}

// Delete handles DELETE /api/v1/resumes/:id.
func (h *Handler) Delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	if err := h.Service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.ownershipError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ownershipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "you do not own this resume", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}
