package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-critic/internal/shared/auth"
	"resume-critic/internal/shared/server/middleware"
	"resume-critic/internal/shared/server/respond"
)

const maxAvatarBytes = 5 << 20

// Handler serves account and profile endpoints.
type Handler struct {
	Service *Service
	Signer  *auth.Signer

	// SecureCookies marks session cookies Secure; set in production.
	SecureCookies bool
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func toUserResponse(u User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "email and password are required", nil)
		return
	}
	user, err := h.Service.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			respond.Error(c, http.StatusConflict, "email_taken", "an account with this email already exists", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	h.setSession(c, user)
	respond.JSON(c, http.StatusCreated, toUserResponse(user))
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "email and password are required", nil)
		return
	}
	user, err := h.Service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "login failed", nil)
		return
	}
	h.setSession(c, user)
	respond.OK(c, toUserResponse(user))
}

// Logout handles POST /api/v1/auth/logout by expiring the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", h.SecureCookies, true)
	respond.OK(c, gin.H{"ok": true})
}

// Me handles GET /api/v1/me.
func (h *Handler) Me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	user, err := h.Service.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "account not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "could not load account", nil)
		return
	}
	respond.OK(c, toUserResponse(user))
}

// Avatar handles POST /api/v1/me/avatar with a multipart "file" field.
func (h *Handler) Avatar(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "multipart field \"file\" is required", nil)
		return
	}
	if fileHeader.Size > maxAvatarBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "avatar images are limited to 5 MB", nil)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "could not read uploaded file", nil)
		return
	}
	defer f.Close()

	url, err := h.Service.SetAvatar(c.Request.Context(), userID, fileHeader.Filename, f)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "could not store avatar", nil)
		return
	}
	respond.OK(c, gin.H{"avatarUrl": url})
}

func (h *Handler) setSession(c *gin.Context, user User) {
	token, err := h.Signer.Sign(user.ID, user.Email, user.Name)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "could not create session", nil)
		return
	}
	c.SetCookie(auth.SessionCookieName, token, int(auth.DefaultSessionTTL.Seconds()), "/", "", h.SecureCookies, true)
}
