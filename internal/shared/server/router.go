package server

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-critic/internal/analyses"
	googleauth "resume-critic/internal/auth"
	"resume-critic/internal/resumes"
	sharedauth "resume-critic/internal/shared/auth"
	"resume-critic/internal/shared/config"
	"resume-critic/internal/shared/metrics"
	"resume-critic/internal/shared/server/middleware"
	"resume-critic/internal/shared/server/respond"
	"resume-critic/internal/shared/storage/object"
	"resume-critic/internal/shared/util"
	"resume-critic/internal/users"
)

// RouterDeps carries the built handlers the router wires up.
type RouterDeps struct {
	Config          config.Config
	DB              *sql.DB
	Store           object.ObjectStore
	Signer          *sharedauth.Signer
	UsersHandler    *users.Handler
	ResumesHandler  *resumes.Handler
	AnalysesHandler *analyses.Handler
	GoogleAuth      *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		metrics.GinMiddleware(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.DB))

	api.POST("/auth/register", deps.UsersHandler.Register)
	api.POST("/auth/login", deps.UsersHandler.Login)
	api.POST("/auth/logout", deps.UsersHandler.Logout)
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	authed := api.Group("")
	authed.Use(middleware.Auth(deps.Signer))

	authed.GET("/me", deps.UsersHandler.Me)
	authed.POST("/me/avatar", deps.UsersHandler.Avatar)

	authed.POST("/resumes", deps.ResumesHandler.Upload)
	authed.GET("/resumes", deps.ResumesHandler.List)
	authed.GET("/resumes/:id", deps.ResumesHandler.Get)
	authed.GET("/resumes/:id/file", deps.ResumesHandler.File)
	authed.DELETE("/resumes/:id", deps.ResumesHandler.Delete)

	authed.POST("/resumes/:id/analyze", deps.AnalysesHandler.Analyze)
	authed.GET("/resumes/:id/analysis", deps.AnalysesHandler.Latest)
	authed.GET("/resumes/:id/analyses", deps.AnalysesHandler.List)
	authed.GET("/resumes/:id/review", deps.AnalysesHandler.Review)
	authed.GET("/analyses/:id", deps.AnalysesHandler.Get)

	// Local object store URLs resolve through this route.
	if deps.Store != nil {
		authed.GET("/files/*key", serveStoredFile(deps.Store))
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

// serveStoredFile streams an object to its owner. Storage keys are
// namespaced by the hashed user ID, so the caller's namespace must
// prefix the key; anything else reads as missing.
func serveStoredFile(store object.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		if len(key) > 0 && key[0] == '/' {
			key = key[1:]
		}
		userID := middleware.UserIDFromContext(c)
		if userID == "" || !strings.HasPrefix(key, util.HashUserKey(userID)+"/") {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		rc, err := store.Open(c.Request.Context(), key)
		if err != nil {
			respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
			return
		}
		defer rc.Close()

		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil && !errors.Is(err, io.EOF) {
			return
		}
	}
}
