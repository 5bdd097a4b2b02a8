package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"protectedvision-backend/internal/documents"
	"protectedvision-backend/internal/scans"
	"protectedvision-backend/internal/shared/config"
	"protectedvision-backend/internal/shared/metrics"
	"protectedvision-backend/internal/shared/server/middleware"
	"protectedvision-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers wired by bootstrap.
type RouterDeps struct {
	Config           config.Config
	DocumentsHandler *documents.Handler
	ScansHandler     *scans.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT":     {Rate: 10, Burst: 30},
				"SCAN_CREATE": {Rate: 1, Burst: 5},
				"POLLING":     {Rate: 5, Burst: 20},
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	deps.DocumentsHandler.RegisterRoutes(api)
	deps.ScansHandler.RegisterRoutes(api)

	return r
}

func rateLimitGroup(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/scans", "/api/v1/documents/:id/request-scan":
		if c.Request.Method == http.MethodPost {
			return "SCAN_CREATE"
		}
	case "/api/v1/scans/:id":
		if c.Request.Method == http.MethodGet {
			return "POLLING"
		}
	}
	return "DEFAULT"
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
