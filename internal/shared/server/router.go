package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"underwriter-backend/internal/shared/config"
	"underwriter-backend/internal/shared/metrics"
	"underwriter-backend/internal/shared/server/middleware"
	"underwriter-backend/internal/shared/server/respond"
	"underwriter-backend/internal/statements"
	"underwriter-backend/internal/underwriting"
	"underwriter-backend/internal/usage"
	"underwriter-backend/web"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config       config.Config
	Statements   *statements.Handler
	Underwriting *underwriting.Handler
	Usage        *usage.Handler
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
		middleware.Session(),
		middleware.RateLimit(rateLimits()),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())
	web.Register(r)

	root := &r.RouterGroup
	deps.Statements.RegisterRoutes(root)
	deps.Underwriting.RegisterRoutes(root)
	deps.Usage.RegisterRoutes(root)

	return r
}

// rateLimits gives uploads and underwriting runs separate per-session
// budgets. Routes without a rule (status stream, reads) pass through.
func rateLimits() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"UPLOAD":     {Rate: 1, Burst: 10},
			"UNDERWRITE": {Rate: 0.2, Burst: 3},
		},
		GroupFor: func(c *gin.Context) string {
			switch c.FullPath() {
			case "/upload":
				return "UPLOAD"
			case "/underwrite":
				return "UNDERWRITE"
			default:
				return ""
			}
		},
	}
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
