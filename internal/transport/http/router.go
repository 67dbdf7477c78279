package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio/backend/internal/config"
	"portfolio/backend/internal/health"
	"portfolio/backend/internal/middleware"
	"portfolio/backend/internal/monitoring"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config  *config.Config
	Contact ContactGateway
	Health  *health.HealthChecker
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	monitor := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitor.PanicRecovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(monitor.HTTPMetrics())
	router.Use(middleware.SecurityHeaders())

	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{
			"Content-Length",
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		MaxAge: 12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health/live", gin.WrapF(deps.Health.LiveHandler()))
	router.GET("/health/ready", gin.WrapF(deps.Health.ReadyHandler()))

	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	contactHandler := NewContactHandler(deps.Contact)

	api := router.Group("/api")
	{
		api.POST("/contact", middleware.BodySizeLimit(middleware.ContactBodyLimit), contactHandler.Submit)
	}

	return router
}
