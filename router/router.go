package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/config"
	_ "github.com/joeyportfolio/portfolio/docs"
	"github.com/joeyportfolio/portfolio/handlers"
	"github.com/joeyportfolio/portfolio/internal/websocket"
	"github.com/joeyportfolio/portfolio/middleware"
	"github.com/joeyportfolio/portfolio/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config          *config.Config
	PageHandler     *handlers.PageHandler
	FeedbackHandler *handlers.FeedbackHandler
	ContactHandler  *handlers.ContactHandler
	HealthHandler   *handlers.HealthHandler
	WSHandler       *websocket.Handler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if len(deps.Config.Server.TrustedProxies) > 0 {
		_ = r.SetTrustedProxies(deps.Config.Server.TrustedProxies)
	} else {
		_ = r.SetTrustedProxies(nil)
	}

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))

	// Site
	r.GET("/", deps.PageHandler.Index)
	r.StaticFS("/static", http.FS(web.Static()))

	// Health and Metrics Routes
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	{
		feedbackRoutes := v1.Group("/feedback")
		{
			feedbackRoutes.GET("", deps.FeedbackHandler.ListFeedback)
			feedbackRoutes.POST("", deps.FeedbackHandler.SubmitFeedback)
			feedbackRoutes.GET("/ws", deps.WSHandler.HandleWebSocket)
		}

		v1.POST("/contact", deps.ContactHandler.SubmitContact)
	}

	return r
}
