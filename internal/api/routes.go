package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/trendcast/internal/api/handlers"
	"github.com/irfndi/trendcast/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by SetupRoutes.
type Handlers struct {
	Forecast     *handlers.ForecastHandler
	Verification *handlers.VerificationHandler
	Health       *handlers.HealthHandler
	TrendPoints  *handlers.TrendPointHandler
}

// NewRouter builds the gin engine with recovery, request logging and tracing.
func NewRouter(serviceName string, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !middleware.IsHealthPath(r.URL.Path)
	})))

	SetupRoutes(router, h)
	return router
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", middleware.HealthCheckTelemetryMiddleware(), h.Health.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		forecasts := v1.Group("/forecasts")
		{
			forecasts.POST("/warmup", h.Forecast.Warmup)
			forecasts.GET("/status", h.Forecast.Status)
			forecasts.POST("/verify", h.Verification.Verify)
		}

		verifications := v1.Group("/verifications")
		{
			verifications.GET("", h.Verification.ListVerifications)
			verifications.GET("/:id", h.Verification.GetVerification)
		}

		v1.POST("/confidence", h.Forecast.Confidence)
		v1.POST("/trend-points", h.TrendPoints.Ingest)
	}
}
