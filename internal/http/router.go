// Package http exposes the SST pipeline over a Gin HTTP API.
package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.ngs.io/sst-api/internal/observability"
	"go.ngs.io/sst-api/internal/usecase"
)

// SetupRouter creates and configures the Gin router. An empty origin
// list allows all origins.
func SetupRouter(uc *usecase.SSTUseCase, metrics *observability.Metrics, allowedOrigins []string) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(uc, metrics)

	// API v1 routes.
	v1 := router.Group("/v1")
	sst := v1.Group("/sst")
	sst.GET("", handler.GetSST)
	sst.GET("/climatology", handler.GetClimatology)
	sst.GET("/anomaly", handler.GetAnomaly)
	sst.GET("/point", handler.GetPoint)
	sst.GET("/map", handler.GetMap)

	// Health check and metrics.
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
