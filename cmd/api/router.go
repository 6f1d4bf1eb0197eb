package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crm-backend/internal/shared/middleware"
	"crm-backend/pkg/container"
)

// SetupRouter mounts middlewares and routes onto a fresh gin engine.
func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(c.JWTManager))
		c.ImportHandler.RegisterRoutes(authed)
	}

	return router
}

func healthCheckHandler(app *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   app.Config.App.Version,
		}

		dbStatus := "ok"
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := app.DB.HealthCheck(ctx); err != nil {
			dbStatus = "error"
			health["status"] = "degraded"
		}
		health["services"] = gin.H{"database": dbStatus}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, health)
	}
}
