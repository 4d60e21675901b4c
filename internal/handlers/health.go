package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck returns service health status (basic)
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "storefront-service",
	})
}

// DependencyCheck pings one backing service
type DependencyCheck func(ctx context.Context) error

// ReadinessCheck reports every dependency. Failing dependencies degrade the
// status but the service keeps serving, since each one has a fallback.
func ReadinessCheck(checks map[string]DependencyCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = gin.H{"status": "unhealthy", "error": err.Error()}
				status = "degraded"
				continue
			}
			results[name] = gin.H{"status": "healthy"}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"service": "storefront-service",
			"checks":  results,
		})
	}
}
