package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger())

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		orgs := v1.Group("/orgs/:org")
		{
			orgs.GET("/summary", handler.GetOrgSummary)
			orgs.GET("/licenses", handler.GetLicenseCounts)
			orgs.GET("/copyleft", handler.GetCopyleftDependencies)

			repos := orgs.Group("/repos")
			{
				repos.GET("", handler.GetRepoSummaries)
				repos.GET("/:repo/dependencies", handler.GetRepoDependencies)
			}
		}
	}

	return router
}
