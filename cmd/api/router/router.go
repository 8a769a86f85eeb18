package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hn-insight/cmd/api/handlers"
	"hn-insight/cmd/api/middleware"
	"hn-insight/pipeline"
	"hn-insight/repositories"
	"hn-insight/services"
	"hn-insight/vectorstore"
)

// Deps carries everything the routes need, wired in main.
type Deps struct {
	Store     vectorstore.Store
	Pipeline  *pipeline.Pipeline
	Search    *services.SearchService
	Similar   *services.SimilarService
	Recommend *services.RecommendService
	Articles  *repositories.ArticleRepository
	Profiles  *repositories.ProfileRepository
}

func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogging())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if _, err := deps.Store.Stats(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "vector_store": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// v1 routes
	api := r.Group("/api/v1")
	{
		api.POST("/search", handlers.SearchHandler(deps.Search))
		api.GET("/articles/:id/similar", handlers.SimilarHandler(deps.Similar))
		api.GET("/recommendations", handlers.RecommendationsHandler(deps.Recommend))
		api.GET("/stats", handlers.StatsHandler(deps.Store))
		api.POST("/ingest", handlers.IngestHandler(deps.Pipeline, deps.Articles))

		api.GET("/profiles/:id", handlers.GetProfileHandler(deps.Profiles))
		api.PUT("/profiles/:id/interests", handlers.UpdateInterestsHandler(deps.Profiles))
		api.POST("/profiles/:id/history", handlers.AppendHistoryHandler(deps.Profiles))
	}

	return r
}
