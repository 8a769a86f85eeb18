// Package handlers maps HTTP requests onto the query and ingestion services.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hn-insight/apperrors"
	"hn-insight/models"
	"hn-insight/pipeline"
	"hn-insight/repositories"
	"hn-insight/services"
	"hn-insight/vectorstore"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUpstream:
		return http.StatusBadGateway
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

type searchRequest struct {
	Query  string          `json:"query"`
	K      int             `json:"k"`
	Filter json.RawMessage `json:"filter"`
}

func SearchHandler(svc *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		filter, err := vectorstore.ParseFilter(req.Filter)
		if err != nil {
			abortWithError(c, err)
			return
		}

		results, err := svc.Search(c.Request.Context(), services.SearchRequest{
			Query:  req.Query,
			Filter: filter,
			K:      req.K,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func SimilarHandler(svc *services.SimilarService) gin.HandlerFunc {
	return func(c *gin.Context) {
		articleID := c.Param("id")
		topK, _ := strconv.Atoi(c.DefaultQuery("top_k", "5"))

		results, err := svc.SimilarTo(c.Request.Context(), articleID, topK)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"article_id": articleID, "similar": results})
	}
}

func RecommendationsHandler(svc *services.RecommendService) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, _ := strconv.Atoi(c.Query("days"))
		topK, _ := strconv.Atoi(c.Query("top_k"))
		minScore, _ := strconv.Atoi(c.Query("min_score"))

		result, err := svc.Recommend(c.Request.Context(), services.RecommendRequest{
			UserID:   c.DefaultQuery("user_id", "default"),
			Days:     days,
			TopK:     topK,
			MinScore: minScore,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func StatsHandler(store vectorstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := store.Stats(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

type ingestRequest struct {
	IDs    []string `json:"ids"`
	Topic  string   `json:"topic"`
	Recent int      `json:"recent"`
	Force  bool     `json:"force"`
}

func IngestHandler(p *pipeline.Pipeline, articles *repositories.ArticleRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Topic != "" && !models.IsKnownTopic(req.Topic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic " + strconv.Quote(req.Topic)})
			return
		}

		var (
			candidates []models.Article
			err        error
		)
		if req.Topic != "" {
			candidates, err = articles.FindByTopic(c.Request.Context(), req.Topic)
		} else {
			candidates, err = articles.FindAll(c.Request.Context())
		}
		if err != nil {
			abortWithError(c, err)
			return
		}

		report := p.IngestSelected(c.Request.Context(), candidates, pipeline.Criteria{
			IDs:     req.IDs,
			RecentN: req.Recent,
		}, req.Force)
		c.JSON(http.StatusOK, report)
	}
}

type interestsRequest struct {
	Interests []string `json:"interests"`
}

func GetProfileHandler(profiles *repositories.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := profiles.GetOrCreate(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func UpdateInterestsHandler(profiles *repositories.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req interestsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		for _, interest := range req.Interests {
			if strings.TrimSpace(interest) == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "interests must not contain empty tags"})
				return
			}
		}

		userID := c.Param("id")
		if err := profiles.UpdateInterests(c.Request.Context(), userID, req.Interests); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "interests": req.Interests})
	}
}

type historyRequest struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Topic     string `json:"topic"`
}

func AppendHistoryHandler(profiles *repositories.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req historyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.ArticleID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "article_id is required"})
			return
		}

		userID := c.Param("id")
		entry := models.ReadEntry{
			ArticleID: req.ArticleID,
			Title:     req.Title,
			Topic:     req.Topic,
		}
		if err := profiles.AppendHistory(c.Request.Context(), userID, entry); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "message": "history recorded"})
	}
}
