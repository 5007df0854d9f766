package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-insights/backend/audit"
	"github.com/seo-insights/backend/logging"
	"github.com/seo-insights/backend/metrics"
	"github.com/seo-insights/backend/middleware"
	"github.com/seo-insights/backend/report"
	"github.com/seo-insights/backend/scoring"
	"github.com/seo-insights/backend/stats"
)

// server holds everything the HTTP handlers need
type server struct {
	reports    *report.Service
	search     *scoring.SearchScorer
	experience *scoring.ExperienceScorer
	statistics *logging.Statistics
	storage    *stats.Storage
	metrics    *metrics.Registry
	limiter    *middleware.RateLimiter
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(s.limiter.RateLimit())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, "+middleware.UserIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.Use(middleware.Stats(s.statistics, s.metrics))

	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})

		api.POST("/score/search", s.scoreSearch)
		api.POST("/score/experience", s.scoreExperience)

		reports := api.Group("/reports", middleware.RequireUser())
		{
			reports.POST("", s.createReport)
			reports.GET("", s.listReports)
			reports.GET("/:domain", s.getReport)
			reports.DELETE("/:domain", s.deleteReport)
		}

		api.GET("/statistics", func(c *gin.Context) {
			out := s.statistics.Snapshot()
			out["scoring"] = s.storage.GetCurrentStats()
			c.JSON(http.StatusOK, out)
		})
	}

	return r
}

func (s *server) scoreSearch(c *gin.Context) {
	var request struct {
		Keyword string          `json:"keyword"`
		Domain  string          `json:"domain"`
		Payload json.RawMessage `json:"payload" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "A SERP payload is required",
		})
		return
	}
	c.Set(middleware.DomainKey, request.Domain)

	breakdown := s.search.Score(scoring.DecodeSearchResultSet(request.Payload), request.Keyword, request.Domain)
	s.metrics.ObserveScore(metrics.ScorerSearch, breakdown.Total)
	s.storage.Increment(stats.Delta{SearchScored: 1})

	c.JSON(http.StatusOK, breakdown)
}

func (s *server) scoreExperience(c *gin.Context) {
	var request struct {
		Metrics json.RawMessage `json:"metrics" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Audit metrics are required",
		})
		return
	}

	m, err := audit.ParseMetrics(request.Metrics)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid audit metrics: " + err.Error(),
		})
		return
	}

	result := s.experience.Score(m)
	s.metrics.ObserveScore(metrics.ScorerExperience, result.Score)
	s.storage.Increment(stats.Delta{ExperienceScored: 1})

	c.JSON(http.StatusOK, result)
}

func (s *server) createReport(c *gin.Context) {
	var request report.Request
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Both domain and keyword are required",
		})
		return
	}
	request.UserID = middleware.UserID(c)
	c.Set(middleware.DomainKey, request.Domain)

	r, err := s.reports.Generate(c.Request.Context(), request)
	if err != nil {
		logging.FromContext(c.Request.Context()).Error().Err(err).Str("domain", request.Domain).Msg("Report generation failed")
		status, msg := reportErrorStatus(err)
		c.JSON(status, gin.H{
			"error": msg,
		})
		return
	}

	c.JSON(http.StatusCreated, r)
}

func reportErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, report.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, report.ErrStorage):
		return http.StatusInternalServerError, "Failed to store report"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream services timed out"
	default:
		return http.StatusBadGateway, "Failed to generate report: " + err.Error()
	}
}

func (s *server) listReports(c *gin.Context) {
	list, err := s.reports.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list reports",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": list,
	})
}

func (s *server) getReport(c *gin.Context) {
	r, err := s.reports.Get(c.Request.Context(), middleware.UserID(c), c.Param("domain"))
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "No report for this domain",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load report",
		})
		return
	}

	c.JSON(http.StatusOK, r)
}

func (s *server) deleteReport(c *gin.Context) {
	err := s.reports.Delete(c.Request.Context(), middleware.UserID(c), c.Param("domain"))
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "No report for this domain",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete report",
		})
		return
	}

	c.Status(http.StatusNoContent)
}
