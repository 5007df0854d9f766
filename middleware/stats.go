package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-insights/backend/logging"
	"github.com/seo-insights/backend/metrics"
)

// DomainKey is the gin context key under which handlers record the domain
// a request was about
const DomainKey = "domain"

// scoringRoutes are the routes counted as scoring requests
var scoringRoutes = map[string]bool{
	"/api/score/search":     true,
	"/api/score/experience": true,
	"/api/reports":          true,
}

// Stats tracks visitors, scoring requests and request durations
func Stats(stats *logging.Statistics, reg *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		stats.TrackVisitor(c.ClientIP())

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if reg != nil {
			reg.RequestDuration.
				WithLabelValues(route, c.Request.Method, fmt.Sprintf("%dxx", status/100)).
				Observe(time.Since(start).Seconds())
		}

		// Only track scoring requests
		if c.Request.Method != http.MethodPost || !scoringRoutes[route] {
			return
		}

		loadTime := float64(time.Since(start).Milliseconds())
		stats.TrackScore(c.GetString(DomainKey), loadTime, status >= http.StatusBadRequest)

		// Periodically save statistics
		if stats.Requests()%100 == 0 {
			logger := logging.FromContext(c.Request.Context())
			go func() {
				if err := stats.Save(); err != nil {
					logger.Warn().Err(err).Msg("Failed to save statistics")
				}
			}()
		}
	}
}
