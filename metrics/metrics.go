package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cookbook_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RecipesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cookbook_recipes_created_total",
			Help: "Total number of recipes added to the catalog.",
		},
	)

	RecipeViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cookbook_recipe_views_total",
			Help: "Total number of recipe detail views.",
		},
	)

	// result: success | failure
	Snapshots = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cookbook_snapshots_total",
			Help: "Catalog snapshot runs by result.",
		},
		[]string{"result"},
	)
)

// GinMiddleware zählt Requests und misst ihre Dauer. Als path dient das Routenmuster,
// damit IDs die Kardinalität nicht aufblähen.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
