package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_redis_errors_total",
		Help: "Total number of Redis command errors",
	}, []string{"command"})

	// URLResolutions counts file identifier resolutions by outcome (cache_hit, resolved, failed).
	URLResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_url_resolution_total",
		Help: "File identifier resolutions by result",
	}, []string{"result"})

	// ToggleOperations counts vote and like toggles by kind and resulting action.
	ToggleOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_toggle_operations_total",
		Help: "Vote and like toggles by kind and action",
	}, []string{"kind", "action"})
)

// InitMetrics creates the HTTP Prometheus middleware for serviceName.
// It registers collectors globally, so call it once per process.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the request instrumentation handler.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
