package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AuthFailures counts rejected authentication attempts by reason
// (imagecode, unknown_user, bad_password, duplicate_user).
var AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pawhaven_auth_failures_total",
	Help: "Total number of rejected authentication attempts by reason",
}, []string{"reason"})

// ImageUploads counts stored image uploads by outcome (ok, rejected).
var ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pawhaven_image_uploads_total",
	Help: "Total number of image upload attempts by outcome",
}, []string{"outcome"})

// InitMetrics creates the Prometheus HTTP middleware for the given service name.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// MetricsMiddleware returns the Fiber handler that records HTTP metrics.
func MetricsMiddleware(prom *fiberprometheus.FiberPrometheus) fiber.Handler {
	return prom.Middleware
}
