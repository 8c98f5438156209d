package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	if handler == nil {
		return func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
	return gin.WrapH(handler)
}

// Int64Counter registers a counter on the global meter provider. Counters
// that cannot be created degrade to no-ops so callers never nil-check.
func Int64Counter(scope, name, description string) metric.Int64Counter {
	counter, err := otel.Meter(scope).Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		zap.L().Warn("failed to create counter", zap.String("name", name), zap.Error(err))
		counter, _ = noop.NewMeterProvider().Meter(scope).Int64Counter(name)
	}
	return counter
}
