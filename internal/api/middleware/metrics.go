// metrics.go — Prometheus HTTP метрики: qt_http_requests_total, qt_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qt_http_requests_total",
			Help: "Общее количество HTTP-запросов к qrtrack",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qt_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к qrtrack в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware собирает количество и длительность запросов по нормализованному пути.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath заменяет идентификатор QR-кода на {id}, чтобы ограничить
// кардинальность лейблов. Неизвестные пути сворачиваются в "other".
// /api/v1/qr-codes/<uuid>/reset-scans → /api/v1/qr-codes/{id}/reset-scans
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/track", "/api/v1/qr-codes", "/api/v1/analytics", "/api/v1/payloads/format":
		return path
	}

	const qrPrefix = "/api/v1/qr-codes/"
	if rest, ok := strings.CutPrefix(path, qrPrefix); ok && rest != "" {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return qrPrefix + "{id}" + rest[i:]
		}
		return qrPrefix + "{id}"
	}

	return "other"
}
