package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	applogger "FutPull/pkg/logger"
)

type httpCollectors struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
	size     *prometheus.HistogramVec
}

func newHTTPCollectors(reg prometheus.Registerer) *httpCollectors {
	return &httpCollectors{
		requests: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futpull_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		)),
		duration: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "futpull_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		)),
		inFlight: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "futpull_http_in_flight_requests",
				Help: "Current number of in-flight HTTP requests",
			},
			[]string{"route", "method"},
		)),
		size: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "futpull_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{200, 500, 1_000, 2_000, 5_000, 10_000, 50_000, 100_000, 500_000, 1_000_000},
			},
			[]string{"route", "method", "class"},
		)),
	}
}

// register returns the collector already registered under the same
// description, so building a second server on one registry does not panic.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Metrics records request metrics labelled by route template, so paths with
// parameters stay low cardinality. 5xx responses are logged as errors and
// requests slower than slowThreshold as warnings.
func Metrics(reg prometheus.Registerer, l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	m := newHTTPCollectors(reg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method

			m.inFlight.WithLabelValues(route, method).Inc()
			defer m.inFlight.WithLabelValues(route, method).Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			code := c.Response().Status
			status := strconv.Itoa(code)
			class := statusClass(code)
			duration := time.Since(start)

			m.requests.WithLabelValues(route, method, status).Inc()
			m.duration.WithLabelValues(route, method, class).Observe(duration.Seconds())
			m.size.WithLabelValues(route, method, class).Observe(float64(c.Response().Size))

			if l != nil {
				switch {
				case code >= 500:
					l.Error("http request failed",
						applogger.String("route", route),
						applogger.String("method", method),
						applogger.String("status", status),
						applogger.Duration("duration_ms", duration),
					)
				case slowThreshold > 0 && duration >= slowThreshold:
					l.Warn("http request slow",
						applogger.String("route", route),
						applogger.String("method", method),
						applogger.String("status", status),
						applogger.Duration("duration_ms", duration),
					)
				}
			}
			return nil
		}
	}
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
