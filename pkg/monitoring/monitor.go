package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 测验相关
	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Total number of quiz attempts started",
		},
	)

	AttemptsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_attempts_completed_total",
			Help: "Total number of quiz attempts completed",
		},
		[]string{"passed"},
	)

	ResponsesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_responses_total",
			Help: "Total number of quiz responses recorded",
		},
		[]string{"correct"},
	)

	// 邮箱验证相关
	VerificationCodesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_codes_sent_total",
			Help: "Total number of verification codes sent",
		},
	)

	VerificationChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_checks_total",
			Help: "Total number of verification code checks",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			AttemptsCompleted,
			ResponsesRecorded,
			VerificationCodesSent,
			VerificationChecks,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func ObserveAttemptCompleted(passed bool) {
	AttemptsCompleted.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

func ObserveResponse(correct bool) {
	ResponsesRecorded.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func ObserveVerificationCheck(ok bool) {
	result := "invalid"
	if ok {
		result = "ok"
	}
	VerificationChecks.WithLabelValues(result).Inc()
}
