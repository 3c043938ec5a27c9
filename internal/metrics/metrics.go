package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempts_finalized_total",
			Help: "Attempts finalized, by resulting status",
		},
		[]string{"status"},
	)

	ManualGradings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "manual_gradings_total",
			Help: "Attempts settled by manual grading",
		},
	)

	ClampedScores = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "manual_scores_clamped_total",
			Help: "Manual scores clamped into the allowed range",
		},
	)

	EligibilityRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_rejections_total",
			Help: "Quiz starts rejected by eligibility rules",
		},
		[]string{"reason"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(AttemptsFinalized, ManualGradings, ClampedScores, EligibilityRejections, RequestDuration)
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request durations by method and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		RequestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
