// Package metrics provides the Prometheus collectors for the game server
// and the HTTP middleware that feeds the request metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robalobadob/wordle/apps/wordgame/internal/words"
)

// FetchBuckets covers the simulated word fetch, a couple of seconds by
// default.
var FetchBuckets = []float64{0.01, 0.1, 0.5, 1, 2, 2.5, 5, 10}

var (
	// RoundsStarted counts rounds whose target word arrived, by word length.
	RoundsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgame_rounds_started_total",
			Help: "Rounds started",
		},
		[]string{"length"},
	)

	// RoundsFinished counts finished rounds by word length and outcome (won/lost).
	RoundsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgame_rounds_finished_total",
			Help: "Rounds finished",
		},
		[]string{"length", "outcome"},
	)

	// GuessesTotal counts submitted guesses.
	GuessesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordgame_guesses_total",
			Help: "Submitted guesses",
		},
	)

	// FetchDuration records word fetch latency by length and status (ok/error/stale).
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordgame_fetch_duration_seconds",
			Help:    "Word fetch duration",
			Buckets: FetchBuckets,
		},
		[]string{"length", "status"},
	)

	// StaleFetches counts fetch results discarded because a newer fetch superseded them.
	StaleFetches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordgame_fetch_stale_total",
			Help: "Discarded stale fetch results",
		},
	)

	// SessionsActive tracks live sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wordgame_sessions_active",
			Help: "Active game sessions",
		},
	)

	// RequestsTotal counts HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordgame_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wordgame_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		RoundsStarted,
		RoundsFinished,
		GuessesTotal,
		FetchDuration,
		StaleFetches,
		SessionsActive,
		RequestsTotal,
		RequestDuration,
	)
}

// InvalidLength is the label value shared by every unsupported word length.
const InvalidLength = "invalid"

// Length formats a word length as a label value. Lengths outside the
// supported range collapse into InvalidLength so clients cannot mint series.
func Length(n int) string {
	if n < words.MinLength || n > words.MaxLength {
		return InvalidLength
	}
	return strconv.Itoa(n)
}

// Middleware records RequestsTotal and RequestDuration for every request.
// The chi wrapper keeps http.Hijacker available for WebSocket upgrades.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status/100)+"xx").Inc()
		RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
