package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "hotel"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	CheckIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "checkins_total", Help: "Completed check-ins."},
		[]string{"mode"},
	)
	CheckOuts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "checkouts_total", Help: "Completed checkouts."},
		[]string{"method"},
	)
	BilledAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "billed_amount_total", Help: "Sum of billed room charges."},
		[]string{"mode"},
	)
	Migrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "legacy_rooms_total", Help: "Legacy room documents by migration result."},
		[]string{"result"}, // result: migrated|skipped|failed
	)
)

// Serve exposes reg on addr in the background. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, RateLimited, CacheEvents,
		CheckIns, CheckOuts, BilledAmount, Migrations)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveRateLimited() { RateLimited.Inc() }

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveCheckIn(mode string) { CheckIns.WithLabelValues(mode).Inc() }

func ObserveCheckOut(mode, method string, amount int64) {
	CheckOuts.WithLabelValues(method).Inc()
	BilledAmount.WithLabelValues(mode).Add(float64(amount))
}

func ObserveMigration(result string) { Migrations.WithLabelValues(result).Inc() }
