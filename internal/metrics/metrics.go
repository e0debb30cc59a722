package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mtqjudge", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mtqjudge", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mtqjudge", Name: "submissions_total", Help: "Score submission attempts by outcome",
	}, []string{"outcome"})
	SubmissionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mtqjudge", Name: "submission_duration_seconds", Help: "Round trip of a score submission",
		Buckets: prometheus.DefBuckets,
	})

	ListingCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mtqjudge", Name: "listing_cache_total", Help: "Listing cache lookups by result",
	}, []string{"result"})

	ActiveConsoles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mtqjudge", Name: "active_consoles", Help: "Judges with a live scoring console",
	})
	StreamClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mtqjudge", Name: "stream_clients", Help: "Connected judging stream sockets",
	})

	AuditPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mtqjudge", Name: "audit_persisted_total", Help: "Submission audit rows written",
	})
	AuditFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mtqjudge", Name: "audit_failures_total", Help: "Audit rows that could not be written",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration,
		Submissions, SubmissionDuration,
		ListingCache,
		ActiveConsoles, StreamClients,
		AuditPersisted, AuditFailures,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

// ObserveSubmission records one submission attempt. outcome is one of
// "accepted", "rejected" or "blocked".
func ObserveSubmission(outcome string, d time.Duration) {
	Submissions.WithLabelValues(outcome).Inc()
	if outcome != "blocked" {
		SubmissionDuration.Observe(d.Seconds())
	}
}

func CacheHit()  { ListingCache.WithLabelValues("hit").Inc() }
func CacheMiss() { ListingCache.WithLabelValues("miss").Inc() }
func CacheErr()  { ListingCache.WithLabelValues("error").Inc() }
