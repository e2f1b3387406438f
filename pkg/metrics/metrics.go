package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "kbportal", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "kbportal", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "kbportal", Name: "guard_decisions_total", Help: "Route guard outcomes."},
		[]string{"outcome"},
	)
	SearchQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "kbportal", Name: "search_queries_total", Help: "Search queries by caller role and cache result."},
		[]string{"role", "cache"},
	)
	ContentReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "kbportal", Name: "content_reloads_total", Help: "Content store reloads by result."},
		[]string{"result"},
	)
	ContentDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "kbportal", Name: "content_documents", Help: "Documents in the current content snapshot."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(GuardDecisions)
	reg.MustRegister(SearchQueries)
	reg.MustRegister(ContentReloads)
	reg.MustRegister(ContentDocuments)
}
