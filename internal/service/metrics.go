package service

import "github.com/prometheus/client_golang/prometheus"

// 与 HTTP 指标同一 namespace，看板里按 arzaquna_vendor_* 聚合
var (
	applicationsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arzaquna",
		Subsystem: "vendor",
		Name:      "applications_submitted_total",
		Help:      "Vendor applications accepted for review.",
	}, []string{"channel"})

	applicationReviews = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arzaquna",
		Subsystem: "vendor",
		Name:      "application_reviews_total",
		Help:      "Vendor application review outcomes.",
	}, []string{"decision"})

	applicationReviewConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arzaquna",
		Subsystem: "vendor",
		Name:      "application_review_conflicts_total",
		Help:      "Reviews refused because the application was no longer pending.",
	})
)

func init() {
	prometheus.MustRegister(applicationsSubmitted, applicationReviews, applicationReviewConflicts)
}
