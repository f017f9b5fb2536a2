// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classification label values for BookViewsTotal.
const (
	ClassificationHuman = "human"
	ClassificationBot   = "bot"
)

var (
	// BookViewsTotal counts book page requests by user-agent classification.
	// Only "human" requests increment the stored view counter.
	BookViewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readowl_book_views_total",
		Help: "Book page requests, by user-agent classification.",
	}, []string{"classification"})

	// SlugCollisionsTotal counts slugs that needed a numeric suffix.
	SlugCollisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readowl_slug_collisions_total",
		Help: "Slugs assigned with a numeric suffix because the base slug was taken.",
	})

	NotificationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "readowl_notifications_created_total",
		Help: "Notifications created for followers.",
	})

	// HTTPRequestsTotal is labelled by method and status code only to keep
	// cardinality bounded.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "readowl_http_requests_total",
		Help: "HTTP requests served, by method and status code.",
	}, []string{"method", "status"})
)

// ObserveBookView records a book view classification.
func ObserveBookView(isBot bool) {
	if isBot {
		BookViewsTotal.WithLabelValues(ClassificationBot).Inc()
		return
	}
	BookViewsTotal.WithLabelValues(ClassificationHuman).Inc()
}
