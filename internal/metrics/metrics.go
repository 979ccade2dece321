// Package metrics provides Prometheus metrics for the summarization
// pipeline. The worker registers on the default registry; the embedding
// process decides whether and where to expose it.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all pipeline counters
type Metrics struct {
	SummariesGenerated  prometheus.Counter
	SummaryFallbacks    prometheus.Counter
	DigestsGenerated    prometheus.Counter
	DigestFallbacks     prometheus.Counter
	SummariesPurged     prometheus.Counter
	NotificationsPurged prometheus.Counter
	BatchItemFailures   prometheus.Counter
	SessionsExpired     prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Default returns the process-wide metrics set, registering it on first use
func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = &Metrics{
			SummariesGenerated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_summaries_generated_total",
				Help: "Total conversation summaries written",
			}),
			SummaryFallbacks: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_summary_fallbacks_total",
				Help: "Summaries produced by the deterministic fallback",
			}),
			DigestsGenerated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_digests_generated_total",
				Help: "Total parent digests upserted",
			}),
			DigestFallbacks: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_digest_fallbacks_total",
				Help: "Digests produced by the deterministic fallback",
			}),
			SummariesPurged: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_summaries_purged_total",
				Help: "Summaries deleted by the retention sweeper",
			}),
			NotificationsPurged: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_notifications_purged_total",
				Help: "Notifications deleted by the retention sweeper",
			}),
			BatchItemFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_batch_item_failures_total",
				Help: "Per-learner failures recorded during batch runs",
			}),
			SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
				Name: "tutorai_sessions_expired_total",
				Help: "In-memory sessions removed by the expiry sweep",
			}),
		}
	})

	return defaultMetrics
}
