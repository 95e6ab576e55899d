package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	notificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Push dispatch attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	storiesReaped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stories_reaped_total",
			Help: "Expired stories deleted by the reaper.",
		},
	)

	storyMediaDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "story_media_deleted_total",
			Help: "Story media objects deleted after expiry.",
		},
	)

	derivativesProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_derivatives_total",
			Help: "Media pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	triggerOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trigger_invocations_total",
			Help: "Trigger handler invocations by handler and status.",
		},
		[]string{"handler", "status"},
	)
)

func init() {
	prometheus.MustRegister(notificationsDispatched)
	prometheus.MustRegister(storiesReaped)
	prometheus.MustRegister(storyMediaDeleted)
	prometheus.MustRegister(derivativesProduced)
	prometheus.MustRegister(triggerOutcomes)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDispatch counts one dispatch attempt. outcome is "sent" or a skip reason.
func ObserveDispatch(kind, outcome string) {
	notificationsDispatched.WithLabelValues(kind, outcome).Inc()
}

// ObserveReap counts a completed reaper sweep.
func ObserveReap(deleted, mediaDeleted int) {
	storiesReaped.Add(float64(deleted))
	storyMediaDeleted.Add(float64(mediaDeleted))
}

func ObserveDerivatives(outcome string) {
	derivativesProduced.WithLabelValues(outcome).Inc()
}

func ObserveTrigger(handler, status string) {
	triggerOutcomes.WithLabelValues(handler, status).Inc()
}
