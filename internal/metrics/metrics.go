// Package metrics exposes run counters for the serve endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chanlink/chanlink/internal/pruner"
)

var (
	matchMethods = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chanlink_match_methods_total",
		Help: "Match verdicts by strategy.",
	}, []string{"method"})

	matchAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chanlink_match_accepted_total",
		Help: "Accepted vs rejected match verdicts.",
	}, []string{"accepted"})

	guideFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chanlink_guide_fetch_total",
		Help: "Guide download attempts by country and result.",
	}, []string{"country", "result"})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chanlink_run_duration_seconds",
		Help: "Wall time of the last run, by stage.",
	}, []string{"stage"})

	channelsWritten = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chanlink_playlist_channels",
		Help: "Channels in the last written playlist.",
	})
)

// ObserveReport records the verdicts of one rewrite.
func ObserveReport(rep *pruner.Report) {
	for _, o := range rep.Outcomes {
		matchMethods.WithLabelValues(string(o.Verdict.Method)).Inc()
		if o.Accepted {
			matchAccepted.WithLabelValues("true").Inc()
		} else {
			matchAccepted.WithLabelValues("false").Inc()
		}
	}
	channelsWritten.Set(float64(len(rep.Outcomes)))
}

// ObserveFetch records one guide download attempt.
func ObserveFetch(country string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	guideFetches.WithLabelValues(country, result).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	runDuration.WithLabelValues(stage).Set(d.Seconds())
}

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
