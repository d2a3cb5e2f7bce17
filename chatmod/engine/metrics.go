package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "chatwash_event_duration_sec",
	Help: "Total duration of message event processing",
}, []string{"type"})

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwash_event_processed",
	Help: "Number of events processed",
}, []string{"type"})

var eventErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwash_event_errors",
	Help: "Number of events which failed processing",
}, []string{"type"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwash_actions",
	Help: "Number of enforcement actions taken",
}, []string{"action"})
