package visual

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var qrAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatwash_qr_api_requests",
	Help: "Number of QR decode service requests, by HTTP status code",
}, []string{"status"})

var qrAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "chatwash_qr_api_duration_sec",
	Help: "Duration of QR decode service requests",
})
