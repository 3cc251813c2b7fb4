package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	BulkRows        *prometheus.CounterVec
	BulkSubmissions *prometheus.CounterVec
	BulkSessions    prometheus.Gauge

	LiveEvents    *prometheus.CounterVec
	LiveConnected prometheus.Gauge
	HubClients    prometheus.Gauge

	UpstreamSeconds *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	bulkRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_bulk_rows_total",
		Help: "Bulk input rows by outcome.",
	}, []string{"outcome"})
	bulkSubmissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_bulk_submissions_total",
		Help: "Bulk batch submissions by result.",
	}, []string{"result"})
	bulkSessions := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vendor_bulk_sessions"})

	liveEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_live_events_total",
		Help: "Live stream events relayed, by type.",
	}, []string{"type"})
	liveConnected := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vendor_live_connected"})
	hubClients := prometheus.NewGauge(prometheus.GaugeOpts{Name: "vendor_ws_clients"})

	upstream := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vendor_upstream_request_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	r.MustRegister(bulkRows, bulkSubmissions, bulkSessions, liveEvents, liveConnected, hubClients, upstream)
	return &Registry{
		reg:             r,
		BulkRows:        bulkRows,
		BulkSubmissions: bulkSubmissions,
		BulkSessions:    bulkSessions,
		LiveEvents:      liveEvents,
		LiveConnected:   liveConnected,
		HubClients:      hubClients,
		UpstreamSeconds: upstream,
	}
}

// ObserveUpstream matches vendorapi.Observer.
func (r *Registry) ObserveUpstream(method string, elapsed time.Duration) {
	r.UpstreamSeconds.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (r *Registry) ObserveParse(accepted, rejected int) {
	r.BulkRows.WithLabelValues("accepted").Add(float64(accepted))
	r.BulkRows.WithLabelValues("rejected").Add(float64(rejected))
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
